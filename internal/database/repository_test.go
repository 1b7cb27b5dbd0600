package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Connect("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewRepositoryWith(db)
}

func TestUpsertCodeSightingIdempotent(t *testing.T) {
	repo := newTestRepo(t)

	isNew, changed, err := repo.UpsertCodeSighting(models.GameGenshin, "ABC123", false)
	require.NoError(t, err)
	require.True(t, isNew)
	require.False(t, changed)

	// Same sighting again: nothing new, nothing changed.
	isNew, changed, err = repo.UpsertCodeSighting(models.GameGenshin, "ABC123", false)
	require.NoError(t, err)
	require.False(t, isNew)
	require.False(t, changed)

	// Feed now reports the code expired.
	isNew, changed, err = repo.UpsertCodeSighting(models.GameGenshin, "ABC123", true)
	require.NoError(t, err)
	require.False(t, isNew)
	require.True(t, changed)

	// Expired stays expired.
	isNew, changed, err = repo.UpsertCodeSighting(models.GameGenshin, "ABC123", true)
	require.NoError(t, err)
	require.False(t, isNew)
	require.False(t, changed)
}

func TestUpsertCodeSightingPerGameIdentity(t *testing.T) {
	repo := newTestRepo(t)

	isNew, _, err := repo.UpsertCodeSighting(models.GameGenshin, "SHARED", false)
	require.NoError(t, err)
	require.True(t, isNew)

	// Same code string under a different game is a distinct identity.
	isNew, _, err = repo.UpsertCodeSighting(models.GameHKRPG, "SHARED", false)
	require.NoError(t, err)
	require.True(t, isNew)
}

func TestActiveCodesExcludesExpired(t *testing.T) {
	repo := newTestRepo(t)

	_, _, err := repo.UpsertCodeSighting(models.GameNAP, "LIVE1", false)
	require.NoError(t, err)
	_, _, err = repo.UpsertCodeSighting(models.GameNAP, "DEAD1", true)
	require.NoError(t, err)

	codes, err := repo.ActiveCodes(models.GameNAP)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	require.Equal(t, "LIVE1", codes[0].Code)
}

func TestTryMarkYearSent(t *testing.T) {
	repo := newTestRepo(t)

	won, err := repo.TryMarkYearSent("guild-1", 2025)
	require.NoError(t, err)
	require.True(t, won)

	won, err = repo.TryMarkYearSent("guild-1", 2025)
	require.NoError(t, err)
	require.False(t, won)

	// Older years never win once a newer one is recorded.
	won, err = repo.TryMarkYearSent("guild-1", 2024)
	require.NoError(t, err)
	require.False(t, won)

	won, err = repo.TryMarkYearSent("guild-1", 2026)
	require.NoError(t, err)
	require.True(t, won)

	// A different guild has its own guard.
	won, err = repo.TryMarkYearSent("guild-2", 2025)
	require.NoError(t, err)
	require.True(t, won)
}

func TestGuildSettingsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	missing, err := repo.GetGuildSettings("guild-1")
	require.NoError(t, err)
	require.Nil(t, missing)

	err = repo.UpsertGuildSettings(&models.GuildSettings{
		GuildID:         "guild-1",
		AutoSendEnabled: true,
		SendToChannel:   true,
	})
	require.NoError(t, err)

	err = repo.UpsertGuildSettings(&models.GuildSettings{
		GuildID:          "guild-2",
		AutoSendEnabled:  false,
		FavoritesEnabled: true,
		FavGenshin:       true,
	})
	require.NoError(t, err)

	active, err := repo.AutoSendGuilds()
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "guild-1", active[0].GuildID)

	// Upsert replaces in place.
	err = repo.UpsertGuildSettings(&models.GuildSettings{
		GuildID:         "guild-2",
		AutoSendEnabled: true,
		SendToThreads:   true,
	})
	require.NoError(t, err)

	active, err = repo.AutoSendGuilds()
	require.NoError(t, err)
	require.Len(t, active, 2)
}

func TestGuildThreadAndRole(t *testing.T) {
	repo := newTestRepo(t)

	threadID, err := repo.GetGuildThread("guild-1", models.GameGenshin)
	require.NoError(t, err)
	require.Empty(t, threadID)

	require.NoError(t, repo.SetGuildThread("guild-1", models.GameGenshin, "thread-1"))
	require.NoError(t, repo.SetGuildThread("guild-1", models.GameGenshin, "thread-2"))

	threadID, err = repo.GetGuildThread("guild-1", models.GameGenshin)
	require.NoError(t, err)
	require.Equal(t, "thread-2", threadID)

	require.NoError(t, repo.SetGuildRole("guild-1", models.GameHKRPG, "role-1"))
	roleID, err := repo.GetGuildRole("guild-1", models.GameHKRPG)
	require.NoError(t, err)
	require.Equal(t, "role-1", roleID)

	// Unset game stays empty.
	roleID, err = repo.GetGuildRole("guild-1", models.GameNAP)
	require.NoError(t, err)
	require.Empty(t, roleID)
}

func TestFailureNoticeState(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertGuildConfig(&models.GuildConfig{
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Lang:      "en",
	}))

	at := time.Now().Truncate(time.Second)
	require.NoError(t, repo.MarkChannelMissingNotified("guild-1", at))
	require.NoError(t, repo.MarkPermMissingNotified("guild-1", "SendMessages", at))

	cfg, err := repo.GetGuildConfig("guild-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.True(t, cfg.ChannelMissingNotified)
	require.True(t, cfg.PermMissingNotified)
	require.Equal(t, "SendMessages", cfg.PermMissingPerm)

	require.NoError(t, repo.ResetFailureNotices("guild-1"))

	cfg, err = repo.GetGuildConfig("guild-1")
	require.NoError(t, err)
	require.False(t, cfg.ChannelMissingNotified)
	require.False(t, cfg.PermMissingNotified)
	// The last permission stays recorded so a repeat of the same failure is
	// recognized.
	require.Equal(t, "SendMessages", cfg.PermMissingPerm)
}

func TestDeleteGuildRemovesEverything(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertGuildConfig(&models.GuildConfig{GuildID: "guild-1", ChannelID: "chan-1"}))
	require.NoError(t, repo.UpsertGuildSettings(&models.GuildSettings{GuildID: "guild-1", AutoSendEnabled: true}))
	require.NoError(t, repo.SetGuildThread("guild-1", models.GameGenshin, "thread-1"))
	require.NoError(t, repo.SetGuildRole("guild-1", models.GameGenshin, "role-1"))
	_, err := repo.TryMarkYearSent("guild-1", 2025)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteGuild("guild-1"))

	cfg, err := repo.GetGuildConfig("guild-1")
	require.NoError(t, err)
	require.Nil(t, cfg)

	settings, err := repo.GetGuildSettings("guild-1")
	require.NoError(t, err)
	require.Nil(t, settings)

	threadID, err := repo.GetGuildThread("guild-1", models.GameGenshin)
	require.NoError(t, err)
	require.Empty(t, threadID)

	// Year guard is gone too, so a re-added guild starts fresh.
	won, err := repo.TryMarkYearSent("guild-1", 2025)
	require.NoError(t, err)
	require.True(t, won)
}
