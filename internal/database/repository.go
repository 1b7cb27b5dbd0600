package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// Repository handles database operations for codes and guild records
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository() *Repository {
	return &Repository{db: DB}
}

// NewRepositoryWith creates a repository bound to a specific connection.
func NewRepositoryWith(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertCodeSighting records one sighting of a code. The insert is a single
// conditional write keyed by (game, code), so two concurrent cycles cannot
// both see isNew for the same code. When the row already exists, only a
// change of the expiry flag counts as an update.
func (r *Repository) UpsertCodeSighting(game models.Game, code string, expired bool) (isNew bool, changedExpiry bool, err error) {
	err = WithRetry(func() error {
		isNew, changedExpiry = false, false

		row := models.Code{Game: game, Code: code, IsExpired: expired, FirstSeenAt: time.Now()}
		res := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game"}, {Name: "code"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			isNew = true
			return nil
		}

		res = r.db.Model(&models.Code{}).
			Where("game = ? AND code = ? AND is_expired <> ?", game, code, expired).
			Update("is_expired", expired)
		if res.Error != nil {
			return res.Error
		}
		changedExpiry = res.RowsAffected == 1
		return nil
	})
	return isNew, changedExpiry, err
}

// ActiveCodes returns all non-expired codes for a game, oldest first.
func (r *Repository) ActiveCodes(game models.Game) ([]models.Code, error) {
	var codes []models.Code
	err := WithRetry(func() error {
		return r.db.Where("game = ? AND is_expired = ?", game, false).
			Order("first_seen_at asc").Find(&codes).Error
	})
	return codes, err
}

// Guild configuration

func (r *Repository) UpsertGuildConfig(cfg *models.GuildConfig) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"channel_id", "lang"}),
		}).Create(cfg).Error
	})
}

func (r *Repository) GetGuildConfig(guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).First(&cfg).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllGuildConfigs returns every configured guild.
func (r *Repository) AllGuildConfigs() ([]models.GuildConfig, error) {
	var all []models.GuildConfig
	err := WithRetry(func() error {
		return r.db.Find(&all).Error
	})
	return all, err
}

// DeleteGuild removes every record the bot keeps for a guild. Called when
// the bot is removed from the server.
func (r *Repository) DeleteGuild(guildID string) error {
	return WithRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			for _, model := range []any{
				&models.GuildConfig{},
				&models.GuildThread{},
				&models.GuildRole{},
				&models.GuildSettings{},
				&models.YearMessage{},
			} {
				if err := tx.Delete(model, "guild_id = ?", guildID).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *Repository) UpsertGuildSettings(s *models.GuildSettings) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"auto_send_enabled", "send_to_channel", "send_to_threads",
				"favorites_enabled", "fav_genshin", "fav_hkrpg", "fav_nap",
			}),
		}).Create(s).Error
	})
}

func (r *Repository) GetGuildSettings(guildID string) (*models.GuildSettings, error) {
	var s models.GuildSettings
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).First(&s).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AutoSendGuilds returns settings for every guild with auto-send enabled.
func (r *Repository) AutoSendGuilds() ([]models.GuildSettings, error) {
	var all []models.GuildSettings
	err := WithRetry(func() error {
		return r.db.Where("auto_send_enabled = ?", true).Find(&all).Error
	})
	return all, err
}

func (r *Repository) SetGuildThread(guildID string, game models.Game, threadID string) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "game"}},
			DoUpdates: clause.AssignmentColumns([]string{"thread_id"}),
		}).Create(&models.GuildThread{GuildID: guildID, Game: game, ThreadID: threadID}).Error
	})
}

// GetGuildThread returns the configured thread id for (guild, game), or ""
// when none is set.
func (r *Repository) GetGuildThread(guildID string, game models.Game) (string, error) {
	var row models.GuildThread
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ? AND game = ?", guildID, game).First(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.ThreadID, nil
}

func (r *Repository) SetGuildRole(guildID string, game models.Game, roleID string) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "game"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id"}),
		}).Create(&models.GuildRole{GuildID: guildID, Game: game, RoleID: roleID}).Error
	})
}

func (r *Repository) GetGuildRole(guildID string, game models.Game) (string, error) {
	var row models.GuildRole
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ? AND game = ?", guildID, game).First(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.RoleID, nil
}

// Failure-notice suppression state

func (r *Repository) MarkChannelMissingNotified(guildID string, at time.Time) error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildConfig{}).
			Where("guild_id = ?", guildID).
			Updates(map[string]any{
				"channel_missing_notified": true,
				"channel_missing_last_at":  at,
			}).Error
	})
}

func (r *Repository) MarkPermMissingNotified(guildID, permission string, at time.Time) error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildConfig{}).
			Where("guild_id = ?", guildID).
			Updates(map[string]any{
				"perm_missing_notified": true,
				"perm_missing_last_at":  at,
				"perm_missing_perm":     permission,
			}).Error
	})
}

// ResetFailureNotices clears both notified flags so the next failure warns
// again. Called after a successful delivery.
func (r *Repository) ResetFailureNotices(guildID string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildConfig{}).
			Where("guild_id = ?", guildID).
			Updates(map[string]any{
				"channel_missing_notified": false,
				"perm_missing_notified":    false,
			}).Error
	})
}

// TryMarkYearSent is the compare-and-set behind the yearly announcement:
// true exactly once per (guild, year), and only for years newer than any
// already recorded.
func (r *Repository) TryMarkYearSent(guildID string, year int) (bool, error) {
	var won bool
	err := WithRetry(func() error {
		won = false

		res := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoNothing: true,
		}).Create(&models.YearMessage{GuildID: guildID, LastYearSent: year})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			won = true
			return nil
		}

		res = r.db.Model(&models.YearMessage{}).
			Where("guild_id = ? AND last_year_sent < ?", guildID, year).
			Update("last_year_sent", year)
		if res.Error != nil {
			return res.Error
		}
		won = res.RowsAffected == 1
		return nil
	})
	return won, err
}
