package livestream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/distributor"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/feed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

type fakeFeed struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeFeed) set(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = codes
}

func (f *fakeFeed) handler(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type entry struct {
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	resp := struct {
		Codes []entry `json:"codes"`
	}{}
	for _, c := range f.codes {
		resp.Codes = append(resp.Codes, entry{Code: c, Status: "OK"})
	}
	json.NewEncoder(w).Encode(resp)
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []distributor.Delivery
}

func (m *fakeMessenger) SendCode(_ context.Context, d distributor.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, d)
	return nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePoster struct {
	mu    sync.Mutex
	posts int
	edits int
}

func (p *fakePoster) PostTracking(_ context.Context, _ string, _ *models.LivestreamTracking, _ []models.TrackedCode) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts++
	return "msg-1", nil
}

func (p *fakePoster) EditTracking(_ context.Context, _, _ string, _ *models.LivestreamTracking, _ []models.TrackedCode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits++
	return nil
}

type huntFixture struct {
	repo      *database.Repository
	tracker   *Tracker
	feed      *fakeFeed
	messenger *fakeMessenger
	poster    *fakePoster
	now       time.Time
}

func newHuntFixture(t *testing.T) *huntFixture {
	t.Helper()

	db, err := database.Connect("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	repo := database.NewRepositoryWith(db)

	f := &fakeFeed{}
	server := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(server.Close)

	messenger := &fakeMessenger{}
	router := distributor.NewRouter(repo, messenger, nil, distributor.NewThrottle(repo, time.Hour), 2)
	poster := &fakePoster{}

	fx := &huntFixture{
		repo:      repo,
		feed:      f,
		messenger: messenger,
		poster:    poster,
		now:       time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
	}
	fx.tracker = NewTracker(repo, feed.NewClient(server.URL), router, poster,
		time.Minute, 15*time.Minute, 6*time.Hour)
	fx.tracker.now = func() time.Time { return fx.now }
	return fx
}

func (fx *huntFixture) state(t *testing.T, game models.Game, version string) string {
	t.Helper()
	row, err := fx.repo.GetTracking(game, version)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row.State
}

func TestHuntLifecycle(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	// A guild that auto-sends genshin codes.
	require.NoError(t, fx.repo.UpsertGuildConfig(&models.GuildConfig{GuildID: "guild-1", ChannelID: "chan-1", Lang: "en"}))
	require.NoError(t, fx.repo.UpsertGuildSettings(&models.GuildSettings{GuildID: "guild-1", AutoSendEnabled: true, SendToChannel: true}))

	streamTime := fx.now.Add(10 * time.Minute)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))
	require.Equal(t, models.TrackingNotYetLive, fx.state(t, models.GameGenshin, "5.3"))

	// Inside the pre-stream window the hunt opens and the status message is
	// posted.
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))
	require.Equal(t, 1, fx.poster.posts)

	row, err := fx.repo.GetTracking(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Equal(t, "msg-1", row.TrackingMessage)

	// Two of three codes show up; the hunt keeps searching.
	fx.feed.set("HUNT1", "HUNT2")
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	codes, err := fx.repo.TrackedCodes(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Len(t, codes, 2)

	// The last code lands: Searching -> Found.
	fx.feed.set("HUNT1", "HUNT2", "HUNT3")
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingFound, fx.state(t, models.GameGenshin, "5.3"))
	require.Zero(t, fx.messenger.count())

	// Found -> Distributed fans the codes out to the guild.
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingDistributed, fx.state(t, models.GameGenshin, "5.3"))
	require.Equal(t, 3, fx.messenger.count())

	pending, err := fx.repo.UndistributedTrackedCodes(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Empty(t, pending)

	// Further ticks do nothing: the hunt is terminal.
	fx.tracker.tick(ctx)
	require.Equal(t, 3, fx.messenger.count())
}

func TestHuntNotOpenedBeforeWindow(t *testing.T) {
	fx := newHuntFixture(t)

	streamTime := fx.now.Add(2 * time.Hour)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))

	fx.tracker.tick(context.Background())
	require.Equal(t, models.TrackingNotYetLive, fx.state(t, models.GameGenshin, "5.3"))
}

func TestStalledHuntTimesOut(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	streamTime := fx.now.Add(5 * time.Minute)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	// Seven hours later and still nothing: fall back to NoSchedule.
	fx.now = fx.now.Add(7 * time.Hour)
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingNoSchedule, fx.state(t, models.GameGenshin, "5.3"))
}

func TestObserveNewCodeReopensDistributedHunt(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	streamTime := fx.now.Add(-time.Hour)
	require.NoError(t, fx.repo.UpsertTracking(&models.LivestreamTracking{
		Game:          models.GameGenshin,
		Version:       "5.3",
		State:         models.TrackingDistributed,
		StreamTime:    streamTime,
		ExpectedCount: 3,
	}))
	_, err := fx.repo.AddTrackedCode(models.GameGenshin, "5.3", "KNOWN1", fx.now.Add(24*time.Hour), true)
	require.NoError(t, err)

	// An already tracked code changes nothing.
	fx.tracker.ObserveNewCode(ctx, models.GameGenshin, "KNOWN1")
	require.Equal(t, models.TrackingDistributed, fx.state(t, models.GameGenshin, "5.3"))

	// A genuinely new code inside the stream window reopens the search.
	fx.tracker.ObserveNewCode(ctx, models.GameGenshin, "LATE1")
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	// Ingestion delivered the late code itself, so the hunt records it as
	// already sent.
	pending, err := fx.repo.UndistributedTrackedCodes(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestLateCodeNotRedeliveredByReopenedHunt(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.repo.UpsertGuildConfig(&models.GuildConfig{GuildID: "guild-1", ChannelID: "chan-1", Lang: "en"}))
	require.NoError(t, fx.repo.UpsertGuildSettings(&models.GuildSettings{GuildID: "guild-1", AutoSendEnabled: true, SendToChannel: true}))

	// A finished hunt: three codes found and fanned out an hour ago.
	require.NoError(t, fx.repo.UpsertTracking(&models.LivestreamTracking{
		Game:          models.GameGenshin,
		Version:       "5.3",
		State:         models.TrackingDistributed,
		StreamTime:    fx.now.Add(-time.Hour),
		ExpectedCount: 3,
	}))
	for _, code := range []string{"HUNT1", "HUNT2", "HUNT3"} {
		_, err := fx.repo.AddTrackedCode(models.GameGenshin, "5.3", code, fx.now.Add(24*time.Hour), true)
		require.NoError(t, err)
	}

	// Ingestion spots a late code, delivers it, and tells the tracker.
	fx.tracker.ObserveNewCode(ctx, models.GameGenshin, "LATE1")
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	// The reopened hunt settles back down without sending anything itself.
	fx.feed.set("HUNT1", "HUNT2", "HUNT3", "LATE1")
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingFound, fx.state(t, models.GameGenshin, "5.3"))
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingDistributed, fx.state(t, models.GameGenshin, "5.3"))
	require.Zero(t, fx.messenger.count())
}

func TestObserveNewCodeIgnoresOldHunts(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	// The hunt finished days ago; unrelated web codes must not reopen it.
	require.NoError(t, fx.repo.UpsertTracking(&models.LivestreamTracking{
		Game:          models.GameGenshin,
		Version:       "5.3",
		State:         models.TrackingDistributed,
		StreamTime:    fx.now.Add(-72 * time.Hour),
		ExpectedCount: 3,
	}))

	fx.tracker.ObserveNewCode(ctx, models.GameGenshin, "WEBCODE1")
	require.Equal(t, models.TrackingDistributed, fx.state(t, models.GameGenshin, "5.3"))
}

func TestDisableAndReschedule(t *testing.T) {
	fx := newHuntFixture(t)

	streamTime := fx.now.Add(time.Hour)
	require.NoError(t, fx.tracker.Schedule(models.GameHKRPG, "3.0", streamTime, "status-chan", 0))

	row, err := fx.repo.GetTracking(models.GameHKRPG, "3.0")
	require.NoError(t, err)
	require.Equal(t, defaultExpectedCodes, row.ExpectedCount)

	require.NoError(t, fx.tracker.Disable(models.GameHKRPG, "3.0"))
	require.Equal(t, models.TrackingDisabled, fx.state(t, models.GameHKRPG, "3.0"))

	// Disabling twice is a no-op.
	require.NoError(t, fx.tracker.Disable(models.GameHKRPG, "3.0"))

	// Rescheduling re-enables the hunt.
	require.NoError(t, fx.tracker.Schedule(models.GameHKRPG, "3.0", streamTime, "status-chan", 3))
	require.Equal(t, models.TrackingNotYetLive, fx.state(t, models.GameHKRPG, "3.0"))
}

func TestHuntIgnoresLongRunningCodes(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.repo.UpsertGuildConfig(&models.GuildConfig{GuildID: "guild-1", ChannelID: "chan-1", Lang: "en"}))
	require.NoError(t, fx.repo.UpsertGuildSettings(&models.GuildSettings{GuildID: "guild-1", AutoSendEnabled: true, SendToChannel: true}))

	// Three active codes have been on the feed for weeks and were already
	// delivered by regular ingestion.
	for _, code := range []string{"OLD1", "OLD2", "OLD3"} {
		isNew, _, err := fx.repo.UpsertCodeSighting(models.GameGenshin, code, false)
		require.NoError(t, err)
		require.True(t, isNew)
	}

	streamTime := fx.now.Add(5 * time.Minute)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	// The feed still lists the old codes; none of them count for the hunt.
	fx.feed.set("OLD1", "OLD2", "OLD3")
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	tracked, err := fx.repo.TrackedCodes(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Empty(t, tracked)
	require.Zero(t, fx.messenger.count())

	// Only the genuinely new stream codes complete the hunt.
	fx.feed.set("OLD1", "OLD2", "OLD3", "NEW1", "NEW2", "NEW3")
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingFound, fx.state(t, models.GameGenshin, "5.3"))

	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingDistributed, fx.state(t, models.GameGenshin, "5.3"))
	require.Equal(t, 3, fx.messenger.count())
}

func TestObserveNewCodeCountsTowardActiveHunt(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	streamTime := fx.now.Add(5 * time.Minute)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))
	fx.tracker.tick(ctx)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))

	// Regular ingestion races the hunt to a new code and delivers it first.
	// The hunt still counts it, but leaves delivery alone.
	fx.tracker.ObserveNewCode(ctx, models.GameGenshin, "RACE1")

	tracked, err := fx.repo.TrackedCodes(models.GameGenshin, "5.3")
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	require.True(t, tracked[0].Distributed)
	require.Equal(t, models.TrackingSearching, fx.state(t, models.GameGenshin, "5.3"))
}

func TestHuntDiscoveriesShareGlobalDedup(t *testing.T) {
	fx := newHuntFixture(t)
	ctx := context.Background()

	streamTime := fx.now.Add(5 * time.Minute)
	require.NoError(t, fx.tracker.Schedule(models.GameGenshin, "5.3", streamTime, "status-chan", 3))
	fx.tracker.tick(ctx)

	fx.feed.set("HUNT1")
	fx.tracker.tick(ctx)

	// Regular ingestion seeing the same code later must not treat it as new.
	isNew, _, err := fx.repo.UpsertCodeSighting(models.GameGenshin, "HUNT1", false)
	require.NoError(t, err)
	require.False(t, isNew)
}
