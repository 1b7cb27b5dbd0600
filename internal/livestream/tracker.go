package livestream

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/distributor"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/feed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

const defaultExpectedCodes = 3

// Livestream codes are typically redeemable for about a day.
const huntCodeLifetime = 24 * time.Hour

// StatusPoster keeps the public hunt status message up to date.
type StatusPoster interface {
	PostTracking(ctx context.Context, channelID string, t *models.LivestreamTracking, codes []models.TrackedCode) (messageID string, err error)
	EditTracking(ctx context.Context, channelID, messageID string, t *models.LivestreamTracking, codes []models.TrackedCode) error
}

// Tracker runs the livestream code hunt: around a scheduled stream it polls
// the feed at a tighter interval than regular ingestion, and fans the
// discovered codes out once the hunt completes.
type Tracker struct {
	repo   *database.Repository
	feed   *feed.Client
	router *distributor.Router
	poster StatusPoster

	interval time.Duration // polling tick
	lead     time.Duration // how long before stream time the hunt opens
	timeout  time.Duration // stalled hunts fall back to NoSchedule

	now func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewTracker(repo *database.Repository, feedClient *feed.Client, router *distributor.Router, poster StatusPoster, interval, lead, timeout time.Duration) *Tracker {
	return &Tracker{
		repo:     repo,
		feed:     feedClient,
		router:   router,
		poster:   poster,
		interval: interval,
		lead:     lead,
		timeout:  timeout,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the hunt loop
func (t *Tracker) Start(ctx context.Context) {
	logger.Info("Starting livestream tracker", zap.Duration("interval", t.interval))

	t.wg.Add(1)
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Livestream tracker stopped (context cancelled)")
			return
		case <-t.stopChan:
			logger.Info("Livestream tracker stopped")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Stop signals the tracker to stop
func (t *Tracker) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}

func (t *Tracker) tick(ctx context.Context) {
	rows, err := t.repo.ListTrackings(models.TrackingNotYetLive, models.TrackingSearching, models.TrackingFound)
	if err != nil {
		logger.Error("Failed to list hunts", zap.Error(err))
		return
	}

	for i := range rows {
		if ctx.Err() != nil {
			return
		}
		row := rows[i]
		switch row.State {
		case models.TrackingNotYetLive:
			t.maybeOpenHunt(ctx, &row)
		case models.TrackingSearching:
			t.hunt(ctx, &row)
		case models.TrackingFound:
			t.distributeFound(ctx, &row)
		}
	}
}

// transition guards every state change with the legal-transition table
// before it touches storage.
func (t *Tracker) transition(game models.Game, version, from, to string) (bool, error) {
	if !CanTransition(from, to) {
		return false, errors.Errorf("illegal hunt transition %s -> %s", from, to)
	}
	return t.repo.TransitionTracking(game, version, from, to)
}

// Schedule creates or retimes the hunt for (game, version). A fresh row
// starts in NoSchedule and immediately advances once the stream time is set.
func (t *Tracker) Schedule(game models.Game, version string, streamTime time.Time, channelID string, expected int) error {
	if expected < 1 {
		expected = defaultExpectedCodes
	}
	err := t.repo.UpsertTracking(&models.LivestreamTracking{
		Game:            game,
		Version:         version,
		State:           models.TrackingNoSchedule,
		StreamTime:      streamTime,
		ExpectedCount:   expected,
		TrackingChannel: channelID,
	})
	if err != nil {
		return errors.Wrap(err, "saving hunt schedule")
	}

	// A previously disabled hunt is re-enabled by rescheduling it.
	if _, err := t.transition(game, version, models.TrackingDisabled, models.TrackingNoSchedule); err != nil {
		return err
	}
	if streamTime.IsZero() {
		return nil
	}
	_, err = t.transition(game, version, models.TrackingNoSchedule, models.TrackingNotYetLive)
	return err
}

// Disable turns the hunt off. Legal from every state.
func (t *Tracker) Disable(game models.Game, version string) error {
	row, err := t.repo.GetTracking(game, version)
	if err != nil {
		return err
	}
	if row == nil || row.State == models.TrackingDisabled {
		return nil
	}
	_, err = t.transition(game, version, row.State, models.TrackingDisabled)
	return err
}

// ObserveNewCode implements ingest.Observer. A brand-new code seen while the
// current hunt is active counts toward it, and one seen while the hunt sits
// in Distributed reopens the search. Both only inside the stream window so
// unrelated web codes cannot touch an old hunt. Ingestion already delivered
// the code, so it is recorded as distributed; the hunt only keeps count.
func (t *Tracker) ObserveNewCode(ctx context.Context, game models.Game, code string) {
	row, err := t.repo.LatestTracking(game)
	if err != nil || row == nil {
		return
	}
	if row.State != models.TrackingSearching && row.State != models.TrackingDistributed {
		return
	}
	if row.StreamTime.IsZero() || t.now().Sub(row.StreamTime) > t.timeout {
		return
	}

	added, err := t.repo.AddTrackedCode(game, row.Version, code, t.now().Add(huntCodeLifetime), true)
	if err != nil || !added {
		return
	}
	if row.State != models.TrackingDistributed {
		return
	}
	moved, err := t.transition(game, row.Version, models.TrackingDistributed, models.TrackingSearching)
	if err == nil && moved {
		logger.Info("Late code reopened hunt",
			zap.String("game", string(game)),
			zap.String("version", row.Version),
			zap.String("code", code))
	}
}

func (t *Tracker) maybeOpenHunt(ctx context.Context, row *models.LivestreamTracking) {
	if row.StreamTime.IsZero() || t.now().Before(row.StreamTime.Add(-t.lead)) {
		return
	}

	moved, err := t.transition(row.Game, row.Version, models.TrackingNotYetLive, models.TrackingSearching)
	if err != nil {
		logger.Error("Failed to open hunt", zap.String("game", string(row.Game)), zap.Error(err))
		return
	}
	if !moved {
		return
	}
	row.State = models.TrackingSearching
	logger.Info("Hunt opened", zap.String("game", string(row.Game)), zap.String("version", row.Version))

	if t.poster == nil || row.TrackingChannel == "" {
		return
	}
	messageID, err := t.poster.PostTracking(ctx, row.TrackingChannel, row, nil)
	if err != nil {
		logger.Warn("Failed to post hunt status", zap.String("game", string(row.Game)), zap.Error(err))
		return
	}
	row.TrackingMessage = messageID
	if err := t.repo.SetTrackingMessage(row.Game, row.Version, row.TrackingChannel, messageID); err != nil {
		logger.Error("Failed to store hunt message", zap.String("game", string(row.Game)), zap.Error(err))
	}
}

// hunt runs one Searching tick: poll the feed, record discoveries, and
// close the hunt once every expected code is in.
func (t *Tracker) hunt(ctx context.Context, row *models.LivestreamTracking) {
	if !row.StreamTime.IsZero() && t.now().Sub(row.StreamTime) > t.timeout {
		moved, err := t.transition(row.Game, row.Version, models.TrackingSearching, models.TrackingNoSchedule)
		if err == nil && moved {
			logger.Warn("Hunt timed out, reverting to NoSchedule",
				zap.String("game", string(row.Game)),
				zap.String("version", row.Version))
			row.State = models.TrackingNoSchedule
			t.updateStatus(ctx, row)
		}
		return
	}

	codes, err := t.feed.FetchCodes(ctx, row.Game)
	if err != nil {
		logger.Warn("Hunt poll failed", zap.String("game", string(row.Game)), zap.Error(err))
		// Still a tick: the hunt only records that it looked.
		t.touch(row)
		return
	}

	for _, entry := range codes {
		if entry.IsExpired {
			continue
		}
		// Only a globally unseen code counts as a hunt discovery. The feed
		// keeps listing long-running codes the whole time; recording the
		// sighting first keeps them out of the hunt and keeps regular
		// ingestion from re-delivering what the hunt found.
		isNew, _, err := t.repo.UpsertCodeSighting(row.Game, entry.Code, false)
		if err != nil {
			logger.Error("Failed to persist hunt code sighting", zap.String("game", string(row.Game)), zap.Error(err))
			continue
		}
		if !isNew {
			continue
		}
		added, err := t.repo.AddTrackedCode(row.Game, row.Version, entry.Code, t.now().Add(huntCodeLifetime), false)
		if err != nil {
			logger.Error("Failed to record hunt code", zap.String("game", string(row.Game)), zap.Error(err))
			continue
		}
		if !added {
			continue
		}
		logger.Info("Hunt discovered code",
			zap.String("game", string(row.Game)),
			zap.String("version", row.Version),
			zap.String("code", entry.Code))
	}

	t.touch(row)

	tracked, err := t.repo.TrackedCodes(row.Game, row.Version)
	if err != nil {
		logger.Error("Failed to load hunt codes", zap.String("game", string(row.Game)), zap.Error(err))
		return
	}
	if len(tracked) >= row.ExpectedCount {
		moved, err := t.transition(row.Game, row.Version, models.TrackingSearching, models.TrackingFound)
		if err == nil && moved {
			row.State = models.TrackingFound
			logger.Info("Hunt complete", zap.String("game", string(row.Game)), zap.String("version", row.Version), zap.Int("codes", len(tracked)))
		}
	}
	t.updateStatus(ctx, row)
}

// distributeFound fans out every not-yet-distributed hunt code and closes
// the state machine.
func (t *Tracker) distributeFound(ctx context.Context, row *models.LivestreamTracking) {
	pending, err := t.repo.UndistributedTrackedCodes(row.Game, row.Version)
	if err != nil {
		logger.Error("Failed to load pending hunt codes", zap.String("game", string(row.Game)), zap.Error(err))
		return
	}

	if len(pending) > 0 {
		batch := make([]distributor.NewCode, 0, len(pending))
		names := make([]string, 0, len(pending))
		for _, c := range pending {
			batch = append(batch, distributor.NewCode{Code: c.Code})
			names = append(names, c.Code)
		}
		if err := t.router.Distribute(ctx, row.Game, batch); err != nil {
			logger.Error("Hunt distribution failed, will retry next tick", zap.String("game", string(row.Game)), zap.Error(err))
			return
		}
		if err := t.repo.MarkTrackedDistributed(row.Game, row.Version, names); err != nil {
			logger.Error("Failed to mark hunt codes distributed", zap.String("game", string(row.Game)), zap.Error(err))
			return
		}
	}

	moved, err := t.transition(row.Game, row.Version, models.TrackingFound, models.TrackingDistributed)
	if err != nil {
		logger.Error("Failed to close hunt", zap.String("game", string(row.Game)), zap.Error(err))
		return
	}
	if moved {
		row.State = models.TrackingDistributed
		logger.Info("Hunt distributed", zap.String("game", string(row.Game)), zap.String("version", row.Version))
		t.updateStatus(ctx, row)
	}
}

func (t *Tracker) touch(row *models.LivestreamTracking) {
	row.LastChecked = t.now()
	if err := t.repo.TouchTracking(row.Game, row.Version, row.LastChecked); err != nil {
		logger.Error("Failed to touch hunt", zap.String("game", string(row.Game)), zap.Error(err))
	}
}

func (t *Tracker) updateStatus(ctx context.Context, row *models.LivestreamTracking) {
	if t.poster == nil || row.TrackingChannel == "" || row.TrackingMessage == "" {
		return
	}
	tracked, err := t.repo.TrackedCodes(row.Game, row.Version)
	if err != nil {
		return
	}
	if err := t.poster.EditTracking(ctx, row.TrackingChannel, row.TrackingMessage, row, tracked); err != nil {
		logger.Debug("Failed to edit hunt status", zap.String("game", string(row.Game)), zap.Error(err))
	}
}
