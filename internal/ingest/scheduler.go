package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/distributor"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/feed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// Observer is told about every brand-new active code. The livestream
// tracker uses this to notice late codes for an already distributed hunt.
type Observer interface {
	ObserveNewCode(ctx context.Context, game models.Game, code string)
}

// Scheduler periodically pulls each game's code list, deduplicates it
// against the store and hands new codes to the router.
type Scheduler struct {
	repo     *database.Repository
	feed     *feed.Client
	router   *distributor.Router
	observer Observer
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(repo *database.Repository, feedClient *feed.Client, router *distributor.Router, interval time.Duration) *Scheduler {
	return &Scheduler{
		repo:     repo,
		feed:     feedClient,
		router:   router,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// SetObserver wires the new-code hook. Must be called before Start.
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// Start begins the ingestion loop
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("Starting ingestion scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial poll
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Ingestion scheduler stopped (context cancelled)")
			return
		case <-s.stopChan:
			logger.Info("Ingestion scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// Stop signals the scheduler to stop
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// poll runs one ingestion cycle. Games are independent: one failing feed
// only skips that game until the next tick.
func (s *Scheduler) poll(ctx context.Context) {
	for _, game := range models.AllGames {
		select {
		case <-ctx.Done():
			return
		default:
			s.pollGame(ctx, game)
		}
	}
}

func (s *Scheduler) pollGame(ctx context.Context, game models.Game) {
	codes, err := s.feed.FetchCodes(ctx, game)
	if err != nil {
		logger.Warn("Feed fetch failed, skipping game this cycle", zap.String("game", string(game)), zap.Error(err))
		return
	}

	var fresh []distributor.NewCode
	for _, entry := range codes {
		isNew, changedExpiry, err := s.repo.UpsertCodeSighting(game, entry.Code, entry.IsExpired)
		if err != nil {
			// Storage trouble aborts this game's cycle; the idempotent
			// upsert re-derives "new" correctly next tick.
			logger.Error("Failed to persist code sighting", zap.String("game", string(game)), zap.String("code", entry.Code), zap.Error(err))
			return
		}
		if changedExpiry {
			logger.Debug("Code expiry changed", zap.String("game", string(game)), zap.String("code", entry.Code), zap.Bool("expired", entry.IsExpired))
		}
		if isNew && !entry.IsExpired {
			fresh = append(fresh, distributor.NewCode{Code: entry.Code, Rewards: entry.Rewards})
			if s.observer != nil {
				s.observer.ObserveNewCode(ctx, game, entry.Code)
			}
		}
	}

	if len(fresh) == 0 {
		return
	}

	logger.Info("New codes discovered", zap.String("game", string(game)), zap.Int("count", len(fresh)))
	if err := s.router.Distribute(ctx, game, fresh); err != nil {
		logger.Error("Distribution failed", zap.String("game", string(game)), zap.Error(err))
	}
}
