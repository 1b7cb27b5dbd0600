package distributor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// NewCode is one freshly discovered code handed over by ingestion or the
// livestream tracker.
type NewCode struct {
	Code    string
	Rewards string
}

// Delivery is one (destination, code) send unit.
type Delivery struct {
	GuildID   string
	ChannelID string
	Game      models.Game
	Code      NewCode
	RoleID    string
	Lang      string
}

// Messenger posts one code message to one channel or thread.
type Messenger interface {
	SendCode(ctx context.Context, d Delivery) error
}

// Notifier delivers a one-time admin warning about a broken destination.
// Throttling is the router's job, not the notifier's.
type Notifier interface {
	WarnAdmin(guildID string, kind FailureKind, detail string)
}

// Router fans new codes out to every eligible guild destination.
type Router struct {
	repo      *database.Repository
	messenger Messenger
	notifier  Notifier
	throttle  *Throttle
	workers   int
}

func NewRouter(repo *database.Repository, messenger Messenger, notifier Notifier, throttle *Throttle, workers int) *Router {
	if workers < 1 {
		workers = 1
	}
	return &Router{
		repo:      repo,
		messenger: messenger,
		notifier:  notifier,
		throttle:  throttle,
		workers:   workers,
	}
}

// Distribute sends each new code to every guild that auto-sends this game.
// Guilds run concurrently on a bounded pool; within one destination the
// sends stay in feed order. A broken guild never blocks the rest.
func (r *Router) Distribute(ctx context.Context, game models.Game, codes []NewCode) error {
	if len(codes) == 0 {
		return nil
	}

	guilds, err := r.repo.AutoSendGuilds()
	if err != nil {
		return err
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, settings := range guilds {
		settings := settings
		g.Go(func() error {
			r.deliverToGuild(ctx, settings, game, codes)
			return nil
		})
	}
	return g.Wait()
}

func (r *Router) deliverToGuild(ctx context.Context, settings models.GuildSettings, game models.Game, codes []NewCode) {
	if !settings.Favors(game) {
		return
	}

	cfg, err := r.repo.GetGuildConfig(settings.GuildID)
	if err != nil {
		logger.Error("Failed to load guild config", zap.String("guild", settings.GuildID), zap.Error(err))
		return
	}
	if cfg == nil {
		// Settings without /setup; nothing to deliver to.
		return
	}

	var destinations []string
	if settings.SendToChannel && cfg.ChannelID != "" {
		destinations = append(destinations, cfg.ChannelID)
	}
	if settings.SendToThreads {
		threadID, err := r.repo.GetGuildThread(settings.GuildID, game)
		if err != nil {
			logger.Error("Failed to resolve thread", zap.String("guild", settings.GuildID), zap.Error(err))
		} else if threadID != "" {
			destinations = append(destinations, threadID)
		}
	}
	if len(destinations) == 0 {
		return
	}

	roleID, err := r.repo.GetGuildRole(settings.GuildID, game)
	if err != nil {
		logger.Error("Failed to resolve role", zap.String("guild", settings.GuildID), zap.Error(err))
		roleID = ""
	}

	delivered := false
	for _, channelID := range destinations {
		if r.deliverToDestination(ctx, cfg, game, channelID, roleID, codes) {
			delivered = true
		}
	}

	if delivered && (cfg.ChannelMissingNotified || cfg.PermMissingNotified) {
		if err := r.repo.ResetFailureNotices(settings.GuildID); err != nil {
			logger.Error("Failed to reset failure notices", zap.String("guild", settings.GuildID), zap.Error(err))
		}
	}
}

// deliverToDestination sends the batch sequentially to one channel/thread.
// Returns true when at least one message landed.
func (r *Router) deliverToDestination(ctx context.Context, cfg *models.GuildConfig, game models.Game, channelID, roleID string, codes []NewCode) bool {
	delivered := false
	for _, code := range codes {
		if ctx.Err() != nil {
			return delivered
		}

		err := r.messenger.SendCode(ctx, Delivery{
			GuildID:   cfg.GuildID,
			ChannelID: channelID,
			Game:      game,
			Code:      code,
			RoleID:    roleID,
			Lang:      cfg.Lang,
		})
		if err == nil {
			delivered = true
			continue
		}

		var derr *DeliveryError
		if errors.As(err, &derr) && derr.Kind != FailureTransient {
			// Permanent for this destination until the guild fixes it.
			r.reportFailure(cfg.GuildID, derr)
			logger.Warn("Destination rejected delivery",
				zap.String("guild", cfg.GuildID),
				zap.String("channel", channelID),
				zap.String("kind", string(derr.Kind)))
			return delivered
		}

		logger.Warn("Transient delivery failure",
			zap.String("guild", cfg.GuildID),
			zap.String("channel", channelID),
			zap.String("code", code.Code),
			zap.Error(err))
	}
	return delivered
}

func (r *Router) reportFailure(guildID string, derr *DeliveryError) {
	if !r.throttle.ShouldNotify(guildID, derr.Kind, derr.Permission) {
		return
	}
	if err := r.throttle.Record(guildID, derr.Kind, derr.Permission); err != nil {
		logger.Error("Failed to record failure notice", zap.String("guild", guildID), zap.Error(err))
		return
	}
	if r.notifier != nil {
		r.notifier.WarnAdmin(guildID, derr.Kind, derr.Permission)
	}
}
