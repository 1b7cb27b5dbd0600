package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/config"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/distributor"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/feed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/ingest"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/livestream"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
)

type Bot struct {
	Session   *discordgo.Session
	Repo      *database.Repository
	Feed      *feed.Client
	Router    *distributor.Router
	Scheduler *ingest.Scheduler
	Tracker   *livestream.Tracker

	cancel context.CancelFunc
}

func New() (*Bot, error) {
	discord, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, err
	}

	repo := database.NewRepository()
	feedClient := feed.NewClient(config.FeedBaseURL)

	bot := &Bot{
		Session: discord,
		Repo:    repo,
		Feed:    feedClient,
	}

	throttle := distributor.NewThrottle(repo, config.NotifyCooldown)
	bot.Router = distributor.NewRouter(repo, bot, bot, throttle, config.FanoutWorkers)
	bot.Scheduler = ingest.New(repo, feedClient, bot.Router, config.PollInterval)
	bot.Tracker = livestream.NewTracker(repo, feedClient, bot.Router, bot,
		config.SearchInterval, config.SearchLead, config.SearchTimeout)
	bot.Scheduler.SetObserver(bot.Tracker)

	bot.registerHandlers()

	return bot, nil
}

func (b *Bot) Start() error {
	err := b.Session.Open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	go b.Scheduler.Start(ctx)
	go b.Tracker.Start(ctx)
	go b.newYearLoop(ctx)
	go b.updateStatusPeriodically(ctx)

	return nil
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.Scheduler.Stop()
	b.Tracker.Stop()
	b.Session.Close()
}

func (b *Bot) registerHandlers() {
	b.Session.AddHandler(b.ready)
	b.Session.AddHandler(b.interactionCreate)
	b.Session.AddHandler(b.guildCreate)
	b.Session.AddHandler(b.guildDelete)
}

func (b *Bot) guildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	logger.Info("Bot joined a new server", zap.String("guild", event.Guild.Name))
	b.updateBotStatus()
}

func (b *Bot) guildDelete(s *discordgo.Session, event *discordgo.GuildDelete) {
	logger.Info("Bot left a server", zap.String("guild", event.ID))
	if err := b.Repo.DeleteGuild(event.ID); err != nil {
		logger.Error("Failed to delete guild records", zap.String("guild", event.ID), zap.Error(err))
	}
	b.updateBotStatus()
}

func (b *Bot) updateStatusPeriodically(ctx context.Context) {
	ticker := time.NewTicker(120 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.updateBotStatus()
		}
	}
}

func (b *Bot) updateBotStatus() {
	serverCount := len(b.Session.State.Guilds)
	status := fmt.Sprintf("Watching %d servers", serverCount)
	err := b.Session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: status,
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		logger.Warn("Error updating status", zap.Error(err))
	}
}
