package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/embed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
)

// newYearLoop sends each guild one greeting when the calendar year rolls
// over. The storage-level compare-and-set makes concurrent checks and
// restarts safe; this loop only decides when to try.
func (b *Bot) newYearLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkNewYear()
		}
	}
}

func (b *Bot) checkNewYear() {
	now := time.Now()
	// Greetings only go out during January; a guard row that is further
	// behind catches up silently.
	if now.Month() != time.January {
		return
	}

	configs, err := b.Repo.AllGuildConfigs()
	if err != nil {
		logger.Error("Failed to list guilds for new year check", zap.Error(err))
		return
	}

	year := now.Year()
	for _, cfg := range configs {
		won, err := b.Repo.TryMarkYearSent(cfg.GuildID, year)
		if err != nil {
			logger.Error("Year guard failed", zap.String("guild", cfg.GuildID), zap.Error(err))
			continue
		}
		if !won || cfg.ChannelID == "" {
			continue
		}

		_, err = b.Session.ChannelMessageSendEmbed(cfg.ChannelID, embed.CreateNewYearEmbed(year, cfg.Lang))
		if err != nil {
			// The guard already advanced; at-most-once wins over delivery.
			logger.Warn("New year greeting failed", zap.String("guild", cfg.GuildID), zap.Error(err))
		}
	}
}
