package distributor

import (
	"time"

	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
)

// Throttle suppresses repeated failure warnings per guild. The state lives
// on the guild's config row, so a restart does not re-warn everyone.
type Throttle struct {
	repo     *database.Repository
	cooldown time.Duration
	now      func() time.Time
}

func NewThrottle(repo *database.Repository, cooldown time.Duration) *Throttle {
	return &Throttle{repo: repo, cooldown: cooldown, now: time.Now}
}

// ShouldNotify reports whether a warning of this kind may go out now. A
// different missing permission than last recorded counts as a new condition
// and bypasses the cooldown.
func (t *Throttle) ShouldNotify(guildID string, kind FailureKind, detail string) bool {
	cfg, err := t.repo.GetGuildConfig(guildID)
	if err != nil {
		logger.Error("Failed to load notification state", zap.String("guild", guildID), zap.Error(err))
		return false
	}
	if cfg == nil {
		return false
	}

	switch kind {
	case FailureChannelMissing:
		if !cfg.ChannelMissingNotified {
			return true
		}
		return t.now().Sub(cfg.ChannelMissingLastAt) > t.cooldown
	case FailurePermissionMissing:
		if detail != cfg.PermMissingPerm {
			return true
		}
		if !cfg.PermMissingNotified {
			return true
		}
		return t.now().Sub(cfg.PermMissingLastAt) > t.cooldown
	}
	return false
}

// Record marks the warning as sent, starting the cooldown window.
func (t *Throttle) Record(guildID string, kind FailureKind, detail string) error {
	switch kind {
	case FailureChannelMissing:
		return t.repo.MarkChannelMissingNotified(guildID, t.now())
	case FailurePermissionMissing:
		return t.repo.MarkPermMissingNotified(guildID, detail, t.now())
	}
	return nil
}
