package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// Livestream tracking operations. All state changes are conditional writes
// keyed by (game, version) so the tracker loop and operator commands can
// race safely.

func (r *Repository) GetTracking(game models.Game, version string) (*models.LivestreamTracking, error) {
	var t models.LivestreamTracking
	err := WithRetry(func() error {
		return r.db.Where("game = ? AND version = ?", game, version).First(&t).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrackings returns all rows currently in one of the given states.
func (r *Repository) ListTrackings(states ...string) ([]models.LivestreamTracking, error) {
	var rows []models.LivestreamTracking
	err := WithRetry(func() error {
		return r.db.Where("state IN ?", states).Find(&rows).Error
	})
	return rows, err
}

// LatestTracking returns the most recently scheduled row for a game, or nil.
func (r *Repository) LatestTracking(game models.Game) (*models.LivestreamTracking, error) {
	var t models.LivestreamTracking
	err := WithRetry(func() error {
		return r.db.Where("game = ?", game).Order("stream_time desc").First(&t).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTracking creates or reschedules a hunt. State is only written on
// insert; an existing row keeps its state and is retimed in place.
func (r *Repository) UpsertTracking(t *models.LivestreamTracking) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stream_time", "expected_count", "tracking_channel",
			}),
		}).Create(t).Error
	})
}

// TransitionTracking moves (game, version) from one state to another. The
// write only lands when the row is still in the expected state; false means
// someone else got there first or the row is gone.
func (r *Repository) TransitionTracking(game models.Game, version, from, to string) (bool, error) {
	var moved bool
	err := WithRetry(func() error {
		res := r.db.Model(&models.LivestreamTracking{}).
			Where("game = ? AND version = ? AND state = ?", game, version, from).
			Update("state", to)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected == 1
		return nil
	})
	return moved, err
}

// SetTrackingMessage stores the posted status message so later ticks can
// edit it instead of reposting.
func (r *Repository) SetTrackingMessage(game models.Game, version, channelID, messageID string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.LivestreamTracking{}).
			Where("game = ? AND version = ?", game, version).
			Updates(map[string]any{
				"tracking_channel": channelID,
				"tracking_message": messageID,
			}).Error
	})
}

// TouchTracking updates last_checked after a polling tick.
func (r *Repository) TouchTracking(game models.Game, version string, at time.Time) error {
	return WithRetry(func() error {
		return r.db.Model(&models.LivestreamTracking{}).
			Where("game = ? AND version = ?", game, version).
			Update("last_checked", at).Error
	})
}

// AddTrackedCode records a discovered hunt code; false when the code was
// already known for this (game, version). Codes whose delivery is owned by
// another path are inserted with distributed already set.
func (r *Repository) AddTrackedCode(game models.Game, version, code string, expireAt time.Time, distributed bool) (bool, error) {
	var added bool
	err := WithRetry(func() error {
		added = false
		res := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game"}, {Name: "version"}, {Name: "code"}},
			DoNothing: true,
		}).Create(&models.TrackedCode{
			Game:         game,
			Version:      version,
			Code:         code,
			ExpireAt:     expireAt,
			DiscoveredAt: time.Now(),
			Distributed:  distributed,
		})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected == 1
		return nil
	})
	return added, err
}

func (r *Repository) TrackedCodes(game models.Game, version string) ([]models.TrackedCode, error) {
	var rows []models.TrackedCode
	err := WithRetry(func() error {
		return r.db.Where("game = ? AND version = ?", game, version).
			Order("discovered_at asc").Find(&rows).Error
	})
	return rows, err
}

// UndistributedTrackedCodes lists hunt codes not yet fanned out.
func (r *Repository) UndistributedTrackedCodes(game models.Game, version string) ([]models.TrackedCode, error) {
	var rows []models.TrackedCode
	err := WithRetry(func() error {
		return r.db.Where("game = ? AND version = ? AND distributed = ?", game, version, false).
			Order("discovered_at asc").Find(&rows).Error
	})
	return rows, err
}

func (r *Repository) MarkTrackedDistributed(game models.Game, version string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	return WithRetry(func() error {
		return r.db.Model(&models.TrackedCode{}).
			Where("game = ? AND version = ? AND code IN ?", game, version, codes).
			Update("distributed", true).Error
	})
}
