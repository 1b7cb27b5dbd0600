package models

import "time"

// Code is the globally deduplicated record of a redemption code sighting.
// (game, code) is the identity; a code is "new" exactly once.
type Code struct {
	Game        Game      `gorm:"primaryKey;column:game"`
	Code        string    `gorm:"primaryKey;column:code"`
	IsExpired   bool      `gorm:"column:is_expired"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at"`
}

func (Code) TableName() string {
	return "codes"
}
