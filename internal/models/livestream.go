package models

import "time"

// Livestream tracking states, persisted verbatim.
const (
	TrackingDisabled    = "Disabled"
	TrackingNoSchedule  = "NoSchedule"
	TrackingNotYetLive  = "NotYetLive"
	TrackingSearching   = "Searching"
	TrackingFound       = "Found"
	TrackingDistributed = "Distributed"
)

// LivestreamTracking is the hunt record for one (game, version) special
// program. StreamTime is zero until a schedule is known.
type LivestreamTracking struct {
	Game            Game      `gorm:"primaryKey;column:game"`
	Version         string    `gorm:"primaryKey;column:version"`
	State           string    `gorm:"column:state"`
	StreamTime      time.Time `gorm:"column:stream_time"`
	ExpectedCount   int       `gorm:"column:expected_count"`
	TrackingChannel string    `gorm:"column:tracking_channel"`
	TrackingMessage string    `gorm:"column:tracking_message"`
	LastChecked     time.Time `gorm:"column:last_checked"`
}

func (LivestreamTracking) TableName() string {
	return "livestream_trackings"
}

// TrackedCode is one code discovered during a hunt for (game, version).
type TrackedCode struct {
	Game         Game      `gorm:"primaryKey;column:game"`
	Version      string    `gorm:"primaryKey;column:version"`
	Code         string    `gorm:"primaryKey;column:code"`
	ExpireAt     time.Time `gorm:"column:expire_at"`
	DiscoveredAt time.Time `gorm:"column:discovered_at"`
	Distributed  bool      `gorm:"column:distributed"`
}

func (TrackedCode) TableName() string {
	return "tracked_codes"
}
