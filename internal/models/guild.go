package models

import "time"

// GuildConfig holds a guild's delivery destinations and the suppression state
// for repeated failure warnings. One row per guild, created by /setup.
type GuildConfig struct {
	GuildID   string `gorm:"primaryKey;column:guild_id"`
	ChannelID string `gorm:"column:channel_id"`
	Lang      string `gorm:"column:lang"`

	ChannelMissingNotified bool      `gorm:"column:channel_missing_notified"`
	ChannelMissingLastAt   time.Time `gorm:"column:channel_missing_last_at"`
	PermMissingNotified    bool      `gorm:"column:perm_missing_notified"`
	PermMissingLastAt      time.Time `gorm:"column:perm_missing_last_at"`
	PermMissingPerm        string    `gorm:"column:perm_missing_perm"`
}

func (GuildConfig) TableName() string {
	return "guild_configs"
}

// GuildThread maps a game to the forum thread that receives its codes.
type GuildThread struct {
	GuildID  string `gorm:"primaryKey;column:guild_id"`
	Game     Game   `gorm:"primaryKey;column:game"`
	ThreadID string `gorm:"column:thread_id"`
}

func (GuildThread) TableName() string {
	return "guild_threads"
}

// GuildRole maps a game to the role pinged alongside its codes.
type GuildRole struct {
	GuildID string `gorm:"primaryKey;column:guild_id"`
	Game    Game   `gorm:"primaryKey;column:game"`
	RoleID  string `gorm:"column:role_id"`
}

func (GuildRole) TableName() string {
	return "guild_roles"
}

// GuildSettings governs routing decisions for a guild. Kept separate from
// GuildConfig so settings commands and the dashboard can write it without
// touching delivery state.
type GuildSettings struct {
	GuildID         string `gorm:"primaryKey;column:guild_id"`
	AutoSendEnabled bool   `gorm:"column:auto_send_enabled"`
	SendToChannel   bool   `gorm:"column:send_to_channel"`
	SendToThreads   bool   `gorm:"column:send_to_threads"`

	FavoritesEnabled bool `gorm:"column:favorites_enabled"`
	FavGenshin       bool `gorm:"column:fav_genshin"`
	FavHkrpg         bool `gorm:"column:fav_hkrpg"`
	FavNap           bool `gorm:"column:fav_nap"`
}

func (GuildSettings) TableName() string {
	return "guild_settings"
}

// Favors reports whether the guild's favorite-game filter admits the game.
// A disabled filter admits everything.
func (s GuildSettings) Favors(game Game) bool {
	if !s.FavoritesEnabled {
		return true
	}
	switch game {
	case GameGenshin:
		return s.FavGenshin
	case GameHKRPG:
		return s.FavHkrpg
	case GameNAP:
		return s.FavNap
	}
	return false
}
