package models

// YearMessage guards the once-per-calendar-year announcement for a guild.
// LastYearSent only moves forward.
type YearMessage struct {
	GuildID      string `gorm:"primaryKey;column:guild_id"`
	LastYearSent int    `gorm:"column:last_year_sent"`
}

func (YearMessage) TableName() string {
	return "year_messages"
}
