package models

// Game identifies a supported HoYoverse title using the vendor's short id.
type Game string

const (
	GameGenshin Game = "genshin"
	GameHKRPG   Game = "hkrpg"
	GameNAP     Game = "nap"
)

// AllGames lists every title the bot tracks, in fan-out order.
var AllGames = []Game{GameGenshin, GameHKRPG, GameNAP}

func (g Game) Valid() bool {
	switch g {
	case GameGenshin, GameHKRPG, GameNAP:
		return true
	}
	return false
}

func (g Game) DisplayName() string {
	switch g {
	case GameGenshin:
		return "Genshin Impact"
	case GameHKRPG:
		return "Honkai: Star Rail"
	case GameNAP:
		return "Zenless Zone Zero"
	}
	return string(g)
}
