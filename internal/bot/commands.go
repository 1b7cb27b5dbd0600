package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
)

var gameChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Genshin Impact", Value: "genshin"},
	{Name: "Honkai: Star Rail", Value: "hkrpg"},
	{Name: "Zenless Zone Zero", Value: "nap"},
}

func (b *Bot) registerCommands() {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "setup",
			Description: "Set the channel that receives new redemption codes",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for code announcements",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "lang",
					Description: "Message language",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "English", Value: "en"},
						{Name: "Tiếng Việt", Value: "vi"},
						{Name: "日本語", Value: "ja"},
					},
				},
			},
		},
		{
			Name:        "autosend",
			Description: "Configure automatic code delivery",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Enable or disable automatic delivery",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "channel",
					Description: "Deliver to the main channel",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "threads",
					Description: "Deliver to per-game forum threads",
					Required:    false,
				},
			},
		},
		{
			Name:        "favorites",
			Description: "Limit deliveries to your favorite games",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Enable or disable the favorite-game filter",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "genshin",
					Description: "Receive Genshin Impact codes",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "hkrpg",
					Description: "Receive Honkai: Star Rail codes",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "nap",
					Description: "Receive Zenless Zone Zero codes",
					Required:    false,
				},
			},
		},
		{
			Name:        "setthread",
			Description: "Route a game's codes to a forum thread",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game",
					Required:    true,
					Choices:     gameChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "thread",
					Description: "Forum thread for this game",
					Required:    true,
				},
			},
		},
		{
			Name:        "setrole",
			Description: "Ping a role when a game gets a new code",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game",
					Required:    true,
					Choices:     gameChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to mention",
					Required:    true,
				},
			},
		},
		{
			Name:        "codes",
			Description: "List the currently active codes for a game",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game",
					Required:    true,
					Choices:     gameChoices,
				},
			},
		},
		{
			Name:        "trackstream",
			Description: "Hunt for special program codes around a livestream",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game",
					Required:    true,
					Choices:     gameChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "version",
					Description: "Game version, e.g. 5.3",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "Stream time (UTC), e.g. 2026-01-03 12:00",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for the hunt status message (defaults to the code channel)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "expected",
					Description: "How many codes the stream is expected to reveal",
					Required:    false,
				},
			},
		},
		{
			Name:        "stoptracking",
			Description: "Disable the livestream code hunt for a version",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game",
					Required:    true,
					Choices:     gameChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "version",
					Description: "Game version",
					Required:    true,
				},
			},
		},
	}

	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands)
	if err != nil {
		logger.Error("Error registering commands", zap.Error(err))
	}
}
