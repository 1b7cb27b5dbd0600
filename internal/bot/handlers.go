package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/config"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/embed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	logger.Info("Bot is ready")
	b.registerCommands()
	b.updateBotStatus()
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name

	// /codes is read-only and open to everyone; everything else changes
	// guild configuration.
	if name != "codes" && !b.hasAdminOrModPermissions(s, i) {
		b.respondToInteraction(s, i, "You do not have permission to use this command.", true)
		return
	}

	switch name {
	case "setup":
		b.handleSetupCommand(s, i)
	case "autosend":
		b.handleAutoSendCommand(s, i)
	case "favorites":
		b.handleFavoritesCommand(s, i)
	case "setthread":
		b.handleSetThreadCommand(s, i)
	case "setrole":
		b.handleSetRoleCommand(s, i)
	case "codes":
		b.handleCodesCommand(s, i)
	case "trackstream":
		b.handleTrackStreamCommand(s, i)
	case "stoptracking":
		b.handleStopTrackingCommand(s, i)
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (b *Bot) handleSetupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)

	channel := opts["channel"].ChannelValue(s)
	if channel == nil {
		b.respondToInteraction(s, i, "Error: the selected channel could not be resolved.", true)
		return
	}

	lang := "en"
	if opt, ok := opts["lang"]; ok {
		lang = opt.StringValue()
	}

	err := b.Repo.UpsertGuildConfig(&models.GuildConfig{
		GuildID:   i.GuildID,
		ChannelID: channel.ID,
		Lang:      lang,
	})
	if err != nil {
		logger.Error("Setup failed", zap.String("guild", i.GuildID), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not save your configuration.", true)
		return
	}

	// First-time setup gets sensible delivery defaults.
	existing, err := b.Repo.GetGuildSettings(i.GuildID)
	if err == nil && existing == nil {
		err = b.Repo.UpsertGuildSettings(&models.GuildSettings{
			GuildID:         i.GuildID,
			AutoSendEnabled: true,
			SendToChannel:   true,
		})
	}
	if err != nil {
		logger.Error("Failed to seed guild settings", zap.String("guild", i.GuildID), zap.Error(err))
	}

	// Seed the year guard so a mid-year setup does not trigger a greeting.
	if _, err := b.Repo.TryMarkYearSent(i.GuildID, time.Now().Year()); err != nil {
		logger.Error("Failed to seed year guard", zap.String("guild", i.GuildID), zap.Error(err))
	}

	b.respondToInteraction(s, i, fmt.Sprintf("New codes will be posted in <#%s>.", channel.ID), false)
}

func (b *Bot) handleAutoSendCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)

	settings, err := b.Repo.GetGuildSettings(i.GuildID)
	if err != nil {
		b.respondToInteraction(s, i, "Error: could not load your settings.", true)
		return
	}
	if settings == nil {
		settings = &models.GuildSettings{GuildID: i.GuildID, SendToChannel: true}
	}

	settings.AutoSendEnabled = opts["enabled"].BoolValue()
	if opt, ok := opts["channel"]; ok {
		settings.SendToChannel = opt.BoolValue()
	}
	if opt, ok := opts["threads"]; ok {
		settings.SendToThreads = opt.BoolValue()
	}

	if err := b.Repo.UpsertGuildSettings(settings); err != nil {
		logger.Error("Failed to save settings", zap.String("guild", i.GuildID), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not save your settings.", true)
		return
	}

	state := "disabled"
	if settings.AutoSendEnabled {
		state = "enabled"
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Automatic code delivery is now %s.", state), false)
}

func (b *Bot) handleFavoritesCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)

	settings, err := b.Repo.GetGuildSettings(i.GuildID)
	if err != nil {
		b.respondToInteraction(s, i, "Error: could not load your settings.", true)
		return
	}
	if settings == nil {
		settings = &models.GuildSettings{GuildID: i.GuildID, AutoSendEnabled: true, SendToChannel: true}
	}

	settings.FavoritesEnabled = opts["enabled"].BoolValue()
	if opt, ok := opts["genshin"]; ok {
		settings.FavGenshin = opt.BoolValue()
	}
	if opt, ok := opts["hkrpg"]; ok {
		settings.FavHkrpg = opt.BoolValue()
	}
	if opt, ok := opts["nap"]; ok {
		settings.FavNap = opt.BoolValue()
	}

	if err := b.Repo.UpsertGuildSettings(settings); err != nil {
		logger.Error("Failed to save favorites", zap.String("guild", i.GuildID), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not save your settings.", true)
		return
	}

	if !settings.FavoritesEnabled {
		b.respondToInteraction(s, i, "Favorite-game filter disabled; you will receive codes for all games.", false)
		return
	}
	var picked []string
	for _, game := range models.AllGames {
		if settings.Favors(game) {
			picked = append(picked, game.DisplayName())
		}
	}
	if len(picked) == 0 {
		b.respondToInteraction(s, i, "Favorite-game filter enabled, but no games are selected - you will receive no codes.", false)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("You will only receive codes for: %s.", strings.Join(picked, ", ")), false)
}

func (b *Bot) handleSetThreadCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	game := models.Game(opts["game"].StringValue())
	thread := opts["thread"].ChannelValue(s)
	if !game.Valid() || thread == nil {
		b.respondToInteraction(s, i, "Error: invalid game or thread.", true)
		return
	}

	if err := b.Repo.SetGuildThread(i.GuildID, game, thread.ID); err != nil {
		logger.Error("Failed to save thread", zap.String("guild", i.GuildID), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not save the thread.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("%s codes will be posted in <#%s> when thread delivery is enabled.", game.DisplayName(), thread.ID), false)
}

func (b *Bot) handleSetRoleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	game := models.Game(opts["game"].StringValue())
	role := opts["role"].RoleValue(s, i.GuildID)
	if !game.Valid() || role == nil {
		b.respondToInteraction(s, i, "Error: invalid game or role.", true)
		return
	}

	if err := b.Repo.SetGuildRole(i.GuildID, game, role.ID); err != nil {
		logger.Error("Failed to save role", zap.String("guild", i.GuildID), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not save the role.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("New %s codes will mention <@&%s>.", game.DisplayName(), role.ID), false)
}

func (b *Bot) handleCodesCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	game := models.Game(opts["game"].StringValue())
	if !game.Valid() {
		b.respondToInteraction(s, i, "Error: invalid game.", true)
		return
	}

	codes, err := b.Repo.ActiveCodes(game)
	if err != nil {
		logger.Error("Failed to list codes", zap.String("game", string(game)), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not load codes.", true)
		return
	}

	lang := "en"
	if cfg, err := b.Repo.GetGuildConfig(i.GuildID); err == nil && cfg != nil {
		lang = cfg.Lang
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed.CreateCodeListEmbed(game, codes, lang)},
		},
	})
	if err != nil {
		logger.Warn("Failed to respond with code list", zap.Error(err))
	}
}

const streamTimeLayout = "2006-01-02 15:04"

func (b *Bot) handleTrackStreamCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	game := models.Game(opts["game"].StringValue())
	version := strings.TrimSpace(opts["version"].StringValue())
	if !game.Valid() || version == "" {
		b.respondToInteraction(s, i, "Error: invalid game or version.", true)
		return
	}

	raw := opts["time"].StringValue()
	streamTime, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		streamTime, err = time.Parse(streamTimeLayout, raw)
		if err != nil {
			b.respondToInteraction(s, i, "Error: time must look like `2026-01-03 12:00` (UTC) or RFC 3339.", true)
			return
		}
	}

	channelID := ""
	if opt, ok := opts["channel"]; ok {
		if ch := opt.ChannelValue(s); ch != nil {
			channelID = ch.ID
		}
	}
	if channelID == "" {
		cfg, err := b.Repo.GetGuildConfig(i.GuildID)
		if err != nil || cfg == nil {
			b.respondToInteraction(s, i, "Error: run /setup first or pass a status channel.", true)
			return
		}
		channelID = cfg.ChannelID
	}

	expected := 0
	if opt, ok := opts["expected"]; ok {
		expected = int(opt.IntValue())
	}

	if err := b.Tracker.Schedule(game, version, streamTime.UTC(), channelID, expected); err != nil {
		logger.Error("Failed to schedule hunt", zap.String("game", string(game)), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not schedule the hunt.", true)
		return
	}

	b.respondToInteraction(s, i, fmt.Sprintf("Tracking %s %s special program codes around <t:%d:f>.",
		game.DisplayName(), version, streamTime.UTC().Unix()), false)
}

func (b *Bot) handleStopTrackingCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	game := models.Game(opts["game"].StringValue())
	version := strings.TrimSpace(opts["version"].StringValue())
	if !game.Valid() || version == "" {
		b.respondToInteraction(s, i, "Error: invalid game or version.", true)
		return
	}

	if err := b.Tracker.Disable(game, version); err != nil {
		logger.Error("Failed to disable hunt", zap.String("game", string(game)), zap.Error(err))
		b.respondToInteraction(s, i, "Error: could not stop tracking.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Stopped tracking %s %s.", game.DisplayName(), version), false)
}

func (b *Bot) respondToInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) hasAdminOrModPermissions(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	// Interactions from DMs carry no member
	if i.Member == nil || i.Member.User == nil {
		return false
	}

	// The bot owner can always manage configuration
	if config.BotOwnerID != "" && i.Member.User.ID == config.BotOwnerID {
		return true
	}

	// Check if the user is the server owner
	guild, err := s.Guild(i.GuildID)
	if err == nil && guild.OwnerID == i.Member.User.ID {
		return true
	}

	// Check for administrator permission
	if i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
		return true
	}

	// Check for manage server permission (typically given to moderators)
	if i.Member.Permissions&discordgo.PermissionManageServer == discordgo.PermissionManageServer {
		return true
	}

	return false
}
