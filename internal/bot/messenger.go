package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/config"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/distributor"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/embed"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

// SendCode implements distributor.Messenger on the Discord session.
func (b *Bot) SendCode(ctx context.Context, d distributor.Delivery) error {
	embedMsg := embed.CreateCodeEmbed(d.Game, d.Code.Code, d.Code.Rewards, d.Lang)

	var mention string
	if d.RoleID != "" {
		mention = fmt.Sprintf("<@&%s>", d.RoleID)
	}

	_, err := b.Session.ChannelMessageSendComplex(d.ChannelID, &discordgo.MessageSend{
		Content: mention,
		Embed:   embedMsg,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classifyDiscordError(err)
	}
	return nil
}

// classifyDiscordError maps Discord REST failures onto the router's
// failure taxonomy. Anything unrecognized counts as transient and is simply
// retried on a later cycle.
func classifyDiscordError(err error) error {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownChannel:
			return &distributor.DeliveryError{Kind: distributor.FailureChannelMissing, Err: err}
		case discordgo.ErrCodeMissingAccess:
			return &distributor.DeliveryError{Kind: distributor.FailurePermissionMissing, Permission: "ViewChannel", Err: err}
		case discordgo.ErrCodeMissingPermissions:
			return &distributor.DeliveryError{Kind: distributor.FailurePermissionMissing, Permission: "SendMessages", Err: err}
		}
	}
	return &distributor.DeliveryError{Kind: distributor.FailureTransient, Err: err}
}

// WarnAdmin implements distributor.Notifier: one throttled DM to the guild
// owner explaining why deliveries are failing.
func (b *Bot) WarnAdmin(guildID string, kind distributor.FailureKind, detail string) {
	var text string
	switch kind {
	case distributor.FailureChannelMissing:
		text = "I could not find the channel configured for code delivery in your server. Please run /setup again."
	case distributor.FailurePermissionMissing:
		text = fmt.Sprintf("I am missing the %s permission in your configured code channel. Codes cannot be delivered until this is fixed.", detail)
	default:
		return
	}

	if config.LogChannelID != "" {
		msg := fmt.Sprintf("Delivery failure in guild %s: %s (%s)", guildID, kind, detail)
		if _, err := b.Session.ChannelMessageSend(config.LogChannelID, msg); err != nil {
			logger.Debug("Failed to write to log channel", zap.Error(err))
		}
	}

	guild, err := b.Session.Guild(guildID)
	if err != nil {
		logger.Warn("Cannot warn guild owner", zap.String("guild", guildID), zap.Error(err))
		return
	}
	dm, err := b.Session.UserChannelCreate(guild.OwnerID)
	if err != nil {
		logger.Warn("Cannot open owner DM", zap.String("guild", guildID), zap.Error(err))
		return
	}
	if _, err := b.Session.ChannelMessageSend(dm.ID, text); err != nil {
		logger.Warn("Owner DM failed", zap.String("guild", guildID), zap.Error(err))
	}
}

// PostTracking implements livestream.StatusPoster.
func (b *Bot) PostTracking(ctx context.Context, channelID string, t *models.LivestreamTracking, codes []models.TrackedCode) (string, error) {
	msg, err := b.Session.ChannelMessageSendEmbed(channelID, embed.CreateTrackingEmbed(t, codes), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// EditTracking implements livestream.StatusPoster.
func (b *Bot) EditTracking(ctx context.Context, channelID, messageID string, t *models.LivestreamTracking, codes []models.TrackedCode) error {
	_, err := b.Session.ChannelMessageEditEmbed(channelID, messageID, embed.CreateTrackingEmbed(t, codes), discordgo.WithContext(ctx))
	return err
}
