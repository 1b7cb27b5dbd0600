package embed

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"
)

func gameColor(game models.Game) int {
	switch game {
	case models.GameGenshin:
		return 0x4FC3F7
	case models.GameHKRPG:
		return 0x9575CD
	case models.GameNAP:
		return 0xF0A732
	}
	return 0x99AAB5
}

func redeemURL(game models.Game, code string) string {
	switch game {
	case models.GameGenshin:
		return fmt.Sprintf("https://genshin.hoyoverse.com/en/gift?code=%s", code)
	case models.GameHKRPG:
		return fmt.Sprintf("https://hsr.hoyoverse.com/gift?code=%s", code)
	case models.GameNAP:
		return fmt.Sprintf("https://zenless.hoyoverse.com/redemption?code=%s", code)
	}
	return ""
}

// CreateCodeEmbed builds the message posted for one new redemption code.
func CreateCodeEmbed(game models.Game, code, rewards, lang string) *discordgo.MessageEmbed {
	msg := messagesFor(lang)

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s - %s", game.DisplayName(), msg.newCode),
		URL:         redeemURL(game, code),
		Color:       gameColor(game),
		Description: fmt.Sprintf("`%s`", code),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  msg.redeem,
				Value: redeemURL(game, code),
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if rewards != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  msg.rewards,
			Value: rewards,
		})
	}
	return embed
}

// CreateCodeListEmbed builds the /codes response listing active codes.
func CreateCodeListEmbed(game models.Game, codes []models.Code, lang string) *discordgo.MessageEmbed {
	msg := messagesFor(lang)

	var sb strings.Builder
	for _, c := range codes {
		fmt.Fprintf(&sb, "`%s` - %s\n", c.Code, redeemURL(game, c.Code))
	}
	if sb.Len() == 0 {
		sb.WriteString(msg.noCodes)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s - %s", game.DisplayName(), msg.activeCodes),
		Color:       gameColor(game),
		Description: sb.String(),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// trackingStatus renders a hunt state for the status message. A posted
// message only ever sees NoSchedule again when the hunt timed out.
func trackingStatus(state string) string {
	switch state {
	case models.TrackingNoSchedule:
		return "Closed (timed out before all codes appeared)"
	case models.TrackingSearching:
		return "Searching for codes"
	case models.TrackingFound:
		return "All codes found"
	case models.TrackingDistributed:
		return "Codes sent out"
	}
	return state
}

// CreateTrackingEmbed builds the live hunt status message, edited in place
// as the hunt progresses.
func CreateTrackingEmbed(t *models.LivestreamTracking, codes []models.TrackedCode) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, c := range codes {
		fmt.Fprintf(&sb, "`%s` - %s\n", c.Code, redeemURL(t.Game, c.Code))
	}
	if sb.Len() == 0 {
		sb.WriteString("No codes discovered yet.")
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s Special Program Codes", t.Game.DisplayName(), t.Version),
		Color:       gameColor(t.Game),
		Description: sb.String(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Status",
				Value:  trackingStatus(t.State),
				Inline: true,
			},
			{
				Name:   "Codes found",
				Value:  fmt.Sprintf("%d / %d", len(codes), t.ExpectedCount),
				Inline: true,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if !t.LastChecked.IsZero() {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Last checked %s", t.LastChecked.UTC().Format("15:04:05 MST")),
		}
	}
	return embed
}

// CreateNewYearEmbed builds the once-per-year greeting.
func CreateNewYearEmbed(year int, lang string) *discordgo.MessageEmbed {
	msg := messagesFor(lang)
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %d!", msg.happyNewYear, year),
		Color:       0xF5C542,
		Description: msg.newYearBody,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}
