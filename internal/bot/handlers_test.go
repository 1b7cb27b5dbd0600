package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestPermissionCheckRejectsInteractionWithoutMember(t *testing.T) {
	b := &Bot{}

	// Interactions arriving over a DM carry no member payload.
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
	}}
	require.False(t, b.hasAdminOrModPermissions(nil, i))

	// A member without a resolved user is equally unusable.
	i.Member = &discordgo.Member{}
	require.False(t, b.hasAdminOrModPermissions(nil, i))
}
