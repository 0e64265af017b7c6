package credits

import (
	"strings"
	"testing"

	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/stretchr/testify/assert"
)

func TestLeaderboardEmbed(t *testing.T) {
	rows := []registry.AccountBalance{
		{ID: "a", Credits: 500},
		{ID: "b", Credits: 300},
		{ID: "c", Credits: 200},
		{ID: "d", Credits: 10},
	}

	lines := strings.Split(strings.TrimSpace(LeaderboardEmbed(rows).Description), "\n")
	assert.Equal(t, []string{
		"🥇 <@a> · **500**",
		"🥈 <@b> · **300**",
		"🥉 <@c> · **200**",
		"`4.` <@d> · **10**",
	}, lines)
}

func TestLeaderboardEmbedEmpty(t *testing.T) {
	assert.Equal(t, "Nadie tiene créditos todavía.", LeaderboardEmbed(nil).Description)
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions("<@111111111111111111> <@!222222222222222222>, 333333333333333333 and 42")
	assert.Equal(t, []string{"111111111111111111", "222222222222222222", "333333333333333333"}, got)
	assert.Empty(t, ParseMentions("nobody"))
}
