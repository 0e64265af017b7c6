package giveaway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationRejects(t *testing.T) {
	for _, in := range []string{"", "0s", "10", "h", "1y", "-1h", "1 h", "1H", "99999999999999999999d"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			assert.Error(t, err)
		})
	}
}

func TestAnnouncementEmbed(t *testing.T) {
	embed := AnnouncementEmbed(100, 1_700_000_600, "7", "🎉")
	assert.Contains(t, embed.Description, "**100** créditos")
	assert.Contains(t, embed.Description, "<t:1700000600:R>")
	assert.Contains(t, embed.Description, "<@7>")
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Participantes", embed.Fields[0].Name)
}
