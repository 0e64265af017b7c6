package discord

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/pkg/lifecycle"
)

// reactionPageSize is the largest page the reactions endpoint returns.
const reactionPageSize = 100

// chatAPI is the part of *discordgo.Session the Messenger uses.
type chatAPI interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
}

// Messenger carries the resolution routines' chat side effects over a
// Discord session.
type Messenger struct {
	api  chatAPI
	self func() string
}

var _ lifecycle.Messenger = (*Messenger)(nil)

// NewMessenger creates a Messenger on the client's session.
func NewMessenger(c *ExtendedClient) *Messenger {
	return &Messenger{
		api: c.Session,
		self: func() string {
			if c.Session.State == nil || c.Session.State.User == nil {
				return ""
			}
			return c.Session.State.User.ID
		},
	}
}

// Notify sends a direct message to accountID.
func (m *Messenger) Notify(ctx context.Context, accountID, text string) error {
	ch, err := m.api.UserChannelCreate(accountID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", accountID, err)
	}
	if _, err := m.api.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", accountID, err)
	}
	return nil
}

// Reactors lists every non-bot account that reacted with marker, paging
// through the reactions endpoint.
func (m *Messenger) Reactors(ctx context.Context, channelID, messageID, marker string) ([]string, error) {
	if _, err := m.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	self := m.self()
	seen := make(map[string]struct{})
	var ids []string
	after := ""
	for {
		users, err := m.api.MessageReactions(channelID, messageID, marker, reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list reactions on %s: %w", messageID, err)
		}
		for _, u := range users {
			if u.Bot || u.ID == self {
				continue
			}
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			ids = append(ids, u.ID)
		}
		if len(users) < reactionPageSize {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

// EditSummary rewrites the giveaway embed with its participant count and
// winner.
func (m *Messenger) EditSummary(ctx context.Context, channelID, messageID string, summary lifecycle.GiveawaySummary) error {
	msg, err := m.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	embed := SummaryEmbed(msg, summary)
	if _, err := m.api.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit giveaway %s: %w", messageID, err)
	}
	return nil
}

// Announce posts text to channelID.
func (m *Messenger) Announce(ctx context.Context, channelID, text string) error {
	if _, err := m.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("announce in %s: %w", channelID, err)
	}
	return nil
}

// SummaryEmbed returns the final giveaway embed built on top of the
// message's first embed.
func SummaryEmbed(msg *discordgo.Message, summary lifecycle.GiveawaySummary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "🎉 Sorteo de créditos", Color: 0x5865F2}
	if msg != nil && len(msg.Embeds) > 0 {
		base := *msg.Embeds[0]
		embed = &base
	}

	winner := "Nadie participó"
	if summary.WinnerID != "" {
		winner = fmt.Sprintf("<@%s> (+%d créditos)", summary.WinnerID, summary.Amount)
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Participantes", Value: strconv.Itoa(summary.Participants), Inline: true},
		{Name: "Ganador", Value: winner, Inline: true},
	}
	embed.Color = 0x57F287
	embed.Timestamp = time.Now().Format(time.RFC3339)
	return embed
}
