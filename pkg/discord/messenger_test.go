package discord

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	messages  map[string]*discordgo.Message
	reactions []*discordgo.User
	pages     []string
	sent      map[string][]string
	edited    *discordgo.MessageEmbed
	dmFail    bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{messages: make(map[string]*discordgo.Message), sent: make(map[string][]string)}
}

func (f *fakeChat) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.dmFail {
		return nil, fmt.Errorf("cannot send messages to this user")
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeChat) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeChat) ChannelMessage(_, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message")
	}
	return msg, nil
}

func (f *fakeChat) ChannelMessageEditEmbed(_, _ string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edited = embed
	return &discordgo.Message{}, nil
}

func (f *fakeChat) MessageReactions(_, _, _ string, limit int, _, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.User, error) {
	f.pages = append(f.pages, afterID)
	start := 0
	if afterID != "" {
		for i, u := range f.reactions {
			if u.ID == afterID {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(f.reactions) {
		end = len(f.reactions)
	}
	return f.reactions[start:end], nil
}

func newTestMessenger(f *fakeChat) *Messenger {
	return &Messenger{api: f, self: func() string { return "bot" }}
}

func TestReactorsPagesAndFiltersBots(t *testing.T) {
	f := newFakeChat()
	f.messages["m1"] = &discordgo.Message{ID: "m1"}
	f.reactions = append(f.reactions, &discordgo.User{ID: "bot"}, &discordgo.User{ID: "other-bot", Bot: true})
	for i := 0; i < 150; i++ {
		f.reactions = append(f.reactions, &discordgo.User{ID: fmt.Sprintf("u%03d", i)})
	}

	ids, err := newTestMessenger(f).Reactors(context.Background(), "c1", "m1", "🎉")
	require.NoError(t, err)
	assert.Len(t, ids, 150)
	assert.NotContains(t, ids, "bot")
	assert.NotContains(t, ids, "other-bot")
	assert.Equal(t, []string{"", "u097"}, f.pages)
}

func TestReactorsFailsWhenMessageIsGone(t *testing.T) {
	_, err := newTestMessenger(newFakeChat()).Reactors(context.Background(), "c1", "missing", "🎉")
	assert.Error(t, err)
}

func TestNotifyOpensDM(t *testing.T) {
	f := newFakeChat()
	m := newTestMessenger(f)

	require.NoError(t, m.Notify(context.Background(), "42", "hola"))
	assert.Equal(t, []string{"hola"}, f.sent["dm-42"])

	f.dmFail = true
	assert.Error(t, m.Notify(context.Background(), "42", "otra vez"))
}

func TestEditSummaryKeepsOriginalEmbed(t *testing.T) {
	f := newFakeChat()
	f.messages["m1"] = &discordgo.Message{ID: "m1", Embeds: []*discordgo.MessageEmbed{{Title: "Sorteo de 100 créditos"}}}

	summary := lifecycle.GiveawaySummary{Participants: 3, WinnerID: "7", Amount: 100}
	require.NoError(t, newTestMessenger(f).EditSummary(context.Background(), "c1", "m1", summary))

	require.NotNil(t, f.edited)
	assert.Equal(t, "Sorteo de 100 créditos", f.edited.Title)
	require.Len(t, f.edited.Fields, 2)
	assert.Equal(t, "3", f.edited.Fields[0].Value)
	assert.Equal(t, "<@7> (+100 créditos)", f.edited.Fields[1].Value)
	assert.Empty(t, f.messages["m1"].Embeds[0].Fields)
}

func TestSummaryEmbedWithoutWinner(t *testing.T) {
	embed := SummaryEmbed(nil, lifecycle.GiveawaySummary{})
	assert.Equal(t, "0", embed.Fields[0].Value)
	assert.Equal(t, "Nadie participó", embed.Fields[1].Value)
}

func TestAnnounce(t *testing.T) {
	f := newFakeChat()
	require.NoError(t, newTestMessenger(f).Announce(context.Background(), "c9", "purga"))
	assert.Equal(t, []string{"purga"}, f.sent["c9"])
}
