// Package events provides event handlers for message events
package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

// Mentions reports whether the message mentions the user botID.
func Mentions(m *discordgo.Message, botID string) bool {
	for _, mention := range m.Mentions {
		if mention.ID == botID {
			return true
		}
	}
	return false
}

// onMessageCreate answers a mention of the bot with the welcome embed
func onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || s.State == nil || s.State.User == nil {
		return
	}
	if !Mentions(m.Message, s.State.User.ID) {
		return
	}

	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, WelcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando respuesta: %v", err), "Message")
	}
}
