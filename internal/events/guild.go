// Package events provides event handlers for guild (server) events
package events

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

// WelcomeEmbed is posted to the system channel of a guild that just added
// the bot.
func WelcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy el bot de **VPS**. Usa `/help` para ver todos mis comandos.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🖥️ Prueba", Value: "Reclama un VPS de 72h con `/vps trial`", Inline: true},
			{Name: "💰 Créditos", Value: "Reclama tu recompensa con `/credits daily`", Inline: true},
			{Name: "❓ Ayuda", Value: "Usa `/help` para más información", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "¡Disfruta tu VPS!"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// onGuildCreate is called when the bot joins a server. GuildCreate also
// fires for every guild on connect, so older joins are skipped.
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.JoinedAt.Before(time.Now().Add(-10 * time.Second)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, WelcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}
