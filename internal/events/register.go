// Package events provides a registry for organizing bot events.
// Events are organized by category (ready, guild, message, reaction).
package events

import (
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, svc *services.Services) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	// Ready event (bot startup)
	client.EventHandler.OnReady(onReady)
	client.EventHandler.RegisterEvent(onDisconnect)
	client.EventHandler.RegisterEvent(onResumed)

	// Guild events (server join/leave)
	client.EventHandler.RegisterEvent(onGuildCreate)
	client.EventHandler.RegisterEvent(onGuildDelete)

	// Message events (mentions)
	client.EventHandler.RegisterEvent(onMessageCreate)

	// Purge protection by reaction
	client.EventHandler.OnMessageReactionAdd(onReactionAdd(svc.Registry))

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
