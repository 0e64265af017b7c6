// Package commands wires every command group into the Discord client.
// Commands are organized in subdirectories by category.
package commands

import (
	"github.com/kjfrm085feather/vps-bot/internal/commands/credits"
	"github.com/kjfrm085feather/vps-bot/internal/commands/dev"
	"github.com/kjfrm085feather/vps-bot/internal/commands/giveaway"
	"github.com/kjfrm085feather/vps-bot/internal/commands/promo"
	"github.com/kjfrm085feather/vps-bot/internal/commands/purge"
	"github.com/kjfrm085feather/vps-bot/internal/commands/utils"
	"github.com/kjfrm085feather/vps-bot/internal/commands/vps"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, svc *services.Services) {
	// Utility commands (/ping, /help, /status)
	utils.Register(client, svc)

	// VPS lifecycle (/vps ...)
	vps.Register(client, svc)

	// Credits and rewards (/credits ...)
	credits.Register(client, svc)

	// Promo codes (/promo ...)
	promo.Register(client, svc)

	// Giveaways (/giveaway start)
	giveaway.Register(client, svc)

	// Purge window (/purge ...)
	purge.Register(client, svc)

	// Dev commands (/dev eval), dev guild only
	dev.Register(client, svc)
}
