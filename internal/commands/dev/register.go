// Package dev holds the owner-only /dev command group.
package dev

import (
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
)

// Register registers the dev commands as /dev subcommands (only in dev guild)
func Register(client *discord.ExtendedClient, svc *services.Services) {
	group := client.CommandHandler.BuildCommandGroup(
		"dev",
		"Comandos de desarrollo",
		CreateEvalCommand(svc),
	)

	client.CommandHandler.AddDevCommand(group)
}
