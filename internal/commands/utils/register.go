// Package utils holds the general purpose commands.
package utils

import (
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
)

// Register registers /ping, /help and /status as top-level commands
func Register(client *discord.ExtendedClient, svc *services.Services) {
	for _, cmd := range []*discord.Command{
		createPingCommand(),
		createHelpCommand(),
		createStatusCommand(svc),
	} {
		client.CommandHandler.RegisterCommand(cmd)
	}
}
