// Package credits holds the /credits command group.
package credits

import (
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
)

type handlers struct {
	svc *services.Services
}

// Register registers all credit commands as /credits subcommands
func Register(client *discord.ExtendedClient, svc *services.Services) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"credits",
		"Créditos y recompensas",
		h.balanceCommand(),
		h.dailyCommand(),
		h.weeklyCommand(),
		h.transferCommand(),
		h.leaderboardCommand(),
		h.gambleCommand(),
		h.bulkGrantCommand(),
		h.addCommand(),
		h.removeCommand(),
		h.adminCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}
