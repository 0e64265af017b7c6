// Package vps holds the /vps command group.
package vps

import (
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
)

type handlers struct {
	svc *services.Services
}

// Register registers all VPS commands as /vps subcommands
func Register(client *discord.ExtendedClient, svc *services.Services) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"vps",
		"Gestiona tus VPS",
		h.trialCommand(),
		h.createCommand(),
		h.deleteCommand(),
		h.shareCommand(),
		h.unshareCommand(),
		h.statusCommand(),
		h.infoCommand(),
		h.listCommand(),
		h.snapshotCommand(),
		h.restoreCommand(),
		h.noteCommand(),
		h.notesCommand(),
		h.removeNoteCommand(),
		h.purgeSnapshotsCommand(),
		h.editCommand(),
		h.ipCommand(),
		h.stopAllCommand(),
		h.maintenanceCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}
