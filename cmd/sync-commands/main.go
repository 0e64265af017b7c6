// Package main provides a utility to sync Discord slash commands.
// This removes stale commands from Discord and ensures only currently-defined commands are registered.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List all registered commands (global or guild)
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kjfrm085feather/vps-bot/internal/commands"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

func main() {
	listCmd := flag.Bool("list", false, "List all registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (defaults to devGuildId for dev commands)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{ErrorWebhook: cfg.ErrorWebhook})
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "SyncCommands")
		os.Exit(1)
	}

	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", "SyncCommands")

	// Handlers never run here; only the definitions are needed.
	commands.RegisterAll(client, &services.Services{Config: cfg})

	appID := client.Session.State.User.ID
	switch {
	case *listCmd:
		listCommands(client, appID, *guildID)
	case *cleanCmd:
		if err := client.CommandHandler.Unregister(appID, *guildID); err != nil {
			logger.Error(fmt.Sprintf("Error eliminando comandos: %v", err), "SyncCommands")
			os.Exit(1)
		}
	default:
		target := *guildID
		if target == "" {
			target = cfg.DevGuildID
		}
		logger.Info("🔄 Sincronizando comandos...", "SyncCommands")
		if err := client.CommandHandler.Sync(appID, target); err != nil {
			logger.Error(fmt.Sprintf("Error sincronizando comandos: %v", err), "SyncCommands")
			os.Exit(1)
		}
	}

	logger.Success("Operación completada exitosamente", "SyncCommands")
}

// listCommands lists all commands registered with Discord
func listCommands(client *discord.ExtendedClient, appID, guildID string) {
	if guildID != "" {
		logger.Info(fmt.Sprintf("Obteniendo comandos del servidor: %s", guildID), "SyncCommands")
	} else {
		logger.Info("Obteniendo comandos globales", "SyncCommands")
	}

	cmds, err := client.CommandHandler.Registered(appID, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), "SyncCommands")
		return
	}
	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", "SyncCommands")
		return
	}

	logger.Info(fmt.Sprintf("Comandos encontrados: %d", len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
}
