// Package discord provides the command handler for loading and registering commands.
package discord

import (
	"fmt"

	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// LoadCommands logs what was registered before the session opens
func (ch *CommandHandler) LoadCommands() error {
	logger.System(fmt.Sprintf("Comandos cargados: %d globales, %d de desarrollo, %d rutas", len(ch.slashCommands), len(ch.slashCommandsDev), ch.client.Commands.Size()), "CommandHandler")
	return nil
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		fullName := name + "." + cmd.Name
		ch.client.Commands.Set(fullName, cmd)

		opt := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		}
		options = append(options, opt)
	}

	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// RegisterCommands overwrites the commands known to Discord with the ones
// loaded in this process, dropping any stale definition.
func (ch *CommandHandler) RegisterCommands() {
	guildID := ""
	if cfg := config.Get(); cfg != nil {
		guildID = cfg.DevGuildID
	}

	logger.Info("🔄 Registrando comandos...", "CommandHandler")
	if err := ch.Sync(ch.client.Session.State.User.ID, guildID); err != nil {
		logger.Error("Error registrando comandos: "+err.Error(), "CommandHandler")
	}
}

// Registered lists the commands Discord holds for appID in one scope. An
// empty guildID means the global scope.
func (ch *CommandHandler) Registered(appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(appID, guildID)
}

// Unregister removes every command of appID in one scope.
func (ch *CommandHandler) Unregister(appID, guildID string) error {
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("unregister commands: %w", err)
	}
	logger.Success("Comandos eliminados.", "CommandHandler")
	return nil
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}

// GlobalCommands returns the global command definitions
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the dev guild command definitions
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

// Sync overwrites the registered commands of appID in one call per scope.
// An empty guildID skips the dev scope.
func (ch *CommandHandler) Sync(appID, guildID string) error {
	global, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, "", ch.slashCommands)
	if err != nil {
		return fmt.Errorf("sync global commands: %w", err)
	}
	logger.Success(fmt.Sprintf("%d comandos globales sincronizados", len(global)), "CommandHandler")

	if guildID == "" || len(ch.slashCommandsDev) == 0 {
		return nil
	}
	dev, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, ch.slashCommandsDev)
	if err != nil {
		return fmt.Errorf("sync dev commands: %w", err)
	}
	logger.Success(fmt.Sprintf("%d comandos de desarrollo sincronizados en %s", len(dev), guildID), "CommandHandler")
	return nil
}
