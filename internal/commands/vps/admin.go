package vps

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

func (h *handlers) stopAllCommand() *discord.Command {
	return discord.NewCommand(
		"stopall",
		"Detiene todos los VPS que no son de prueba",
		"vps",
		h.stopAll,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "motivo",
		Description: "Motivo de la detención",
	}).OwnerOnly()
}

func (h *handlers) stopAll(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.stopall")()

		reason := ctx.GetStringOption("motivo")
		if reason == "" {
			reason = "Sin motivo"
		}
		n := h.svc.Registry.StopAll(reason)
		logger.Warn(fmt.Sprintf("%s detuvo %d VPS: %s", ctx.User().Username, n, reason), "Commands")
		ctx.Reply(fmt.Sprintf("🛑 %d VPS detenidos: %s", n, reason))
	}()
	return nil
}

func (h *handlers) editCommand() *discord.Command {
	minValue := 1.0
	return discord.NewCommand(
		"edit",
		"Cambia la capacidad de un VPS",
		"vps",
		h.edit,
	).WithOptions(
		idOption(),
		intOption("cpu", "Núcleos de CPU"),
		intOption("ram", "RAM en GB"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "disco",
			Description: "Almacenamiento en GB (se mantiene si se omite)",
			MinValue:    &minValue,
		},
	).OwnerOnly()
}

func (h *handlers) edit(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.edit")()

		id := ctx.GetStringOption("id")
		cpu := int(ctx.GetIntOption("cpu"))
		ram := int(ctx.GetIntOption("ram"))
		if err := h.svc.Registry.EditCapacity(id, cpu, ram, int(ctx.GetIntOption("disco")), nil); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		logger.Info(fmt.Sprintf("%s editó el VPS #%s: %d CPU, %d GB RAM", ctx.User().Username, id, cpu, ram), "Commands")
		ctx.Reply(fmt.Sprintf("🔧 VPS **#%s** actualizado: %d CPU, %d GB RAM.", id, cpu, ram))
	}()
	return nil
}

func (h *handlers) maintenanceCommand() *discord.Command {
	return discord.NewCommand(
		"maintenance",
		"Activa o desactiva el modo mantenimiento",
		"vps",
		h.maintenance,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "activo",
		Description: "Estado del modo mantenimiento",
		Required:    true,
	}).OwnerOnly()
}

func (h *handlers) maintenance(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.maintenance")()

		on := ctx.GetBoolOption("activo")
		h.svc.Registry.SetMaintenance(on)
		if on {
			ctx.Reply("🛠️ Modo mantenimiento **activado**. No se pueden crear VPS.")
			return
		}
		ctx.Reply("✅ Modo mantenimiento **desactivado**.")
	}()
	return nil
}
