package vps

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
)

func idOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Número del VPS",
		Required:    true,
	}
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    true,
	}
}

func intOption(name, description string) *discordgo.ApplicationCommandOption {
	minValue := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    true,
		MinValue:    &minValue,
	}
}

func (h *handlers) createCommand() *discord.Command {
	return discord.NewCommand(
		"create",
		"Crea un VPS personalizado para un usuario",
		"vps",
		h.create,
	).WithOptions(
		userOption("Dueño del VPS"),
		intOption("cpu", "Núcleos de CPU"),
		intOption("ram", "RAM en GB"),
		intOption("storage", "Almacenamiento en GB"),
	).AdminOnly()
}

func (h *handlers) create(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.create")()

		owner := ctx.GetUserOption("usuario")
		if owner == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		cpu := int(ctx.GetIntOption("cpu"))
		ram := int(ctx.GetIntOption("ram"))
		storage := int(ctx.GetIntOption("storage"))

		id, err := h.svc.Registry.CreateResource(owner.ID, cpu, ram, storage)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		_ = h.svc.Registry.Rename(id, fmt.Sprintf("custom-%s", id), nil)
		h.svc.Engine.ResourceCreated(id, owner.ID, false)

		logger.Info(fmt.Sprintf("%s creó el VPS #%s para %s", ctx.User().Username, id, owner.ID), "Commands")
		ctx.Reply(fmt.Sprintf("✅ VPS **#%s** creado para <@%s> (%d CPU, %dGB RAM, %dGB almacenamiento).", id, owner.ID, cpu, ram, storage))
	}()
	return nil
}

func (h *handlers) deleteCommand() *discord.Command {
	return discord.NewCommand(
		"delete",
		"Elimina uno de tus VPS",
		"vps",
		h.delete,
	).WithOptions(idOption())
}

func (h *handlers) delete(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.delete")()

		id := ctx.GetStringOption("id")
		if _, err := h.svc.Registry.DeleteResource(id, h.svc.OwnerOf(ctx.User().ID)); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("🗑️ VPS **#%s** eliminado.", id))
	}()
	return nil
}

func (h *handlers) shareCommand() *discord.Command {
	return discord.NewCommand(
		"share",
		"Comparte un VPS con otro usuario",
		"vps",
		h.share,
	).WithOptions(idOption(), userOption("Usuario con quien compartir"))
}

func (h *handlers) share(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.share")()

		id := ctx.GetStringOption("id")
		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		if err := h.svc.Registry.ShareWith(id, target.ID, h.svc.OwnerOf(ctx.User().ID)); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("🤝 VPS **#%s** compartido con <@%s>.", id, target.ID))
	}()
	return nil
}

func (h *handlers) unshareCommand() *discord.Command {
	return discord.NewCommand(
		"unshare",
		"Deja de compartir un VPS",
		"vps",
		h.unshare,
	).WithOptions(idOption(), userOption("Usuario a retirar"))
}

func (h *handlers) unshare(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.unshare")()

		id := ctx.GetStringOption("id")
		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		if err := h.svc.Registry.Unshare(id, target.ID, h.svc.OwnerOf(ctx.User().ID)); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("🔒 <@%s> ya no tiene acceso al VPS **#%s**.", target.ID, id))
	}()
	return nil
}

func (h *handlers) statusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Cambia el estado de un VPS",
		"vps",
		h.status,
	).WithOptions(idOption(), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "estado",
		Description: "Nuevo estado",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Activo", Value: string(models.StatusActive)},
			{Name: "Detenido", Value: string(models.StatusStopped)},
			{Name: "Suspendido", Value: string(models.StatusSuspended)},
		},
	})
}

func (h *handlers) status(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.status")()

		id := ctx.GetStringOption("id")
		status := models.Status(ctx.GetStringOption("estado"))
		actor := ctx.User().ID

		// Suspension is an admin action; owners may only start or stop.
		allow := h.svc.CanManage(actor)
		if status == models.StatusSuspended && !h.svc.IsPrivileged(actor) {
			ctx.ReplyEphemeral("⛔ Solo un administrador puede suspender un VPS.")
			return
		}
		if err := h.svc.Registry.SetStatus(id, status, allow); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("%s VPS **#%s** ahora está **%s**.", statusEmoji(status), id, status))
	}()
	return nil
}

func statusEmoji(s models.Status) string {
	switch s {
	case models.StatusActive:
		return "🟢"
	case models.StatusStopped:
		return "🔴"
	case models.StatusSuspended:
		return "⛔"
	case models.StatusTrial:
		return "🧪"
	default:
		return "⚪"
	}
}

func (h *handlers) infoCommand() *discord.Command {
	return discord.NewCommand(
		"info",
		"Muestra los detalles de un VPS",
		"vps",
		h.info,
	).WithOptions(idOption())
}

func (h *handlers) info(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.info")()

		id := ctx.GetStringOption("id")
		res, ok := h.svc.Registry.Resource(id)
		if !ok {
			ctx.ReplyEphemeral("❌ Ese VPS no existe.")
			return
		}
		if allow := h.svc.CanManage(ctx.User().ID); allow != nil && !allow(res) {
			ctx.ReplyEphemeral(services.Describe(registry.ErrForbidden))
			return
		}
		ctx.ReplyEphemeralEmbed(ResourceEmbed(res))
	}()
	return nil
}

// ResourceEmbed renders one resource.
func ResourceEmbed(res *models.Resource) *discordgo.MessageEmbed {
	title := fmt.Sprintf("🖥️ VPS #%s", res.ID)
	if res.Name != "" {
		title += " · " + res.Name
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Dueño", Value: fmt.Sprintf("<@%s>", res.Owner), Inline: true},
		{Name: "Estado", Value: fmt.Sprintf("%s %s", statusEmoji(res.Status), res.Status), Inline: true},
		{Name: "Recursos", Value: fmt.Sprintf("⚡ CPU: %d\n💾 RAM: %dGB\n📀 Almacenamiento: %dGB", res.CPU, res.RAM, res.Storage), Inline: false},
	}
	if deadline, ok := res.TrialDeadline(); ok {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Prueba", Value: "Expira " + services.Timestamp(deadline), Inline: true})
	}
	if len(res.SharedWith) > 0 {
		mentions := make([]string, 0, len(res.SharedWith))
		for _, id := range res.SharedWith {
			mentions = append(mentions, fmt.Sprintf("<@%s>", id))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Compartido con", Value: strings.Join(mentions, ", "), Inline: false})
	}
	if len(res.IPs) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "IPs", Value: strings.Join(res.IPs, ", "), Inline: true})
	}
	if res.DockerName != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Contenedor", Value: res.DockerName, Inline: true})
	}
	if res.DockerError != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Error de aprovisionamiento", Value: res.DockerError, Inline: false})
	}
	if res.StopReason != "" && res.Status == models.StatusStopped {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Motivo de la detención", Value: res.StopReason, Inline: false})
	}
	if n := len(res.Snapshots); n > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Snapshots", Value: fmt.Sprintf("%d (último: `%s`)", n, res.Snapshots[n-1].ID), Inline: true})
	}

	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     0x5865F2,
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: "Creado " + res.CreatedAt},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (h *handlers) listCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Lista los VPS a los que tienes acceso",
		"vps",
		h.list,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Usuario a consultar (solo administradores)",
	})
}

func (h *handlers) list(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.list")()

		account := ctx.User().ID
		if target := ctx.GetUserOption("usuario"); target != nil && target.ID != account {
			if !h.svc.IsPrivileged(account) {
				ctx.ReplyEphemeral("⛔ Solo un administrador puede ver los VPS de otros usuarios.")
				return
			}
			account = target.ID
		}

		resources := h.svc.Registry.ResourcesOf(account)
		if len(resources) == 0 {
			ctx.ReplyEphemeral("📭 No hay VPS.")
			return
		}
		ctx.ReplyEphemeral(ListText(account, resources))
	}()
	return nil
}

// ListText renders one line per resource, marking the shared ones.
func ListText(account string, resources []*models.Resource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🖥️ **VPS de <@%s>** (%d)\n", account, len(resources))
	for _, r := range resources {
		fmt.Fprintf(&b, "• #%s %s %s · %d CPU / %dGB / %dGB", r.ID, statusEmoji(r.Status), r.Status, r.CPU, r.RAM, r.Storage)
		if r.Owner != account {
			fmt.Fprintf(&b, " · compartido por <@%s>", r.Owner)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (h *handlers) snapshotCommand() *discord.Command {
	return discord.NewCommand(
		"snapshot",
		"Registra un snapshot de un VPS",
		"vps",
		h.snapshot,
	).WithOptions(idOption(), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tipo",
		Description: "Tipo de snapshot",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Snapshot", Value: "snapshot"},
			{Name: "Backup", Value: "backup"},
		},
	})
}

func (h *handlers) snapshot(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.snapshot")()

		id := ctx.GetStringOption("id")
		kind := ctx.GetStringOption("tipo")
		if kind == "snapshot" {
			kind = ""
		}
		sid, err := h.svc.Registry.AddSnapshot(id, kind, h.svc.CanManage(ctx.User().ID))
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("📸 Snapshot `%s` registrado para el VPS **#%s**.", sid, id))
	}()
	return nil
}
