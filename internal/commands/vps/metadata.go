package vps

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

func stringOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func (h *handlers) restoreCommand() *discord.Command {
	return discord.NewCommand(
		"restore",
		"Restaura un VPS desde uno de sus snapshots",
		"vps",
		h.restore,
	).WithOptions(idOption(), stringOption("snapshot", "Id del snapshot"))
}

func (h *handlers) restore(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.restore")()

		id := ctx.GetStringOption("id")
		sid := ctx.GetStringOption("snapshot")
		if err := h.svc.Registry.Restore(id, sid, h.svc.CanManage(ctx.User().ID)); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("♻️ VPS **#%s** restaurado desde `%s`.", id, sid))
	}()
	return nil
}

func (h *handlers) noteCommand() *discord.Command {
	return discord.NewCommand(
		"note",
		"Agrega una nota a un VPS",
		"vps",
		h.note,
	).WithOptions(idOption(), stringOption("texto", "Contenido de la nota"))
}

func (h *handlers) note(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.note")()

		id := ctx.GetStringOption("id")
		user := ctx.User()
		nid, err := h.svc.Registry.AddNote(id, user.ID, ctx.GetStringOption("texto"), h.svc.CanManage(user.ID))
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.ReplyEphemeral(fmt.Sprintf("📝 Nota `%s` agregada al VPS **#%s**.", nid, id))
	}()
	return nil
}

func (h *handlers) notesCommand() *discord.Command {
	return discord.NewCommand(
		"notes",
		"Muestra las notas de un VPS",
		"vps",
		h.notes,
	).WithOptions(idOption())
}

// NotesText renders the notes of a resource, one per line.
func NotesText(notes []models.Note) string {
	if len(notes) == 0 {
		return "📝 Sin notas."
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "`%s` por <@%s> %s: %s\n", n.ID, n.Author, services.Timestamp(n.TS), n.Note)
	}
	return b.String()
}

func (h *handlers) notes(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.notes")()

		notes, err := h.svc.Registry.Notes(ctx.GetStringOption("id"), h.svc.CanManage(ctx.User().ID))
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.ReplyEphemeral(NotesText(notes))
	}()
	return nil
}

func (h *handlers) removeNoteCommand() *discord.Command {
	return discord.NewCommand(
		"removenote",
		"Elimina una nota de un VPS",
		"vps",
		h.removeNote,
	).WithOptions(idOption(), stringOption("nota", "Id de la nota")).OwnerOnly()
}

func (h *handlers) removeNote(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.removenote")()

		id := ctx.GetStringOption("id")
		nid := ctx.GetStringOption("nota")
		if err := h.svc.Registry.RemoveNote(id, nid, nil); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.ReplyEphemeral(fmt.Sprintf("🗑️ Nota `%s` eliminada del VPS **#%s**.", nid, id))
	}()
	return nil
}

func (h *handlers) purgeSnapshotsCommand() *discord.Command {
	minValue := 1.0
	return discord.NewCommand(
		"purgesnapshots",
		"Elimina los snapshots más antiguos que N días",
		"vps",
		h.purgeSnapshots,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "dias",
		Description: "Antigüedad mínima en días (30 por defecto)",
		MinValue:    &minValue,
	}).OwnerOnly()
}

func (h *handlers) purgeSnapshots(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.purgesnapshots")()

		days := ctx.GetIntOption("dias")
		if days <= 0 {
			days = 30
		}
		n := h.svc.Registry.PurgeSnapshots(time.Duration(days) * 24 * time.Hour)
		logger.Info(fmt.Sprintf("%s eliminó %d snapshots de más de %d días", ctx.User().Username, n, days), "Commands")
		ctx.Reply(fmt.Sprintf("🧹 %d snapshots de más de %d días eliminados.", n, days))
	}()
	return nil
}

func (h *handlers) ipCommand() *discord.Command {
	return discord.NewCommand(
		"ip",
		"Asigna o libera una IP",
		"vps",
		h.ip,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "accion",
			Description: "Qué hacer con la IP",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Asignar", Value: "assign"},
				{Name: "Liberar", Value: "release"},
			},
		},
		stringOption("ip", "Dirección IP"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "id",
			Description: "Número del VPS (solo para asignar)",
		},
	).AdminOnly()
}

func (h *handlers) ip(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.ip")()

		addr := ctx.GetStringOption("ip")
		if net.ParseIP(addr) == nil {
			ctx.ReplyEphemeral("❌ Dirección IP no válida.")
			return
		}

		switch ctx.GetStringOption("accion") {
		case "assign":
			id := ctx.GetStringOption("id")
			if id == "" {
				ctx.ReplyEphemeral("❌ Indica el VPS al que asignar la IP.")
				return
			}
			if err := h.svc.Registry.AssignAddress(id, addr); err != nil {
				ctx.ReplyEphemeral(services.Describe(err))
				return
			}
			logger.Info(fmt.Sprintf("IP %s asignada al VPS #%s", addr, id), "Commands")
			ctx.Reply(fmt.Sprintf("🌐 IP `%s` asignada al VPS **#%s**.", addr, id))
		default:
			if err := h.svc.Registry.ReleaseAddress(addr); err != nil {
				ctx.ReplyEphemeral(services.Describe(err))
				return
			}
			ctx.Reply(fmt.Sprintf("🌐 IP `%s` liberada.", addr))
		}
	}()
	return nil
}
