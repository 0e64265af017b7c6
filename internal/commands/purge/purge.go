// Package purge holds the /purge command group.
package purge

import (
	"context"
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

// ReactionOptions are added to the purge announcement. Reacting with any
// of them protects the reacting account for the window.
var ReactionOptions = []string{
	"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟",
	"🅰️", "🅱️", "🆎", "🆑", "🔵", "🟢", "🟡", "🔴", "⚫", "⚪",
}

type handlers struct {
	svc *services.Services
}

// Register registers all purge commands as /purge subcommands
func Register(client *discord.ExtendedClient, svc *services.Services) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"purge",
		"Purga de VPS inactivos",
		h.startCommand(),
		h.stopCommand(),
		h.infoCommand(),
		h.protectCommand(),
		h.unprotectCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}

func (h *handlers) startCommand() *discord.Command {
	return discord.NewCommand("start", "Inicia una purga de VPS no protegidos", "purge", h.start).OwnerOnly()
}

// StartEmbed announces a purge window.
func StartEmbed(initiator string, endTS int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔔 Purga iniciada",
		Description: fmt.Sprintf("Purga iniciada por <@%s>. La ventana de protección termina %s.", initiator, services.Timestamp(endTS)),
		Color:       0xE67E22,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Qué pasa", Value: "Los VPS no protegidos serán eliminados. Protégete con una reacción o pide ayuda a un administrador.", Inline: false},
			{Name: "Reacciones", Value: "Reacciona con cualquiera de los emojis de abajo para quedar protegido 72 horas.", Inline: false},
		},
	}
}

func (h *handlers) start(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("purge.start")()

		if h.svc.Registry.PurgeInfo().Window.SweepPending {
			ctx.ReplyEphemeral(services.Describe(registry.ErrPurgePending))
			return
		}

		channelID := h.svc.Config.PurgeChannelID
		if channelID == "" {
			channelID = ctx.Interaction.ChannelID
		}
		ctx.Defer()

		endTS := h.svc.Registry.Now() + models.ProtectionWindow
		msg, err := ctx.Session.ChannelMessageSendEmbed(channelID, StartEmbed(ctx.User().ID, endTS))
		if err != nil {
			logger.Error(fmt.Sprintf("No se pudo anunciar la purga en %s: %v", channelID, err), "Commands")
			ctx.EditReply("❌ No pude publicar el anuncio de la purga.")
			return
		}

		opCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		window, result, err := h.svc.Engine.StartPurge(opCtx, models.Snowflake(channelID), models.Snowflake(msg.ID))
		if err != nil {
			_ = ctx.Session.ChannelMessageDelete(channelID, msg.ID)
			ctx.EditReply(services.Describe(err))
			return
		}

		for _, e := range ReactionOptions {
			if err := ctx.Session.MessageReactionAdd(channelID, msg.ID, e); err != nil {
				logger.Debug(fmt.Sprintf("No se pudo añadir la reacción %s: %v", e, err), "Commands")
			}
		}

		ctx.EditReply(fmt.Sprintf(
			"🧹 Purga iniciada. Eliminados ahora: %s. La purga final será %s.",
			removedList(result.Removed), services.Timestamp(window.EndTS),
		))
	}()
	return nil
}

func removedList(ids []string) string {
	if len(ids) == 0 {
		return "ninguno"
	}
	return strings.Join(ids, ", ")
}

func (h *handlers) stopCommand() *discord.Command {
	return discord.NewCommand("stop", "Detiene la purga y cancela la purga final", "purge", h.stop).OwnerOnly()
}

func (h *handlers) stop(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("purge.stop")()

		if !h.svc.Registry.StopPurge() {
			ctx.ReplyEphemeral("ℹ️ No hay ninguna purga activa.")
			return
		}
		logger.Info(fmt.Sprintf("%s detuvo la purga", ctx.User().Username), "Commands")
		ctx.Reply("🛑 Purga detenida. La purga final no se ejecutará.")
	}()
	return nil
}

func (h *handlers) infoCommand() *discord.Command {
	return discord.NewCommand("info", "Estado de la purga", "purge", h.info)
}

// InfoEmbed renders the purge state.
func InfoEmbed(status registry.PurgeStatus) *discordgo.MessageEmbed {
	w := status.Window
	active := "No"
	if w.Active {
		active = "Sí"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Activa", Value: active, Inline: true},
		{Name: "VPS protegidos", Value: fmt.Sprintf("%d", len(w.ProtectedVPS)), Inline: true},
		{Name: "Usuarios protegidos", Value: fmt.Sprintf("%d", len(w.ProtectedUsers)), Inline: true},
		{Name: "Protecciones por reacción", Value: fmt.Sprintf("%d", status.ActiveProtections), Inline: true},
	}
	if w.SweepPending && w.EndTS > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Purga final", Value: services.Timestamp(w.EndTS), Inline: true})
	}
	if len(status.ProtectedAccounts) > 0 {
		mentions := make([]string, len(status.ProtectedAccounts))
		for i, id := range status.ProtectedAccounts {
			mentions[i] = "<@" + id + ">"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Cuentas protegidas", Value: strings.Join(mentions, " ")})
	}
	return &discordgo.MessageEmbed{Title: "🧹 Estado de la purga", Color: 0x3498DB, Fields: fields}
}

func (h *handlers) info(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("purge.info")()
		ctx.ReplyEphemeralEmbed(InfoEmbed(h.svc.Registry.PurgeInfo()))
	}()
	return nil
}

func targetOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "vps",
			Description: "Número del VPS",
		},
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario cuyos VPS se protegen",
		},
	}
}

func (h *handlers) protectCommand() *discord.Command {
	return discord.NewCommand("protect", "Protege un VPS o un usuario de la purga", "purge", h.protect).
		WithOptions(targetOptions()...).
		AdminOnly()
}

func (h *handlers) protect(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("purge.protect")()
		h.editTarget(ctx, h.svc.Registry.ProtectResource, h.svc.Registry.ProtectAccount, "🛡️ %s protegido.", "ℹ️ %s ya estaba protegido.")
	}()
	return nil
}

func (h *handlers) unprotectCommand() *discord.Command {
	return discord.NewCommand("unprotect", "Retira la protección de un VPS o usuario", "purge", h.unprotect).
		WithOptions(targetOptions()...).
		AdminOnly()
}

func (h *handlers) unprotect(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("purge.unprotect")()
		h.editTarget(ctx, h.svc.Registry.UnprotectResource, h.svc.Registry.UnprotectAccount, "🔓 %s ya no está protegido.", "ℹ️ %s no estaba protegido.")
	}()
	return nil
}

func (h *handlers) editTarget(ctx *discord.CommandContext, onVPS, onUser func(string) bool, changed, unchanged string) {
	var label string
	var ok bool
	switch {
	case ctx.GetStringOption("vps") != "":
		id := ctx.GetStringOption("vps")
		label = "VPS #" + id
		ok = onVPS(id)
	case ctx.GetUserOption("usuario") != nil:
		id := ctx.GetUserOption("usuario").ID
		label = fmt.Sprintf("<@%s>", id)
		ok = onUser(id)
	default:
		ctx.ReplyEphemeral("❌ Indica un VPS o un usuario.")
		return
	}
	if ok {
		ctx.Reply(fmt.Sprintf(changed, label))
		return
	}
	ctx.ReplyEphemeral(fmt.Sprintf(unchanged, label))
}
