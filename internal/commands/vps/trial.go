package vps

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

func (h *handlers) trialCommand() *discord.Command {
	return discord.NewCommand(
		"trial",
		"Reclama tu VPS de prueba de 3 días",
		"vps",
		h.trial,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Otorga la prueba a otro miembro (solo el dueño del bot)",
	})
}

// trialTarget picks the account that receives the trial. Only the bot owner
// may name someone else.
func trialTarget(caller string, member *discordgo.User, ownerID string) (string, bool) {
	if member == nil || member.ID == caller {
		return caller, true
	}
	if ownerID == "" || caller != ownerID {
		return "", false
	}
	return member.ID, true
}

func (h *handlers) trial(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("vps.trial")()

		user := ctx.User()
		target, ok := trialTarget(user.ID, ctx.GetUserOption("usuario"), h.svc.Config.OwnerID)
		if !ok {
			ctx.ReplyEphemeral("⛔ Solo el dueño del bot puede otorgar pruebas a otros miembros.")
			return
		}

		id, deadline, err := h.svc.Registry.StartTrial(target)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}

		h.svc.Engine.ResourceCreated(id, target, true)

		if target != user.ID {
			logger.Info(fmt.Sprintf("%s otorgó el VPS de prueba #%s a %s", user.Username, id, target), "Commands")
			ctx.Reply(fmt.Sprintf(
				"🎁 VPS de prueba **#%s** otorgado a <@%s> (3 días). Expira %s.",
				id, target, services.Timestamp(deadline),
			))
			return
		}

		logger.Info(fmt.Sprintf("%s reclamó el VPS de prueba #%s", user.Username, id), "Commands")
		ctx.Reply(fmt.Sprintf(
			"🎁 VPS de prueba **#%s** creado. Recibiste **%d** créditos de bienvenida.\nExpira %s.",
			id, h.svc.Config.TrialCredits, services.Timestamp(deadline),
		))
	}()
	return nil
}
