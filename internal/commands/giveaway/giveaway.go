// Package giveaway holds the /giveaway command group.
package giveaway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

type handlers struct {
	svc *services.Services
}

// Register registers /giveaway start
func Register(client *discord.ExtendedClient, svc *services.Services) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"giveaway",
		"Sorteos de créditos",
		h.startCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}

func (h *handlers) startCommand() *discord.Command {
	minAmount := 1.0
	return discord.NewCommand(
		"start",
		"Inicia un sorteo de créditos",
		"giveaway",
		h.start,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal",
			Description:  "Canal del sorteo",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "cantidad",
			Description: "Créditos para el ganador",
			Required:    true,
			MinValue:    &minAmount,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duracion",
			Description: "Duración: 30s, 10m, 2h, 1d, 1w o 1mo",
			Required:    true,
		},
	).OwnerOnly()
}

// AnnouncementEmbed is the message members react to.
func AnnouncementEmbed(amount, endTS int64, hostID, marker string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💰 Sorteo de créditos",
		Description: fmt.Sprintf("Premio: **%d** créditos\nTermina %s\nOrganiza: <@%s>\n\nReacciona con %s para participar.", amount, services.Timestamp(endTS), hostID, marker),
		Color:       0xE67E22,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Participantes", Value: "0", Inline: false},
		},
	}
}

func (h *handlers) start(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("giveaway.start")()

		duration, err := ParseDuration(ctx.GetStringOption("duracion"))
		if err != nil {
			ctx.ReplyEphemeral("❌ Duración no válida. Usa formatos como 1s 1m 1h 1d 1w 1mo.")
			return
		}
		channel := ctx.GetChannelOption("canal")
		if channel == nil {
			ctx.ReplyEphemeral("❌ Canal no válido.")
			return
		}

		amount := ctx.GetIntOption("cantidad")
		host := ctx.User().ID
		marker := h.svc.Config.GiveawayEmoji
		endTS := h.svc.Registry.Now() + int64(duration.Seconds())

		msg, err := ctx.Session.ChannelMessageSendEmbed(channel.ID, AnnouncementEmbed(amount, endTS, host, marker))
		if err != nil {
			logger.Error(fmt.Sprintf("No se pudo publicar el sorteo en %s: %v", channel.ID, err), "Commands")
			ctx.ReplyEphemeral("❌ No pude publicar el sorteo en ese canal.")
			return
		}
		if err := ctx.Session.MessageReactionAdd(channel.ID, msg.ID, marker); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo reaccionar al sorteo %s: %v", msg.ID, err), "Commands")
		}

		err = h.svc.Registry.CreateGiveaway(models.Giveaway{
			MessageID: models.Snowflake(msg.ID),
			ChannelID: models.Snowflake(channel.ID),
			EndTS:     endTS,
			Amount:    amount,
			HostID:    models.Snowflake(host),
		})
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("🎉 Sorteo iniciado en <#%s> por **%d** créditos. Termina %s.", channel.ID, amount, services.Timestamp(endTS)))
	}()
	return nil
}
