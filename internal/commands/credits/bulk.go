package credits

import (
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>|\b(\d{15,20})\b`)

// ParseMentions extracts account ids from user mentions or raw ids, in order
// of appearance.
func ParseMentions(text string) []string {
	var ids []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			ids = append(ids, m[1])
		} else {
			ids = append(ids, m[2])
		}
	}
	return ids
}

func (h *handlers) gambleCommand() *discord.Command {
	return discord.NewCommand(
		"gamble",
		"Apuesta créditos: 45% doble, 5% x10",
		"credits",
		h.gamble,
	).WithOptions(amountOption())
}

func (h *handlers) gamble(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.gamble")()

		user := ctx.User()
		result, err := h.svc.Registry.Gamble(user.ID, ctx.GetIntOption("cantidad"))
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		switch {
		case result.Jackpot:
			ctx.Reply(fmt.Sprintf("🎰 ¡JACKPOT! Ganaste **%d** créditos. Saldo: **%d**.", result.Payout, result.Balance))
		case result.Payout > 0:
			ctx.Reply(fmt.Sprintf("🎲 ¡Ganaste **%d** créditos! Saldo: **%d**.", result.Payout, result.Balance))
		default:
			ctx.Reply(fmt.Sprintf("🎲 Perdiste tu apuesta de **%d**. Saldo: **%d**.", result.Bet, result.Balance))
		}
	}()
	return nil
}

func (h *handlers) bulkGrantCommand() *discord.Command {
	return discord.NewCommand(
		"bulkgrant",
		"Añade créditos a varios usuarios a la vez",
		"credits",
		h.bulkGrant,
	).WithOptions(amountOption(), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "usuarios",
		Description: "Menciones o ids separados por espacios",
		Required:    true,
	}).OwnerOnly()
}

func (h *handlers) bulkGrant(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.bulkgrant")()

		ids := ParseMentions(ctx.GetStringOption("usuarios"))
		if len(ids) == 0 {
			ctx.ReplyEphemeral("❌ Menciona al menos un usuario.")
			return
		}
		amount := ctx.GetIntOption("cantidad")
		n, err := h.svc.Registry.BulkGrant(ids, amount)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		logger.Info(fmt.Sprintf("%s otorgó %d créditos a %d usuarios", ctx.User().Username, amount, n), "Commands")
		ctx.Reply(fmt.Sprintf("✅ **%d** créditos otorgados a **%d** usuarios.", amount, n))
	}()
	return nil
}
