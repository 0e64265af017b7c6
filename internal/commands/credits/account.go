package credits

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
)

func userOption(required bool, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    required,
	}
}

func amountOption() *discordgo.ApplicationCommandOption {
	minValue := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "cantidad",
		Description: "Cantidad de créditos",
		Required:    true,
		MinValue:    &minValue,
	}
}

func (h *handlers) balanceCommand() *discord.Command {
	return discord.NewCommand(
		"balance",
		"Muestra tu saldo de créditos",
		"credits",
		h.balance,
	).WithOptions(userOption(false, "Usuario a consultar"))
}

func (h *handlers) balance(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.balance")()

		id := ctx.User().ID
		if target := ctx.GetUserOption("usuario"); target != nil {
			id = target.ID
		}
		acc := h.svc.Registry.EnsureAccount(id)
		vps := len(h.svc.Registry.ResourcesOf(id))
		ctx.Reply(fmt.Sprintf("💰 <@%s> tiene **%d** créditos y acceso a **%d** VPS.", id, acc.Credits, vps))
	}()
	return nil
}

func (h *handlers) dailyCommand() *discord.Command {
	return discord.NewCommand("daily", "Reclama tu recompensa diaria", "credits", h.daily)
}

func (h *handlers) daily(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.daily")()
		h.claim(ctx, "diaria", h.svc.Registry.ClaimDaily)
	}()
	return nil
}

func (h *handlers) weeklyCommand() *discord.Command {
	return discord.NewCommand("weekly", "Reclama tu recompensa semanal", "credits", h.weekly)
}

func (h *handlers) weekly(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.weekly")()
		h.claim(ctx, "semanal", h.svc.Registry.ClaimWeekly)
	}()
	return nil
}

func (h *handlers) claim(ctx *discord.CommandContext, label string, claim func(string) (int64, error)) {
	id := ctx.User().ID
	reward, err := claim(id)
	if err != nil {
		ctx.ReplyEphemeral(services.Describe(err))
		return
	}
	acc, _ := h.svc.Registry.Account(id)
	ctx.Reply(fmt.Sprintf("🎁 Recompensa %s: **+%d** créditos. Saldo: **%d**.", label, reward, acc.Credits))
}

func (h *handlers) transferCommand() *discord.Command {
	return discord.NewCommand(
		"transfer",
		"Transfiere créditos a otro usuario",
		"credits",
		h.transfer,
	).WithOptions(userOption(true, "Destinatario"), amountOption())
}

func (h *handlers) transfer(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.transfer")()

		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		if target.Bot {
			ctx.ReplyEphemeral("❌ No puedes transferir créditos a un bot.")
			return
		}
		amount := ctx.GetIntOption("cantidad")
		if err := h.svc.Registry.Transfer(ctx.User().ID, target.ID, amount); err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("💸 Transferiste **%d** créditos a <@%s>.", amount, target.ID))
	}()
	return nil
}

func (h *handlers) leaderboardCommand() *discord.Command {
	return discord.NewCommand("leaderboard", "Los usuarios con más créditos", "credits", h.leaderboard)
}

func (h *handlers) leaderboard(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.leaderboard")()
		ctx.ReplyEmbed(LeaderboardEmbed(h.svc.Registry.Leaderboard(10)))
	}()
	return nil
}

// LeaderboardEmbed renders the ranking with medals for the top three.
func LeaderboardEmbed(rows []registry.AccountBalance) *discordgo.MessageEmbed {
	medals := []string{"🥇", "🥈", "🥉"}
	desc := ""
	for i, row := range rows {
		place := fmt.Sprintf("`%d.`", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		desc += fmt.Sprintf("%s <@%s> · **%d**\n", place, row.ID, row.Credits)
	}
	if desc == "" {
		desc = "Nadie tiene créditos todavía."
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 Ranking de créditos",
		Description: desc,
		Color:       0xF1C40F,
	}
}

func (h *handlers) addCommand() *discord.Command {
	return discord.NewCommand(
		"add",
		"Añade créditos a un usuario",
		"credits",
		h.add,
	).WithOptions(userOption(true, "Usuario"), amountOption()).AdminOnly()
}

func (h *handlers) add(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.add")()

		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		balance, err := h.svc.Registry.AdjustCredits(target.ID, ctx.GetIntOption("cantidad"))
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		logger.Info(fmt.Sprintf("%s añadió créditos a %s (saldo %d)", ctx.User().Username, target.ID, balance), "Commands")
		ctx.Reply(fmt.Sprintf("✅ Nuevo saldo de <@%s>: **%d** créditos.", target.ID, balance))
	}()
	return nil
}

func (h *handlers) removeCommand() *discord.Command {
	return discord.NewCommand(
		"remove",
		"Quita créditos a un usuario (todos si no indicas cantidad)",
		"credits",
		h.remove,
	).WithOptions(userOption(true, "Usuario"), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "cantidad",
		Description: "Cantidad de créditos",
	}).AdminOnly()
}

func (h *handlers) remove(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.remove")()

		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		amount := ctx.GetIntOption("cantidad")
		if amount <= 0 {
			removed := h.svc.Registry.RemoveAllCredits(target.ID)
			ctx.Reply(fmt.Sprintf("🧹 Se quitaron **%d** créditos a <@%s>.", removed, target.ID))
			return
		}
		balance, err := h.svc.Registry.AdjustCredits(target.ID, -amount)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.Reply(fmt.Sprintf("✅ Nuevo saldo de <@%s>: **%d** créditos.", target.ID, balance))
	}()
	return nil
}

func (h *handlers) adminCommand() *discord.Command {
	return discord.NewCommand(
		"admin",
		"Concede o retira el rol de administrador del bot",
		"credits",
		h.admin,
	).WithOptions(userOption(true, "Usuario"), &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "activo",
		Description: "Conceder (true) o retirar (false)",
		Required:    true,
	}).OwnerOnly()
}

func (h *handlers) admin(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("credits.admin")()

		target := ctx.GetUserOption("usuario")
		if target == nil {
			ctx.ReplyEphemeral("❌ Usuario no válido.")
			return
		}
		on := ctx.GetBoolOption("activo")
		h.svc.Registry.SetAdmin(target.ID, on)
		if on {
			ctx.Reply(fmt.Sprintf("🛡️ <@%s> ahora es administrador.", target.ID))
			return
		}
		ctx.Reply(fmt.Sprintf("🛡️ <@%s> ya no es administrador.", target.ID))
	}()
	return nil
}
