// Package promo holds the /promo command group.
package promo

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/commands/giveaway"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
)

type handlers struct {
	svc *services.Services
}

// Register registers /promo redeem|create|list|remove|info
func Register(client *discord.ExtendedClient, svc *services.Services) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"promo",
		"Códigos promocionales",
		h.redeemCommand(),
		h.createCommand(),
		h.listCommand(),
		h.removeCommand(),
		h.infoCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}

func codeOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "codigo",
		Description: "Código promocional",
		Required:    true,
	}
}

// PromoLine renders one promo code for listings.
func PromoLine(p registry.PromoCode) string {
	line := fmt.Sprintf("`%s` · **%d** créditos (%d usos restantes)", p.Code, p.Amount, p.Uses)
	if p.ExpiresAt != 0 {
		line += " · expira " + services.Timestamp(p.ExpiresAt)
	}
	return line
}

func (h *handlers) redeemCommand() *discord.Command {
	return discord.NewCommand("redeem", "Canjea un código promocional", "promo", h.redeem).
		WithOptions(codeOption())
}

func (h *handlers) redeem(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("promo.redeem")()

		code := strings.TrimSpace(ctx.GetStringOption("codigo"))
		user := ctx.User()
		amount, err := h.svc.Registry.RedeemPromo(user.ID, code)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		logger.Info(fmt.Sprintf("%s canjeó el código %s", user.Username, code), "Commands")
		ctx.ReplyEphemeral(fmt.Sprintf("🎟️ Código `%s` canjeado: recibiste **%d** créditos.", code, amount))
	}()
	return nil
}

func (h *handlers) createCommand() *discord.Command {
	minValue := 1.0
	return discord.NewCommand(
		"create",
		"Crea o reemplaza un código promocional",
		"promo",
		h.create,
	).WithOptions(
		codeOption(),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "cantidad",
			Description: "Créditos por canje",
			Required:    true,
			MinValue:    &minValue,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "usos",
			Description: "Número de canjes (1 por defecto)",
			MinValue:    &minValue,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duracion",
			Description: "Vigencia: 30m, 2h, 1d, 1w o 1mo (sin límite si se omite)",
		},
	).OwnerOnly()
}

func (h *handlers) create(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("promo.create")()

		uses := int(ctx.GetIntOption("usos"))
		if uses <= 0 {
			uses = 1
		}
		var expiresAt int64
		if raw := ctx.GetStringOption("duracion"); raw != "" {
			d, err := giveaway.ParseDuration(raw)
			if err != nil {
				ctx.ReplyEphemeral("❌ Duración no válida. Usa 30m, 2h, 1d, 1w o 1mo.")
				return
			}
			expiresAt = time.Unix(h.svc.Registry.Now(), 0).Add(d).Unix()
		}

		p, err := h.svc.Registry.CreatePromo(ctx.GetStringOption("codigo"), ctx.GetIntOption("cantidad"), uses, expiresAt)
		if err != nil {
			ctx.ReplyEphemeral(services.Describe(err))
			return
		}
		ctx.ReplyEphemeral("✅ Código creado: " + PromoLine(p))
	}()
	return nil
}

func (h *handlers) listCommand() *discord.Command {
	return discord.NewCommand("list", "Lista los códigos promocionales", "promo", h.list).AdminOnly()
}

func (h *handlers) list(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("promo.list")()

		promos := h.svc.Registry.Promos()
		if len(promos) == 0 {
			ctx.ReplyEphemeral("No hay códigos promocionales.")
			return
		}
		lines := make([]string, 0, len(promos))
		for _, p := range promos {
			lines = append(lines, PromoLine(p))
		}
		ctx.ReplyEphemeral(strings.Join(lines, "\n"))
	}()
	return nil
}

func (h *handlers) removeCommand() *discord.Command {
	return discord.NewCommand("remove", "Elimina un código promocional", "promo", h.remove).
		WithOptions(codeOption()).
		OwnerOnly()
}

func (h *handlers) remove(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("promo.remove")()

		code := ctx.GetStringOption("codigo")
		if !h.svc.Registry.RemovePromo(code) {
			ctx.ReplyEphemeral(services.Describe(registry.ErrPromoNotFound))
			return
		}
		ctx.ReplyEphemeral(fmt.Sprintf("🗑️ Código `%s` eliminado.", code))
	}()
	return nil
}

func (h *handlers) infoCommand() *discord.Command {
	return discord.NewCommand("info", "Muestra un código promocional", "promo", h.info).
		WithOptions(codeOption()).
		AdminOnly()
}

func (h *handlers) info(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("promo.info")()

		p, ok := h.svc.Registry.Promo(ctx.GetStringOption("codigo"))
		if !ok {
			ctx.ReplyEphemeral(services.Describe(registry.ErrPromoNotFound))
			return
		}
		ctx.ReplyEphemeral(PromoLine(p))
	}()
	return nil
}
