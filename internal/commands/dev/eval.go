package dev

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	exportPath = "github.com/kjfrm085feather/vps-bot/internal/commands/dev"
	maxOutput  = 1900
)

// CreateEvalCommand crea el comando /dev eval
func CreateEvalCommand(svc *services.Services) *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evalúa código Go con acceso al registro y al scheduler (Peligroso)",
		"dev",
		func(ctx *discord.CommandContext) error {
			return evalHandler(ctx, svc)
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código o expresión Go a evaluar",
			Required:    true,
		},
	).OwnerOnly()
}

// StripCodeFence removes a surrounding markdown code block.
func StripCodeFence(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

// Evaluate runs code in a fresh interpreter where symbols are in scope
// unqualified, and formats the result with %#v.
func Evaluate(code string, symbols map[string]reflect.Value) (string, error) {
	i := interp.New(interp.Options{})

	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("cargando stdlib: %w", err)
	}
	if len(symbols) > 0 {
		if err := i.Use(interp.Exports{exportPath + "/dev": symbols}); err != nil {
			return "", fmt.Errorf("registrando variables: %w", err)
		}
		if _, err := i.Eval(fmt.Sprintf(`import . %q`, exportPath)); err != nil {
			return "", fmt.Errorf("importando variables: %w", err)
		}
	}

	res, err := i.Eval(code)
	if err != nil {
		return "", err
	}
	if !res.IsValid() {
		return "nil", nil
	}
	out := fmt.Sprintf("%#v", res.Interface())
	if len(out) > maxOutput {
		out = out[:maxOutput] + "... (truncado)"
	}
	return out, nil
}

func evalHandler(ctx *discord.CommandContext, svc *services.Services) error {
	go func() {
		defer errors.RecoverMiddleware("dev.eval")()
		start := time.Now()

		ctx.Defer()

		symbols := map[string]reflect.Value{
			"Ctx":       reflect.ValueOf(ctx),
			"Bot":       reflect.ValueOf(ctx.Client),
			"Session":   reflect.ValueOf(ctx.Session),
			"Registry":  reflect.ValueOf(svc.Registry),
			"Scheduler": reflect.ValueOf(svc.Scheduler),
			"Store":     reflect.ValueOf(svc.Store),
			"Engine":    reflect.ValueOf(svc.Engine),
			"Config":    reflect.ValueOf(svc.Config),
		}

		out, err := Evaluate(StripCodeFence(ctx.GetStringOption("codigo")), symbols)
		var reply string
		if err != nil {
			reply = fmt.Sprintf("❌ **Error de Ejecución:**\n```go\n%v\n```", err)
		} else {
			reply = fmt.Sprintf("✅ **Resultado:**\n```go\n%s\n```", out)
		}

		logger.Debug(fmt.Sprintf("Eval completado en %s", time.Since(start)), "DevEval")
		ctx.EditReply(reply)
	}()
	return nil
}
