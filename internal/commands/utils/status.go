package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/internal/services"
	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/database"
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
)

// createStatusCommand creates the /status command
func createStatusCommand(svc *services.Services) *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot y del sistema de VPS",
		"utils",
		func(ctx *discord.CommandContext) error {
			go func() {
				defer errors.RecoverMiddleware("utils.status")()

				mirror := "Desactivado"
				if db := database.Get(); db != nil {
					mirror, _ = db.GetStatus()
				}
				embed := StatusEmbed(svc.Registry.Stats(), svc.Scheduler.Pending(), mirror, time.Since(ctx.Client.StartTime))
				ctx.ReplyEmbed(embed)
			}()
			return nil
		},
	)
}

// StatusEmbed renders the entity counts, armed deadlines and runtime info.
func StatusEmbed(stats registry.Stats, pending []models.Deadline, mirror string, uptime time.Duration) *discordgo.MessageEmbed {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	byKind := map[models.DeadlineKind]int{}
	for _, d := range pending {
		byKind[d.Kind]++
	}
	purge := "Inactiva"
	if stats.PurgeActive {
		purge = "Activa"
	}
	maintenance := "No"
	if stats.Maintenance {
		maintenance = "Sí"
	}

	return &discordgo.MessageEmbed{
		Title: "📊 Estado del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión", Value: config.Version, Inline: true},
			{Name: "🐹 Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "⏱ Uptime", Value: services.FormatDuration(uptime), Inline: true},
			{Name: "👥 Cuentas", Value: fmt.Sprintf("%d", stats.Accounts), Inline: true},
			{Name: "🖥️ VPS", Value: fmt.Sprintf("%d (%d de prueba)", stats.Resources, stats.Trials), Inline: true},
			{Name: "🎉 Sorteos", Value: fmt.Sprintf("%d", stats.Giveaways), Inline: true},
			{Name: "⏰ Fechas límite", Value: fmt.Sprintf("%d pruebas · %d sorteos · %d purga", byKind[models.DeadlineTrial], byKind[models.DeadlineGiveaway], byKind[models.DeadlinePurge]), Inline: false},
			{Name: "🧹 Purga", Value: fmt.Sprintf("%s (%d protecciones)", purge, stats.ActiveProtections), Inline: true},
			{Name: "🛠️ Mantenimiento", Value: maintenance, Inline: true},
			{Name: "🗄️ Réplica MongoDB", Value: mirror, Inline: true},
			{Name: "🖥 RAM", Value: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
