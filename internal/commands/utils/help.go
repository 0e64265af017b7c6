package utils

import (
	"github.com/kjfrm085feather/vps-bot/pkg/discord"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
)

const helpText = "📖 **Ayuda del bot de VPS**\n\n" +
	"**VPS**\n" +
	"• `/vps trial` - Reclama tu VPS de prueba de 3 días\n" +
	"• `/vps list` - Lista tus VPS y los compartidos contigo\n" +
	"• `/vps info <id>` - Detalles de un VPS\n" +
	"• `/vps status <id> <estado>` - Inicia o detiene un VPS\n" +
	"• `/vps share|unshare <id> <usuario>` - Gestiona el acceso compartido\n" +
	"• `/vps snapshot <id>` / `/vps restore <id> <snapshot>` - Snapshots\n" +
	"• `/vps note <id> <texto>` / `/vps notes <id>` - Notas\n" +
	"• `/vps delete <id>` - Elimina un VPS\n\n" +
	"**Créditos**\n" +
	"• `/credits balance` - Tu saldo\n" +
	"• `/credits daily` / `/credits weekly` - Recompensas\n" +
	"• `/credits transfer <usuario> <cantidad>` - Envía créditos\n" +
	"• `/credits gamble <cantidad>` - Apuesta créditos\n" +
	"• `/credits leaderboard` - Ranking\n" +
	"• `/promo redeem <codigo>` - Canjea un código promocional\n\n" +
	"**Purga**\n" +
	"• `/purge info` - Estado de la purga. Reacciona al anuncio para protegerte.\n\n" +
	"**Otros**\n" +
	"• `/ping` - Latencia\n" +
	"• `/status` - Estado del bot"

// createHelpCommand creates the /help command
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		helpHandler,
	)
}

// helpHandler handles the /help command
func helpHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware("utils.help")()
		ctx.ReplyEphemeral(helpText)
	}()
	return nil
}
