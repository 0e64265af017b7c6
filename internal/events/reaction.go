package events

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// ProtectionGranter hands out purge protection to accounts that react to
// the purge message.
type ProtectionGranter interface {
	GrantProtectionForReaction(messageID, account, marker string) (models.ProtectionRecord, bool)
}

// Protect grants protection for a reaction unless it comes from the bot
// itself or lands on any message other than the purge one.
func Protect(g ProtectionGranter, botID string, r *discordgo.MessageReaction) (models.ProtectionRecord, bool) {
	if r.UserID == "" || r.UserID == botID {
		return models.ProtectionRecord{}, false
	}
	return g.GrantProtectionForReaction(r.MessageID, r.UserID, r.Emoji.Name)
}

// ProtectionEmbed is the DM confirming a granted protection.
func ProtectionEmbed(rec models.ProtectionRecord) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🛡️ Protección activada",
		Description: fmt.Sprintf("Tus VPS no serán eliminados en la purga hasta <t:%d:f>.", rec.ExpiresAt),
		Color:       0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reacción", Value: rec.Emoji, Inline: true},
			{Name: "Expira", Value: fmt.Sprintf("<t:%d:R>", rec.ExpiresAt), Inline: true},
		},
		Timestamp: time.Unix(rec.ProtectedAt, 0).Format(time.RFC3339),
	}
}

func onReactionAdd(g ProtectionGranter) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		defer errors.RecoverMiddleware("events.reaction")()

		botID := ""
		if s.State != nil && s.State.User != nil {
			botID = s.State.User.ID
		}

		rec, ok := Protect(g, botID, r.MessageReaction)
		if !ok {
			return
		}
		logger.Info(fmt.Sprintf("🛡️ Protección concedida a %s (%s)", rec.UserID, rec.Emoji), "Purge")

		dm, err := s.UserChannelCreate(r.UserID)
		if err != nil {
			logger.Debug(fmt.Sprintf("No se pudo abrir DM con %s: %v", r.UserID, err), "Purge")
			return
		}
		if _, err := s.ChannelMessageSendEmbed(dm.ID, ProtectionEmbed(rec)); err != nil {
			logger.Debug(fmt.Sprintf("No se pudo enviar DM a %s: %v", r.UserID, err), "Purge")
		}
	}
}
