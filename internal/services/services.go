// Package services bundles the long-lived components the command handlers
// work with, plus the helpers they share.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/lifecycle"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/kjfrm085feather/vps-bot/pkg/scheduler"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

// Services is handed to every command group at registration.
type Services struct {
	Config    *config.Config
	Store     *store.Store
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Engine    *lifecycle.Engine
}

// CanManage returns the predicate that lets actor operate on a resource:
// its owner, an account it is shared with, an admin or the bot owner.
func (s *Services) CanManage(actor string) registry.Predicate {
	if s.IsPrivileged(actor) {
		return nil
	}
	return func(r *models.Resource) bool {
		return r.Owner == actor || r.IsSharedWith(actor)
	}
}

// OwnerOf only accepts the resource owner, admins and the bot owner.
func (s *Services) OwnerOf(actor string) registry.Predicate {
	if s.IsPrivileged(actor) {
		return nil
	}
	return func(r *models.Resource) bool {
		return r.Owner == actor
	}
}

// IsPrivileged reports whether actor is the bot owner or an admin.
func (s *Services) IsPrivileged(actor string) bool {
	if s.Config != nil && s.Config.OwnerID != "" && actor == s.Config.OwnerID {
		return true
	}
	return s.Registry.IsAdmin(actor)
}

// Describe turns a registry error into the message shown to the user.
func Describe(err error) string {
	var cd *registry.CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("⏳ Ya reclamaste esta recompensa. Vuelve en %s.", FormatDuration(cd.Remaining))
	case errors.Is(err, registry.ErrNotFound):
		return "❌ No existe."
	case errors.Is(err, registry.ErrForbidden):
		return "⛔ No tienes permiso sobre este VPS."
	case errors.Is(err, registry.ErrTrialClaimed):
		return "❌ Ya usaste tu VPS de prueba."
	case errors.Is(err, registry.ErrInsufficientCredits):
		return "💸 Créditos insuficientes."
	case errors.Is(err, registry.ErrInvalidAmount):
		return "❌ La cantidad debe ser mayor que cero."
	case errors.Is(err, registry.ErrInvalidCapacity):
		return "❌ CPU, RAM y almacenamiento deben ser mayores que cero."
	case errors.Is(err, registry.ErrInvalidStatus):
		return "❌ Estado no válido."
	case errors.Is(err, registry.ErrAlreadyShared):
		return "❌ Ya está compartido con ese usuario."
	case errors.Is(err, registry.ErrNotShared):
		return "❌ No está compartido con ese usuario."
	case errors.Is(err, registry.ErrSelfTransfer):
		return "❌ No puedes transferirte créditos a ti mismo."
	case errors.Is(err, registry.ErrPurgePending):
		return "❌ Ya hay una purga en curso. Detenla antes de iniciar otra."
	case errors.Is(err, registry.ErrAddressInUse):
		return "❌ Esa IP ya está asignada a otro VPS."
	case errors.Is(err, registry.ErrMaintenance):
		return "🛠️ El sistema está en mantenimiento, no se pueden crear VPS."
	case errors.Is(err, registry.ErrPromoNotFound):
		return "❌ Código promocional no válido."
	case errors.Is(err, registry.ErrPromoExpired):
		return "❌ Este código promocional ya expiró."
	case errors.Is(err, registry.ErrInvalidPromo):
		return "❌ Indica un código y al menos un uso."
	default:
		return fmt.Sprintf("❌ Error inesperado: %v", err)
	}
}

// FormatDuration renders d as "1d 2h 3m", dropping zero units. Durations
// under a minute render in seconds.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute

	out := ""
	if days > 0 {
		out += fmt.Sprintf("%dd ", days)
	}
	if hours > 0 {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dm ", minutes)
	}
	return out[:len(out)-1]
}

// Timestamp renders a Unix time as a Discord relative timestamp.
func Timestamp(unix int64) string {
	return fmt.Sprintf("<t:%d:R>", unix)
}
