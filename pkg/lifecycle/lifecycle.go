// Package lifecycle holds the resolution routines that settle entities when
// their deadline arrives: trial expiry, giveaway finalization and purge
// execution.
//
// Every routine is safe to run twice and treats a missing entity as already
// settled. State changes go through the registry; chat side effects go
// through a Messenger and are best effort.
package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/kjfrm085feather/vps-bot/pkg/scheduler"
)

// GiveawaySummary is the final state shown on a giveaway message.
type GiveawaySummary struct {
	Participants int
	WinnerID     string
	Amount       int64
}

// Messenger is the chat platform as seen by the resolution routines.
type Messenger interface {
	// Notify sends a direct message to an account.
	Notify(ctx context.Context, accountID, text string) error
	// Reactors lists the non-bot accounts that reacted to a message with
	// marker. An error means the message could not be fetched.
	Reactors(ctx context.Context, channelID, messageID, marker string) ([]string, error)
	// EditSummary rewrites a giveaway message with its final state.
	EditSummary(ctx context.Context, channelID, messageID string, summary GiveawaySummary) error
	// Announce posts a message to a channel.
	Announce(ctx context.Context, channelID, text string) error
}

// Events receives a copy of every resolution outcome.
type Events interface {
	Publish(kind string, payload interface{})
}

// Event kinds passed to Events.Publish.
const (
	EventTrialExpired      = "trial_expired"
	EventGiveawayFinalized = "giveaway_finalized"
	EventPurgeCompleted    = "purge_completed"
	EventResourceCreated   = "resource_created"
)

// Options configures an Engine.
type Options struct {
	// GiveawayMarker is the reaction that enters a giveaway.
	GiveawayMarker string
	// PurgeChannelID overrides the channel used for purge summaries.
	PurgeChannelID string
	// Pick returns a uniform index in [0, n). Defaults to math/rand.
	Pick func(n int) int
	// Events is optional.
	Events Events
	// Timeout bounds each chat call. Defaults to 15s.
	Timeout time.Duration
}

// Engine runs the resolution routines.
type Engine struct {
	reg  *registry.Registry
	msg  Messenger
	opts Options

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an Engine.
func New(reg *registry.Registry, msg Messenger, opts Options) *Engine {
	if opts.GiveawayMarker == "" {
		opts.GiveawayMarker = "🎉"
	}
	if opts.Pick == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		var mu sync.Mutex
		opts.Pick = func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(n)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Engine{reg: reg, msg: msg, opts: opts, inflight: make(map[string]struct{})}
}

// Register installs the three resolvers on the scheduler.
func (e *Engine) Register(s *scheduler.Scheduler) {
	s.Handle(models.DeadlineTrial, e.ExpireTrial)
	s.Handle(models.DeadlineGiveaway, e.FinalizeGiveaway)
	s.Handle(models.DeadlinePurge, func(ctx context.Context, _ string) {
		var endTS int64
		if d, ok := scheduler.Armed(ctx); ok {
			endTS = d.At
		}
		e.ExecuteDeferredPurge(ctx, endTS)
	})
}

// ResourceCreated announces a new resource on the event bus.
func (e *Engine) ResourceCreated(id, owner string, trial bool) {
	e.publish(EventResourceCreated, map[string]interface{}{
		"id":    id,
		"owner": owner,
		"trial": trial,
	})
}

func (e *Engine) publish(kind string, payload interface{}) {
	if e.opts.Events != nil {
		e.opts.Events.Publish(kind, payload)
	}
}

func (e *Engine) call(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	err := fn(ctx)
	if err != nil {
		logger.Warn(fmt.Sprintf("%s: %v", what, err), "Lifecycle")
	}
	return err
}

// ExpireTrial deletes an elapsed trial resource and tells its owner.
func (e *Engine) ExpireTrial(ctx context.Context, id string) {
	res, ok := e.reg.ExpireTrial(id)
	if !ok {
		logger.Debug(fmt.Sprintf("Prueba #%s ya resuelta", id), "Lifecycle")
		return
	}

	logger.Info(fmt.Sprintf("VPS de prueba #%s de %s expiró y fue eliminado", id, res.Owner), "Lifecycle")
	e.publish(EventTrialExpired, map[string]string{"vps": id, "owner": res.Owner})

	text := fmt.Sprintf("Tu VPS de prueba de 3 días #%s ha expirado y fue eliminado.", id)
	_ = e.call(ctx, "No se pudo avisar al dueño de la prueba "+id, func(ctx context.Context) error {
		return e.msg.Notify(ctx, res.Owner, text)
	})
}

func (e *Engine) claim(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[key]; busy {
		return false
	}
	e.inflight[key] = struct{}{}
	return true
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	delete(e.inflight, key)
	e.mu.Unlock()
}

// FinalizeGiveaway picks a winner among the current reactors, credits the
// reward, updates the message and deletes the giveaway record. An
// unreachable message drops the giveaway without a winner.
func (e *Engine) FinalizeGiveaway(ctx context.Context, id string) {
	if !e.claim(id) {
		logger.Debug(fmt.Sprintf("Sorteo %s ya se está finalizando", id), "Lifecycle")
		return
	}
	defer e.release(id)

	g, ok := e.reg.Giveaway(id)
	if !ok {
		return
	}
	channelID, messageID := g.ChannelID.String(), g.MessageID.String()

	var reactors []string
	err := e.call(ctx, "No se pudo leer el mensaje del sorteo "+id, func(ctx context.Context) error {
		var err error
		reactors, err = e.msg.Reactors(ctx, channelID, messageID, e.opts.GiveawayMarker)
		return err
	})
	if err != nil {
		e.reg.RemoveGiveaway(id)
		logger.Warn(fmt.Sprintf("Sorteo %s descartado sin ganador", id), "Lifecycle")
		return
	}

	summary := GiveawaySummary{Participants: len(reactors), Amount: g.Amount}
	if len(reactors) > 0 {
		winner := reactors[e.opts.Pick(len(reactors))]
		if _, err := e.reg.AdjustCredits(winner, g.Amount); err != nil {
			logger.Error(fmt.Sprintf("No se pudo acreditar el premio del sorteo %s: %v", id, err), "Lifecycle")
		} else {
			summary.WinnerID = winner
		}
	}

	_ = e.call(ctx, "No se pudo editar el mensaje del sorteo "+id, func(ctx context.Context) error {
		return e.msg.EditSummary(ctx, channelID, messageID, summary)
	})
	e.reg.RemoveGiveaway(id)

	logger.Info(fmt.Sprintf("Sorteo %s finalizado: %d participantes, ganador %q", id, summary.Participants, summary.WinnerID), "Lifecycle")
	e.publish(EventGiveawayFinalized, map[string]interface{}{
		"giveaway":     id,
		"participants": summary.Participants,
		"winner":       summary.WinnerID,
		"amount":       summary.Amount,
	})
}

// ExecutePurge runs one purge sweep and posts the list of removed resources.
func (e *Engine) ExecutePurge(ctx context.Context, trigger registry.PurgeTrigger) registry.PurgeResult {
	return e.reportPurge(ctx, trigger, e.reg.Sweep(trigger))
}

// ExecuteDeferredPurge runs the deferred sweep armed for a window ending at
// endTS. A zero endTS accepts whichever window is pending.
func (e *Engine) ExecuteDeferredPurge(ctx context.Context, endTS int64) registry.PurgeResult {
	return e.reportPurge(ctx, registry.PurgeDeferred, e.reg.SweepDeferred(endTS))
}

func (e *Engine) reportPurge(ctx context.Context, trigger registry.PurgeTrigger, result registry.PurgeResult) registry.PurgeResult {
	if result.Skipped {
		logger.Info("Purga programada omitida: no hay barrido pendiente para esta ventana", "Lifecycle")
		return result
	}

	removed := "ninguno"
	if len(result.Removed) > 0 {
		removed = strings.Join(result.Removed, ", ")
	}
	logger.Warn(fmt.Sprintf("Purga (%s) completada. Eliminados: %s. Conservados: %d", trigger, removed, result.Kept), "Lifecycle")
	e.publish(EventPurgeCompleted, map[string]interface{}{
		"trigger": trigger.String(),
		"removed": result.Removed,
		"kept":    result.Kept,
	})

	channel := e.opts.PurgeChannelID
	if channel == "" {
		channel = result.ChannelID.String()
	}
	if channel == "" {
		return result
	}
	title := "✅ Purga completada"
	if trigger == registry.PurgeDeferred {
		title = "✅ Purga programada completada"
	}
	_ = e.call(ctx, "No se pudo anunciar la purga", func(ctx context.Context) error {
		return e.msg.Announce(ctx, channel, fmt.Sprintf("%s\nVPS eliminados: %s", title, removed))
	})
	return result
}

// StartPurge opens the purge window around an announced message and runs
// the immediate sweep. The deferred sweep is armed by the registry.
func (e *Engine) StartPurge(ctx context.Context, channelID, messageID models.Snowflake) (models.PurgeWindow, registry.PurgeResult, error) {
	window, err := e.reg.OpenPurgeWindow(channelID, messageID)
	if err != nil {
		return models.PurgeWindow{}, registry.PurgeResult{}, err
	}
	return window, e.ExecutePurge(ctx, registry.PurgeImmediate), nil
}
