// Package scheduler runs resolution routines when entity deadlines arrive.
//
// A deadline is an entity id plus an absolute Unix timestamp. Each armed
// deadline gets its own goroutine that sleeps until the deadline and then
// invokes the resolver registered for the entity kind. There is no cancel
// operation: a resolver that no longer finds its entity treats the deadline
// as already settled. Arming the same deadline twice runs the resolver twice.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// Resolver settles one entity. It must be safe to call for an entity that is
// already gone and safe to call twice.
type Resolver func(ctx context.Context, id string)

type armedKey struct{}

// Armed returns the deadline a resolver was fired for.
func Armed(ctx context.Context) (models.Deadline, bool) {
	d, ok := ctx.Value(armedKey{}).(models.Deadline)
	return d, ok
}

// Options configures a Scheduler.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Scheduler arms deadlines and dispatches them to per-kind resolvers.
type Scheduler struct {
	mu        sync.Mutex
	resolvers map[models.DeadlineKind]Resolver
	armed     map[uint64]models.Deadline
	seq       uint64
	stopped   bool

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler with no resolvers.
func New(opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		resolvers: make(map[models.DeadlineKind]Resolver),
		armed:     make(map[uint64]models.Deadline),
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handle registers the resolver for a deadline kind, replacing any previous
// one.
func (s *Scheduler) Handle(kind models.DeadlineKind, resolver Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvers[kind] = resolver
}

// Schedule arms a deadline using the resolver registered for kind. Deadlines
// of unknown kinds are logged and dropped.
func (s *Scheduler) Schedule(kind models.DeadlineKind, id string, deadline int64) {
	s.schedule(kind, id, deadline)
}

func (s *Scheduler) schedule(kind models.DeadlineKind, id string, deadline int64) bool {
	s.mu.Lock()
	resolver, ok := s.resolvers[kind]
	s.mu.Unlock()
	if !ok {
		logger.Error(fmt.Sprintf("No hay resolver para %s, fecha límite de %s descartada", kind, id), "Scheduler")
		return false
	}
	return s.arm(models.Deadline{Kind: kind, ID: id, At: deadline}, resolver)
}

// Arm sleeps until deadline and then calls resolver(id). A deadline in the
// past fires right away.
func (s *Scheduler) Arm(id string, deadline int64, resolver Resolver) {
	s.arm(models.Deadline{ID: id, At: deadline}, resolver)
}

func (s *Scheduler) arm(d models.Deadline, resolver Resolver) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		logger.Warn(fmt.Sprintf("Scheduler detenido, no se armó %s/%s", d.Kind, d.ID), "Scheduler")
		return false
	}
	s.seq++
	key := s.seq
	s.armed[key] = d
	s.wg.Add(1)
	s.mu.Unlock()

	wait := time.Unix(d.At, 0).Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	logger.Debug(fmt.Sprintf("Armado %s/%s en %s", d.Kind, d.ID, wait.Round(time.Second)), "Scheduler")

	go s.run(key, d, wait, resolver)
	return true
}

func (s *Scheduler) run(key uint64, d models.Deadline, wait time.Duration, resolver Resolver) {
	defer s.wg.Done()
	defer s.disarm(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.ctx.Done():
		return
	}

	defer errors.RecoverMiddleware(fmt.Sprintf("scheduler %s/%s", d.Kind, d.ID))()
	resolver(context.WithValue(s.ctx, armedKey{}, d), d.ID)
}

func (s *Scheduler) disarm(key uint64) {
	s.mu.Lock()
	delete(s.armed, key)
	s.mu.Unlock()
}

// Recover arms every deadline found in the persisted state. It is the only
// rehydration step after a restart and returns how many were armed.
func (s *Scheduler) Recover(deadlines []models.Deadline) int {
	count := 0
	byKind := make(map[models.DeadlineKind]int)
	for _, d := range deadlines {
		if s.schedule(d.Kind, d.ID, d.At) {
			count++
			byKind[d.Kind]++
		}
	}
	logger.System(fmt.Sprintf("Recuperadas %d fechas límite (prueba: %d, sorteo: %d, purga: %d)",
		count, byKind[models.DeadlineTrial], byKind[models.DeadlineGiveaway], byKind[models.DeadlinePurge]), "Scheduler")
	return count
}

// Pending returns the armed deadlines whose resolver has not finished,
// earliest first.
func (s *Scheduler) Pending() []models.Deadline {
	s.mu.Lock()
	out := make([]models.Deadline, 0, len(s.armed))
	for _, d := range s.armed {
		out = append(out, d)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stop drops every armed deadline and waits for running resolvers to return.
// Dropped deadlines are re-armed from the persisted state on the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.System("Scheduler detenido", "Scheduler")
}
