// Package registry implements the lifecycle operations on accounts, resources,
// giveaways and purge protections.
//
// Every exported method is one read-modify-persist unit executed under a
// single registry lock, so concurrent command handlers and resolution
// routines never interleave inside a unit. Methods never hold the lock while
// talking to the chat platform.
package registry

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
)

var (
	ErrNotFound            = errors.New("registry: not found")
	ErrForbidden           = errors.New("registry: not allowed")
	ErrTrialClaimed        = errors.New("registry: trial already claimed")
	ErrInsufficientCredits = errors.New("registry: insufficient credits")
	ErrInvalidAmount       = errors.New("registry: amount must be positive")
	ErrInvalidCapacity     = errors.New("registry: capacity values must be positive")
	ErrInvalidStatus       = errors.New("registry: invalid status")
	ErrAlreadyShared       = errors.New("registry: already shared with account")
	ErrNotShared           = errors.New("registry: not shared with account")
	ErrSelfTransfer        = errors.New("registry: cannot transfer to yourself")
	ErrCooldown            = errors.New("registry: reward on cooldown")
	ErrPurgePending        = errors.New("registry: a purge sweep is already pending")
	ErrAddressInUse        = errors.New("registry: address already assigned")
	ErrMaintenance         = errors.New("registry: maintenance mode is on")
	ErrPromoNotFound       = errors.New("registry: promo code not found")
	ErrPromoExpired        = errors.New("registry: promo code expired")
	ErrInvalidPromo        = errors.New("registry: promo code and uses must be set")
)

// CooldownError reports how long until a reward can be claimed again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("registry: reward on cooldown for %s", e.Remaining)
}

// Is makes errors.Is(err, ErrCooldown) match.
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Deadlines arms resolution routines.
type Deadlines interface {
	Schedule(kind models.DeadlineKind, id string, deadline int64)
}

// Provisioner accepts background provisioning work for new resources.
type Provisioner interface {
	Enqueue(req models.ProvisionRequest)
}

// Predicate authorizes an operation against the current resource record.
// A nil Predicate allows everything.
type Predicate func(r *models.Resource) bool

// Options configures a Registry.
type Options struct {
	TrialCredits int64
	TrialCPU     int
	TrialRAM     int
	TrialStorage int
	DailyReward  int64
	WeeklyReward int64
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Roll returns a number in [0, 1) for gambling. Defaults to rand.Float64.
	Roll func() float64
}

// DefaultOptions returns the stock trial and reward settings.
func DefaultOptions() Options {
	return Options{
		TrialCredits: 10,
		TrialCPU:     1,
		TrialRAM:     2,
		TrialStorage: 20,
		DailyReward:  50,
		WeeklyReward: 400,
		Now:          time.Now,
		Roll:         rand.Float64,
	}
}

const (
	dailyCooldown  = 24 * time.Hour
	weeklyCooldown = 7 * 24 * time.Hour
)

// Registry is the single entry point for lifecycle state changes.
type Registry struct {
	mu          sync.Mutex
	store       *store.Store
	deadlines   Deadlines
	provisioner Provisioner
	opts        Options
}

// New creates a Registry over st. deadlines may be nil until the scheduler
// is wired, in which case nothing is armed.
func New(st *store.Store, deadlines Deadlines, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Roll == nil {
		opts.Roll = rand.Float64
	}
	return &Registry{store: st, deadlines: deadlines, opts: opts}
}

// SetDeadlines wires the scheduler after construction.
func (r *Registry) SetDeadlines(d Deadlines) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadlines = d
}

// SetProvisioner wires the provisioning pool.
func (r *Registry) SetProvisioner(p Provisioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisioner = p
}

// Now returns the registry clock as a Unix timestamp.
func (r *Registry) Now() int64 {
	return r.opts.Now().Unix()
}

func (r *Registry) persist(kinds ...store.Kind) {
	for _, kind := range kinds {
		// Save logs its own failures; memory stays authoritative.
		_ = r.store.Save(kind)
	}
}

func (r *Registry) schedule(kind models.DeadlineKind, id string, at int64) {
	r.mu.Lock()
	d := r.deadlines
	r.mu.Unlock()
	if d == nil {
		logger.Warn(fmt.Sprintf("Sin scheduler: no se armó la fecha límite %s/%s", kind, id), "Registry")
		return
	}
	d.Schedule(kind, id, at)
}

func (r *Registry) enqueue(req models.ProvisionRequest) {
	r.mu.Lock()
	p := r.provisioner
	r.mu.Unlock()
	if p != nil {
		p.Enqueue(req)
	}
}

// sortIDs orders numeric ids numerically and everything else after them.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}
