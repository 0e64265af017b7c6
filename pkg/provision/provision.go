// Package provision backs new resources with containers off the hot path.
//
// The registry hands every new resource to a Pool. A fixed set of workers
// drains the queue and reports each outcome back through a Recorder, which
// only ever touches the metadata of the resource.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kjfrm085feather/vps-bot/pkg/errors"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// ErrQueueFull is recorded when a request arrives while every queue slot is
// taken.
var ErrQueueFull = errors.New("provision: queue full")

// Backend creates the container behind a resource and returns its name.
type Backend interface {
	Provision(ctx context.Context, req models.ProvisionRequest) (string, error)
}

// Recorder stores provisioning outcomes.
type Recorder interface {
	RecordProvisioning(result models.ProvisionResult)
}

// Options configures a Pool.
type Options struct {
	Workers   int
	QueueSize int
	// Timeout bounds one provisioning job. Defaults to 2 minutes.
	Timeout time.Duration
}

// Pool is a fixed-size worker pool fed by a buffered queue.
type Pool struct {
	backend  Backend
	recorder Recorder
	opts     Options

	queue chan models.ProvisionRequest
	wg    sync.WaitGroup
	ctx   context.Context
	stop  context.CancelFunc

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewPool creates a Pool. Call Start before enqueueing.
func NewPool(backend Backend, recorder Recorder, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		backend:  backend,
		recorder: recorder,
		opts:     opts,
		queue:    make(chan models.ProvisionRequest, opts.QueueSize),
		ctx:      ctx,
		stop:     cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	logger.System(fmt.Sprintf("Pool de aprovisionamiento iniciado con %d workers", p.opts.Workers), "Provision")
}

// Enqueue queues a request without blocking. A full queue records the
// request as failed.
func (p *Pool) Enqueue(req models.ProvisionRequest) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		logger.Warn(fmt.Sprintf("Pool cerrado, VPS #%s no se aprovisionará", req.ResourceID), "Provision")
		return
	}

	select {
	case p.queue <- req:
		logger.Debug(fmt.Sprintf("VPS #%s en cola de aprovisionamiento", req.ResourceID), "Provision")
	default:
		logger.Error(fmt.Sprintf("Cola llena, VPS #%s sin aprovisionar", req.ResourceID), "Provision")
		p.recorder.RecordProvisioning(models.ProvisionResult{ResourceID: req.ResourceID, Err: ErrQueueFull})
	}
}

func (p *Pool) work(n int) {
	defer p.wg.Done()
	for req := range p.queue {
		p.handle(n, req)
	}
}

func (p *Pool) handle(n int, req models.ProvisionRequest) {
	defer apperrors.RecoverMiddleware(fmt.Sprintf("provision worker %d", n))()

	ctx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
	defer cancel()

	start := time.Now()
	name, err := p.backend.Provision(ctx, req)
	if err != nil {
		logger.Error(fmt.Sprintf("Falló el aprovisionamiento de VPS #%s: %v", req.ResourceID, err), "Provision")
	} else {
		logger.Success(fmt.Sprintf("VPS #%s aprovisionado como %s en %v", req.ResourceID, name, time.Since(start).Round(time.Millisecond)), "Provision")
	}
	p.recorder.RecordProvisioning(models.ProvisionResult{ResourceID: req.ResourceID, Name: name, Err: err})
}

// Stop refuses new requests, lets the workers drain the queue and waits for
// them. Jobs still running when ctx ends are cancelled.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		p.stop()
		return
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.stop()
		<-done
	}
	p.stop()
	logger.System("Pool de aprovisionamiento detenido", "Provision")
}
