// Package errors provides panic recovery and error-rate monitoring for the bot.
// Goroutines started by the scheduler, the provisioning pool and command
// handlers defer RecoverMiddleware so a panic is counted and reported instead
// of crashing the process. Too many errors inside one interval trigger a
// controlled shutdown.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

// Handler manages error counting and reporting
type Handler struct {
	errorCount    int32
	webhookURL    string
	stopOnce      sync.Once
	stopChan      chan struct{}
	shutdownFunc  func()
	exitFunc      func(code int)
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
	client        *http.Client
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMaxErrors sets how many errors per reset interval are tolerated.
func WithMaxErrors(n int32) Option {
	return func(h *Handler) { h.maxErrors = n }
}

// WithIntervals overrides the reset and check intervals.
func WithIntervals(reset, check time.Duration) Option {
	return func(h *Handler) {
		h.resetInterval = reset
		h.checkInterval = check
	}
}

// WithExit replaces os.Exit, used by tests.
func WithExit(fn func(code int)) Option {
	return func(h *Handler) { h.exitFunc = fn }
}

var (
	handler *Handler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func(), opts ...Option) *Handler {
	once.Do(func() {
		handler = NewHandler(webhookURL, shutdownFunc, opts...)
	})
	return handler
}

// Get returns the global error handler instance
func Get() *Handler {
	return handler
}

// NewHandler creates a Handler and starts its monitoring goroutines.
func NewHandler(webhookURL string, shutdownFunc func(), opts ...Option) *Handler {
	h := &Handler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exitFunc:      os.Exit,
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.start()
	return h
}

func (h *Handler) start() {
	go func() {
		ticker := time.NewTicker(h.resetInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				atomic.StoreInt32(&h.errorCount, 0)
			case <-h.stopChan:
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if atomic.LoadInt32(&h.errorCount) > h.maxErrors {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *Handler) shutdown() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "AntiCrash")
	logger.Warn("Apagando...", "AntiCrash")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "AntiCrash")
	h.exitFunc(1)
}

// Stop stops the monitoring goroutines. It is safe to call more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// ErrorCount returns the number of errors seen in the current interval.
func (h *Handler) ErrorCount() int32 {
	return atomic.LoadInt32(&h.errorCount)
}

// IncrementError increments the error count
func (h *Handler) IncrementError() {
	count := atomic.AddInt32(&h.errorCount, 1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// HandlePanic handles a recovered panic raised inside the named unit of work.
func (h *Handler) HandlePanic(label string, recovered interface{}) {
	h.IncrementError()
	logger.Error(fmt.Sprintf("Panic en %s: %v", label, recovered), "AntiCrash")
}

// Report sends an error report to the Discord webhook
func (h *Handler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"author": map[string]string{
					"name": fmt.Sprintf("Error %s", data.Error),
				},
				"description": data.Message,
				"color":       0xFF0000,
				"footer": map[string]string{
					"text": "VPS Bot",
				},
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create webhook request: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent ErrorReport to Webhook, Status: %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls:
//
//	defer errors.RecoverMiddleware("giveaway")()
func RecoverMiddleware(label string) func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(label, r)
			} else {
				logger.Error(fmt.Sprintf("Panic recovered in %s (no handler): %v", label, r), "AntiCrash")
			}
		}
	}
}

// Go runs fn in a new goroutine guarded by RecoverMiddleware.
func Go(label string, fn func()) {
	go func() {
		defer RecoverMiddleware(label)()
		fn()
	}()
}
