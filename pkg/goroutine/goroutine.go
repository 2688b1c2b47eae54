// Package goroutine runs fire-and-forget work, such as OTP delivery, with a
// concurrency cap and a way to drain it on shutdown.
package goroutine

import (
	"context"
	"errors"
	"runtime"
	"runtime/debug"
	"sync"

	"customer-auth/pkg/logger"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs functions in goroutines with a configurable concurrency limit.
type Manager struct {
	logger *logger.Logger

	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a Manager that runs at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int, log *logger.Logger) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		logger: log,
		sema:   make(chan struct{}, maxGoroutine),
	}
}

// Go schedules f. When the manager is closed or saturated, f is dropped and a
// warning is logged. Returns whether f was scheduled.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		g.logger.Warnw("Goroutine manager is closed, dropping task")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.logger.Warnw("Maximum goroutine limit reached, dropping task", "limit", cap(g.sema))
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			<-g.sema
			if rvr := recover(); rvr != nil {
				g.logger.Errorw("Panic in background task", "panic", rvr, "stack", string(debug.Stack()))
			}
		}()

		if err := ctx.Err(); err != nil {
			g.logger.Warnw("Background task canceled before start", "error", err)
			return
		}
		if err := f(ctx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	}()

	return true
}

// Wait stops accepting new tasks, blocks until running ones finish and
// returns the errors they reported.
func (g *Manager) Wait() error {
	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
