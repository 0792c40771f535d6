// Package lifecycle coordinates startup and shutdown hooks across the
// service's subsystems.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout is returned when shutdown hooks outlive the timeout.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Coordinator runs named startup and shutdown hooks. Hooks start running
// as soon as they are registered.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup  sync.WaitGroup
	shutdown sync.WaitGroup
	ready    atomic.Bool

	mu       sync.Mutex
	starting map[string]int
	stopping map[string]int
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		starting: make(map[string]int),
		stopping: make(map[string]int),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently with the other startup hooks.
func (c *Coordinator) OnStartup(name string, fn func()) {
	c.track(&c.startup, c.starting, name, fn)
}

// OnShutdown runs fn concurrently. fn should block on <-c.Context().Done()
// before cleaning up. name identifies the hook if shutdown times out.
func (c *Coordinator) OnShutdown(name string, fn func()) {
	c.track(&c.shutdown, c.stopping, name, fn)
}

func (c *Coordinator) track(wg *sync.WaitGroup, set map[string]int, name string, fn func()) {
	c.mu.Lock()
	set[name]++
	c.mu.Unlock()

	wg.Go(func() {
		defer func() {
			c.mu.Lock()
			if set[name]--; set[name] <= 0 {
				delete(set, name)
			}
			c.mu.Unlock()
		}()
		fn()
	})
}

// Starting returns the names of startup hooks still running, sorted.
func (c *Coordinator) Starting() []string {
	return c.names(c.starting)
}

// Pending returns the names of shutdown hooks that have not returned, sorted.
func (c *Coordinator) Pending() []string {
	return c.names(c.stopping)
}

func (c *Coordinator) names(set map[string]int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Ready reports whether WaitForStartup has returned.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until every startup hook returns, then marks the
// coordinator ready.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.ready.Store(true)
}

// Shutdown cancels the context and waits up to timeout for the shutdown
// hooks. The coordinator is no longer ready once Shutdown begins.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdown.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w after %v: waiting on %v", ErrShutdownTimeout, timeout, c.Pending())
	}
}
