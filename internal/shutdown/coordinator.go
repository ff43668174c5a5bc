// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotandev/tlsign/internal/logger"
)

type HookFunc func(context.Context) error

type hook struct {
	name string
	fn   HookFunc
}

// ErrHookPanicked marks a hook that panicked instead of returning.
var ErrHookPanicked = errors.New("shutdown hook panicked")

// Coordinator runs registered shutdown hooks exactly once in LIFO order.
// A hook that panics or outlives its share of the deadline is reported and
// the remaining hooks still run.
type Coordinator struct {
	mu   sync.Mutex
	hook []hook
	ran  bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		hook: make([]hook, 0),
	}
}

func (c *Coordinator) Register(name string, fn HookFunc) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return
	}

	c.hook = append(c.hook, hook{name: name, fn: fn})
}

func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil
	}
	c.ran = true
	hooks := make([]hook, len(c.hook))
	copy(hooks, c.hook)
	c.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		hookCtx, cancel := perHookContext(ctx, i+1)
		start := time.Now()
		err := runHook(hookCtx, h.fn)
		cancel()
		if err != nil {
			logger.Logger.Warn("Shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		logger.Logger.Debug("Shutdown hook finished", "hook", h.name, "elapsed", time.Since(start))
	}

	return errors.Join(errs...)
}

// runHook waits for fn until ctx is done. A hook still running at that point
// is abandoned and ctx's error is returned.
func runHook(ctx context.Context, fn HookFunc) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("%w: %v", ErrHookPanicked, rec)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("abandoned after deadline: %w", ctx.Err())
	}
}

func perHookContext(ctx context.Context, hooksRemaining int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || hooksRemaining <= 0 {
		return context.WithCancel(ctx)
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return context.WithTimeout(ctx, time.Millisecond)
	}

	perHook := remaining / time.Duration(hooksRemaining)
	if perHook <= 0 {
		perHook = remaining
	}
	return context.WithTimeout(ctx, perHook)
}
