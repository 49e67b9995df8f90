package background

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrShuttingDown = errors.New("background tasks are shutting down")

// Background runs tasks outside the request that started them and lets the
// server wait for them on shutdown.
type Background struct {
	log      logrus.FieldLogger
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Add runs fn in its own goroutine. A panicking task is logged, not fatal.
func (b *Background) Add(fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown {
		return ErrShuttingDown
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", fmt.Sprint(rec)).Error("background task panicked")
			}
		}()

		fn()
	}()

	return nil
}

// Shutdown refuses new tasks and waits for the running ones until ctx is done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
