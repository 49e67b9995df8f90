package background

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func newLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestShutdownWaitsForTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	bg := New(newLogger())

	var done int32
	for i := 0; i < 5; i++ {
		err := bg.Add(func() {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&done, 1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := bg.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := atomic.LoadInt32(&done); got != 5 {
		t.Fatalf("expected 5 finished tasks, got %d", got)
	}

	if err := bg.Add(func() {}); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}

func TestShutdownTimeout(t *testing.T) {
	bg := New(newLogger())

	release := make(chan struct{})
	if err := bg.Add(func() { <-release }); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := bg.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	defer goleak.VerifyNone(t)

	bg := New(newLogger())
	if err := bg.Add(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	if err := bg.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
