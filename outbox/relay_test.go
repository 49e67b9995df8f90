package outbox

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func TestRelayStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := NewRelay(nil, nil, log, config.Kafka{PollInterval: time.Hour, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
