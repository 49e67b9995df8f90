package test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/payment"
	"github.com/irsalhamdi/tuition-lms/outbox"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestOutboxRelay(t *testing.T) {
	env, err := NewTestEnv(t, "outbox_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	rt := &reconcileTest{env}

	jan := rt.createMonth(t, "January", 1500, true)

	rt.login(t, rt.UserEmail, rt.UserPass)
	ord := rt.placeOrder(t, order.MethodPayhere, jan)
	rt.logout(t)

	code, err := rt.notifyPayhere(rt.payhereForm(ord.ID, "1500.00", "2", "320025071300"))
	if err != nil || code != http.StatusOK {
		t.Fatalf("notification: code %d, err %v", code, err)
	}

	ctx := context.Background()
	cfg := config.Kafka{PollInterval: time.Second, BatchSize: 10}

	broken := &fakeWriter{err: errors.New("broker unavailable")}
	if _, err := outbox.NewRelay(env.DB, broken, env.Log, cfg).Flush(ctx); err == nil {
		t.Fatal("expected flush to fail with a broken writer")
	}
	if n := rt.count(t, `SELECT count(*) FROM outbox_messages WHERE status = 'pending'`); n != 1 {
		t.Fatalf("failed publish must keep the message pending, got %d pending", n)
	}

	w := &fakeWriter{}
	relay := outbox.NewRelay(env.DB, w, env.Log, cfg)

	sent, err := relay.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || len(w.msgs) != 1 {
		t.Fatalf("expected one published message, got %d (%d written)", sent, len(w.msgs))
	}

	msg := w.msgs[0]
	if msg.Topic != payment.StatusTopic || string(msg.Key) != ord.ID {
		t.Fatalf("unexpected message %s/%s", msg.Topic, msg.Key)
	}

	var ev payment.StatusChanged
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.From != order.Pending || ev.To != order.Completed || ev.BuyerID != rt.UserID || len(ev.Months) != 1 || ev.Months[0] != jan.ID {
		t.Fatalf("unexpected event %+v", ev)
	}

	sent, err = relay.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 {
		t.Fatalf("expected nothing left to publish, got %d", sent)
	}
}
