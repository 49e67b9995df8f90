package rate

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLimiter(t *testing.T) {
	burst := 1

	interval := 10 * time.Millisecond
	r := NewLimiter(burst, time.Hour, Every(interval))

	tooshort := 1 * time.Millisecond

	client := "10.0.0.1"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := r.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	client := "10.0.0.1"
	burst := 10

	interval := 100 * time.Millisecond
	r := NewLimiter(burst, time.Hour, Every(interval))

	for i := 0; i < burst; i++ {
		if !r.Check(client) {
			t.Fatalf("request %d inside the burst was refused", i)
		}
	}
	if r.Check(client) {
		t.Fatal("request past the burst was allowed")
	}

	time.Sleep(interval + 10*time.Millisecond)
	if !r.Check(client) {
		t.Fatal("bucket did not refill after one interval")
	}

	if !r.Check("10.0.0.2") {
		t.Fatal("another client shares the exhausted bucket")
	}
}

func TestEvict(t *testing.T) {
	r := NewLimiter(1, time.Minute, Every(time.Hour))

	r.Check("idle")
	r.Check("active")

	now := time.Now()
	r.mu.Lock()
	r.clients["idle"].lastAccess = now.Add(-2 * time.Minute)
	r.mu.Unlock()

	if n := r.Evict(now); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 tracked client, got %d", r.Len())
	}

	// An evicted client starts again with a full bucket.
	if !r.Check("idle") {
		t.Fatal("evicted client was still limited")
	}
	if r.Check("active") {
		t.Fatal("active client kept its exhausted bucket, expected a refusal")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewLimiter(1, time.Millisecond, Every(time.Hour))
	r.Check("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle client was never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
