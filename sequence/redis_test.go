package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

func TestRedisIncrement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("connecting to docker: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting redis: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	res.Expire(120)

	var client *redis.Client
	err = pool.Retry(func() error {
		c, err := DialRedis(fmt.Sprintf("redis://%s/0", res.GetHostPort("6379/tcp")))
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		t.Fatalf("connecting to redis: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	backend := NewRedis(client, "test:seq")

	if err := client.Set(ctx, "test:seq:"+StudentID, 10, 0).Err(); err != nil {
		t.Fatal(err)
	}

	const n = 50
	got := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := backend.Increment(ctx, StudentID)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			got[i] = int(v)
		}(i)
	}
	wg.Wait()

	sort.Ints(got)
	for i, v := range got {
		if v != 10+i+1 {
			t.Fatalf("position %d: expected %d, got %d", i, 10+i+1, v)
		}
	}

	fresh, err := backend.Increment(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}
	if fresh != 1 {
		t.Fatalf("new sequence should start at 1, got %d", fresh)
	}
}
