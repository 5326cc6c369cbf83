package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}

	client, err := NewClient(addr, "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	locker := NewLocker(client, 5*time.Second)
	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	release, ok, err := locker.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first Acquire() = %v, %v; want ok", ok, err)
	}

	if _, ok, err := locker.Acquire(ctx, key); err != nil || ok {
		t.Fatalf("second Acquire() = %v, %v; want held", ok, err)
	}

	release()
	release2, ok, err := locker.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Acquire() after release = %v, %v; want ok", ok, err)
	}
	release2()
}
