package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func redisInit(t *testing.T, ttl time.Duration) *RedisLocker {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	cli, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return NewRedisLocker(cli, ttl, nil)
}

func TestRedisLockerExclusive(t *testing.T) {
	locker := redisInit(t, time.Minute)
	ctx := context.Background()
	initiator := "G" + uuid.NewString()

	release, err := locker.Acquire(ctx, initiator)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := locker.Acquire(ctx, initiator); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	release, err = locker.Acquire(ctx, initiator)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestRedisLockerOutlivesTTLWhileHeld(t *testing.T) {
	locker := redisInit(t, 300*time.Millisecond)
	ctx := context.Background()
	initiator := "G" + uuid.NewString()

	release, err := locker.Acquire(ctx, initiator)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	time.Sleep(time.Second)
	if _, err := locker.Acquire(ctx, initiator); !errors.Is(err, ErrHeld) {
		t.Fatalf("lock lapsed while held: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}

	release, err = locker.Acquire(ctx, initiator)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestNewRedisClientBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
