package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a Redis client for testing.
// Requires Redis running on localhost:6379.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}
	return client
}

func TestNew(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil client")
	}

	store, err := New(redis.NewClient(&redis.Options{}), Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if store.config.KeyPrefix != "entitlement:" {
		t.Errorf("expected default key prefix, got %q", store.config.KeyPrefix)
	}
}

func TestRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store, err := New(client, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "guestAction:exportResume")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}

	if err := store.Set(ctx, "guestAction:exportResume", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get(ctx, "guestAction:exportResume")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != "1" {
		t.Errorf("expected (\"1\", true), got (%q, %v)", value, ok)
	}

	// Keys are stored under the configured prefix.
	stored, err := client.Get(ctx, "entitlement:guestAction:exportResume").Result()
	if err != nil || stored != "1" {
		t.Errorf("expected prefixed key with value \"1\", got (%q, %v)", stored, err)
	}

	if err := store.Delete(ctx, "guestAction:exportResume", "guestAction:saveResume"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, _ = store.Get(ctx, "guestAction:exportResume")
	if ok {
		t.Error("expected key to be deleted")
	}
}

func TestDeleteNoKeys(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store, _ := New(client, DefaultConfig())
	if err := store.Delete(context.Background()); err != nil {
		t.Errorf("Delete with no keys should be a no-op, got %v", err)
	}
}
