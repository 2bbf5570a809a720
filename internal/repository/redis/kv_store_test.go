package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/homescout-onboarding/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestKeyValueStore_SetGetDelete(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKeyValueStore(client, "nav", 0)

	ctx := context.Background()
	if err := store.Set(ctx, "install-1", []byte(`{"currentScreen":"search"}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if !server.Exists("nav:install-1") {
		t.Fatalf("expected key nav:install-1 to exist")
	}
	if ttl := server.TTL("nav:install-1"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}

	value, err := store.Get(ctx, "install-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != `{"currentScreen":"search"}` {
		t.Fatalf("unexpected value %s", value)
	}

	if err := store.Delete(ctx, "install-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "install-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "install-1"); err != nil {
		t.Fatalf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestKeyValueStore_OverwriteAppliesTTL(t *testing.T) {
	client, server := newTestRedis(t)
	ttl := 24 * time.Hour
	store := NewKeyValueStore(client, "", ttl)

	ctx := context.Background()
	if err := store.Set(ctx, "install-2", []byte("first")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "install-2", []byte("second")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := store.Get(ctx, "install-2")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != "second" {
		t.Fatalf("expected overwrite, got %s", value)
	}

	remaining := server.TTL(defaultKeyPrefix + ":install-2")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}

	server.FastForward(ttl + time.Second)
	if _, err := store.Get(ctx, "install-2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestKeyValueStore_InvalidKey(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewKeyValueStore(client, "nav", 0)

	if err := store.Set(context.Background(), "  ", []byte("x")); !errors.Is(err, repository.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, repository.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := store.Delete(context.Background(), ""); !errors.Is(err, repository.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
