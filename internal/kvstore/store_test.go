package kvstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"portalsync/internal/kvstore"
	"portalsync/internal/services"
)

func openStore(t *testing.T, path string) *kvstore.Store {
	t.Helper()
	store, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "kv.db"))

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}
	if err := store.Put(ctx, "backend_mode", []byte("demo")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "backend_mode", []byte("live")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	value, found, err := store.Get(ctx, "backend_mode")
	if err != nil || !found || string(value) != "live" {
		t.Fatalf("Get = %q found=%v err=%v", value, found, err)
	}
	keys, err := store.Keys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "backend_mode" {
		t.Fatalf("Keys = %v err=%v", keys, err)
	}
	if err := store.Delete(ctx, "backend_mode"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := store.Get(ctx, "backend_mode"); found {
		t.Fatal("expected key removed")
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	first, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Put(ctx, "offline_queue", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := openStore(t, path)
	value, found, err := second.Get(ctx, "offline_queue")
	if err != nil || !found || string(value) != `{"version":1}` {
		t.Fatalf("after reopen Get = %q found=%v err=%v", value, found, err)
	}
}

func TestEmptyKeyIsStorageError(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "kv.db"))
	err := store.Put(context.Background(), " ", []byte("x"))
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestGetAfterCloseIsStorageError(t *testing.T) {
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()
	if _, _, err := store.Get(context.Background(), "k"); services.KindOf(err) != services.KindStorage {
		t.Fatalf("expected storage kind, got %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "kv.db"))
	if err := store.Put(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck || health.TotalKeys != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}
