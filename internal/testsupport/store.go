package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portalsync/internal/config"
	"portalsync/internal/kvstore"
)

// MustOpenStore opens the durable store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg.StorePath())
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ErrInjected is returned by FaultStorage when a failure is armed.
var ErrInjected = errors.New("injected storage failure")

// FaultStorage is an in-memory key-value store whose reads and writes can be
// made to fail on demand.
type FaultStorage struct {
	mu       sync.Mutex
	data     map[string][]byte
	failPut  bool
	failGet  bool
	putCalls int
}

// NewFaultStorage returns an empty FaultStorage.
func NewFaultStorage() *FaultStorage {
	return &FaultStorage{data: make(map[string][]byte)}
}

// FailPuts arms or disarms write failures.
func (s *FaultStorage) FailPuts(fail bool) {
	s.mu.Lock()
	s.failPut = fail
	s.mu.Unlock()
}

// FailGets arms or disarms read failures.
func (s *FaultStorage) FailGets(fail bool) {
	s.mu.Lock()
	s.failGet = fail
	s.mu.Unlock()
}

// Puts reports how many writes were attempted.
func (s *FaultStorage) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCalls
}

// Raw returns the stored bytes for key.
func (s *FaultStorage) Raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data[key]...)
}

func (s *FaultStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, false, ErrInjected
	}
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *FaultStorage) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPut {
		return ErrInjected
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}
