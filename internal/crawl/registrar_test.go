package crawl_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonesrussell/gosearch/internal/crawl"
	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/logger"
)

const registrarTestMaxDepth = 3

// --- Mock implementations ---

// mockRegistrationStore implements crawl.RegistrationStore for testing.
type mockRegistrationStore struct {
	mu       sync.Mutex
	calls    []database.RegisterParams
	existing map[string]bool
	errFor   string
}

func (m *mockRegistrationStore) Register(_ context.Context, params database.RegisterParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errFor != "" && params.URL == m.errFor {
		return false, errors.New("database unavailable")
	}

	m.calls = append(m.calls, params)

	if m.existing[params.URL] {
		return false, nil
	}

	return true, nil
}

func (m *mockRegistrationStore) registered() []database.RegisterParams {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]database.RegisterParams(nil), m.calls...)
}

// mockRobotsPolicy implements crawl.RobotsPolicy for testing.
type mockRobotsPolicy struct {
	disallowed map[string]bool
	err        error
}

func (m *mockRobotsPolicy) Allowed(_ context.Context, rawURL string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}

	return !m.disallowed[rawURL], nil
}

// mockTrapPolicy implements crawl.TrapPolicy for testing.
type mockTrapPolicy struct {
	anomalous map[string]bool
}

func (m *mockTrapPolicy) IsAnomalous(rawURL string) bool {
	return m.anomalous[rawURL]
}

// --- Test helpers ---

func newTestRegistrar(
	t *testing.T,
	store *mockRegistrationStore,
	robots *mockRobotsPolicy,
	traps *mockTrapPolicy,
) *crawl.Registrar {
	t.Helper()

	if robots == nil {
		robots = &mockRobotsPolicy{}
	}

	if traps == nil {
		traps = &mockTrapPolicy{}
	}

	return crawl.NewRegistrar(store, robots, traps, logger.NewNop(), registrarTestMaxDepth)
}

// --- Tests ---

func TestRegisterSeed(t *testing.T) {
	t.Parallel()

	store := &mockRegistrationStore{}
	r := newTestRegistrar(t, store, nil, nil)

	created, err := r.RegisterSeed(context.Background(), "https://Example.COM/start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !created {
		t.Error("expected seed to be created")
	}

	calls := store.registered()
	if len(calls) != 1 {
		t.Fatalf("expected 1 register call, got %d", len(calls))
	}

	if calls[0].Domain != "example.com" {
		t.Errorf("expected lowercased domain, got %q", calls[0].Domain)
	}

	if calls[0].Depth != 0 {
		t.Errorf("expected seed depth 0, got %d", calls[0].Depth)
	}
}

func TestRegisterSeed_MissingHost(t *testing.T) {
	t.Parallel()

	store := &mockRegistrationStore{}
	r := newTestRegistrar(t, store, nil, nil)

	if _, err := r.RegisterSeed(context.Background(), "example.com/no-scheme"); err == nil {
		t.Fatal("expected error for URL without host, got nil")
	}

	if len(store.registered()) != 0 {
		t.Error("expected no register calls for invalid seed")
	}
}

func TestRegisterDiscovered(t *testing.T) {
	t.Parallel()

	store := &mockRegistrationStore{}
	r := newTestRegistrar(t, store, nil, nil)

	links := []string{
		"https://example.com/a",
		"https://example.com/b",
	}

	created := r.RegisterDiscovered(context.Background(), links, 1)
	if created != 2 {
		t.Errorf("expected 2 created, got %d", created)
	}

	calls := store.registered()
	if len(calls) != 2 {
		t.Fatalf("expected 2 register calls, got %d", len(calls))
	}

	for _, call := range calls {
		if call.Depth != 2 {
			t.Errorf("expected discovered depth 2, got %d", call.Depth)
		}

		if call.Domain != "example.com" {
			t.Errorf("expected domain example.com, got %q", call.Domain)
		}
	}
}

func TestRegisterDiscovered_DepthCutoff(t *testing.T) {
	t.Parallel()

	store := &mockRegistrationStore{}
	r := newTestRegistrar(t, store, nil, nil)

	created := r.RegisterDiscovered(context.Background(), []string{"https://example.com/deep"}, registrarTestMaxDepth)
	if created != 0 {
		t.Errorf("expected 0 created past max depth, got %d", created)
	}

	if len(store.registered()) != 0 {
		t.Error("expected no register calls past max depth")
	}
}

func TestRegisterDiscovered_LastAllowedDepth(t *testing.T) {
	t.Parallel()

	store := &mockRegistrationStore{}
	r := newTestRegistrar(t, store, nil, nil)

	created := r.RegisterDiscovered(context.Background(), []string{"https://example.com/edge"}, registrarTestMaxDepth-1)
	if created != 1 {
		t.Errorf("expected link at max depth to register, got %d created", created)
	}
}

func TestRegisterDiscovered_SkipsAnomalous(t *testing.T) {
	t.Parallel()

	trap := "https://example.com/cal/2026/2026/2026/2026"
	store := &mockRegistrationStore{}
	traps := &mockTrapPolicy{anomalous: map[string]bool{trap: true}}
	r := newTestRegistrar(t, store, nil, traps)

	links := []string{trap, "https://example.com/ok"}

	created := r.RegisterDiscovered(context.Background(), links, 0)
	if created != 1 {
		t.Errorf("expected 1 created, got %d", created)
	}

	calls := store.registered()
	if len(calls) != 1 || calls[0].URL != "https://example.com/ok" {
		t.Errorf("expected only the clean link registered, got %+v", calls)
	}
}

func TestRegisterDiscovered_SkipsRobotsDisallowed(t *testing.T) {
	t.Parallel()

	blocked := "https://example.com/private/page"
	store := &mockRegistrationStore{}
	robots := &mockRobotsPolicy{disallowed: map[string]bool{blocked: true}}
	r := newTestRegistrar(t, store, robots, nil)

	links := []string{blocked, "https://example.com/public"}

	created := r.RegisterDiscovered(context.Background(), links, 0)
	if created != 1 {
		t.Errorf("expected 1 created, got %d", created)
	}

	calls := store.registered()
	if len(calls) != 1 || calls[0].URL != "https://example.com/public" {
		t.Errorf("expected only the allowed link registered, got %+v", calls)
	}
}

func TestRegisterDiscovered_CountsOnlyNewRows(t *testing.T) {
	t.Parallel()

	known := "https://example.com/known"
	store := &mockRegistrationStore{existing: map[string]bool{known: true}}
	r := newTestRegistrar(t, store, nil, nil)

	links := []string{known, "https://example.com/new"}

	created := r.RegisterDiscovered(context.Background(), links, 0)
	if created != 1 {
		t.Errorf("expected 1 created for the new row, got %d", created)
	}

	if len(store.registered()) != 2 {
		t.Errorf("expected both links attempted, got %d calls", len(store.registered()))
	}
}

func TestRegisterDiscovered_ContinuesAfterStoreError(t *testing.T) {
	t.Parallel()

	failing := "https://example.com/failing"
	store := &mockRegistrationStore{errFor: failing}
	r := newTestRegistrar(t, store, nil, nil)

	links := []string{failing, "https://example.com/after"}

	created := r.RegisterDiscovered(context.Background(), links, 0)
	if created != 1 {
		t.Errorf("expected the second link to register after the first failed, got %d created", created)
	}
}
