package crawl_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/gosearch/internal/crawl"
	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/metrics"
	"github.com/jonesrussell/gosearch/internal/queue"
)

const (
	workerTestAgent          = "TestBot/1.0"
	workerTestMaxDepth       = 3
	workerTestJobTimeout     = 5 * time.Second
	workerTestRequestTimeout = 5 * time.Second
	workerTestIdleDelay      = 10 * time.Millisecond
)

const workerTestHTML = `<!DOCTYPE html>
<html>
<head><title>Worker Test Article</title></head>
<body>
  <p>Body text for the worker pipeline.</p>
  <a href="/discovered">next</a>
</body>
</html>`

// --- Mock implementations ---

// mockWorkSource implements crawl.WorkSource for testing.
type mockWorkSource struct {
	mu        sync.Mutex
	readFunc  func(ctx context.Context) ([]*queue.WorkItem, error)
	readCalls int
	acked     []string
}

func (m *mockWorkSource) Read(ctx context.Context) ([]*queue.WorkItem, error) {
	m.mu.Lock()
	m.readCalls++
	m.mu.Unlock()

	return m.readFunc(ctx)
}

func (m *mockWorkSource) Acknowledge(_ context.Context, item *queue.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acked = append(m.acked, item.MessageID)

	return nil
}

func (m *mockWorkSource) getReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.readCalls
}

func (m *mockWorkSource) ackedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.acked...)
}

// mockCompletionStore implements crawl.CompletionStore for testing.
type mockCompletionStore struct {
	mu    sync.Mutex
	calls []completionCall
}

type completionCall struct {
	URL     string
	Success bool
}

func (m *mockCompletionStore) Complete(_ context.Context, url string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, completionCall{URL: url, Success: success})

	return nil
}

func (m *mockCompletionStore) completions() []completionCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]completionCall(nil), m.calls...)
}

// mockPageIndexer implements crawl.PageIndexer for testing.
type mockPageIndexer struct {
	mu      sync.Mutex
	records []*domain.PageRecord
	err     error
}

func (m *mockPageIndexer) Index(_ context.Context, record *domain.PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.records = append(m.records, record)

	return nil
}

func (m *mockPageIndexer) indexed() []*domain.PageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*domain.PageRecord(nil), m.records...)
}

// mockQuotaRecorder implements crawl.QuotaRecorder for testing.
type mockQuotaRecorder struct {
	mu      sync.Mutex
	domains []string
}

func (m *mockQuotaRecorder) RegisterSuccess(_ context.Context, dom string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.domains = append(m.domains, dom)

	return nil
}

func (m *mockQuotaRecorder) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.domains...)
}

// --- Test helpers ---

type workerTestDeps struct {
	source   *mockWorkSource
	store    *mockCompletionStore
	indexer  *mockPageIndexer
	quota    *mockQuotaRecorder
	regStore *mockRegistrationStore
}

// newTestWorkerPool builds a single-worker pool backed by recording mocks
// and a real fetch, parse, register pipeline.
func newTestWorkerPool(t *testing.T, deps workerTestDeps) *crawl.WorkerPool {
	t.Helper()

	registrar := crawl.NewRegistrar(
		deps.regStore,
		&mockRobotsPolicy{},
		&mockTrapPolicy{},
		logger.NewNop(),
		workerTestMaxDepth,
	)

	cfg := crawl.WorkerPoolConfig{
		WorkerCount: 1,
		JobTimeout:  workerTestJobTimeout,
		IdleDelay:   workerTestIdleDelay,
	}

	return crawl.NewWorkerPool(
		deps.source,
		deps.store,
		deps.indexer,
		registrar,
		crawl.NewFetcher(workerTestRequestTimeout, workerTestAgent),
		crawl.NewHTMLParser(crawl.NewLinkExtractor()),
		deps.quota,
		logger.NewNop(),
		metrics.New(prometheus.NewRegistry()),
		cfg,
	)
}

func newWorkerTestDeps() workerTestDeps {
	return workerTestDeps{
		source:   &mockWorkSource{},
		store:    &mockCompletionStore{},
		indexer:  &mockPageIndexer{},
		quota:    &mockQuotaRecorder{},
		regStore: &mockRegistrationStore{},
	}
}

func serverHost(t *testing.T, serverURL string) string {
	t.Helper()

	parsed, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}

	return parsed.Host
}

// --- Tests ---

func TestProcess_Success(t *testing.T) {
	t.Parallel()

	server := startHTMLServer(t, http.StatusOK, workerTestHTML)
	deps := newWorkerTestDeps()
	wp := newTestWorkerPool(t, deps)

	item := &queue.WorkItem{MessageID: "1-0", URL: server.URL + "/article", Depth: 1}

	wp.Process(context.Background(), item)

	verifyCompleted(t, deps.store, item.URL, true)

	indexed := deps.indexer.indexed()
	if len(indexed) != 1 {
		t.Fatalf("expected 1 indexed record, got %d", len(indexed))
	}

	if indexed[0].Title != "Worker Test Article" {
		t.Errorf("expected parsed title, got %q", indexed[0].Title)
	}

	registered := deps.regStore.registered()
	if len(registered) != 1 {
		t.Fatalf("expected 1 discovered link registered, got %d", len(registered))
	}

	if registered[0].Depth != item.Depth+1 {
		t.Errorf("expected discovered depth %d, got %d", item.Depth+1, registered[0].Depth)
	}

	quotaDomains := deps.quota.recorded()
	if len(quotaDomains) != 1 || quotaDomains[0] != serverHost(t, server.URL) {
		t.Errorf("expected quota recorded for %q, got %v", serverHost(t, server.URL), quotaDomains)
	}

	verifyAcked(t, deps.source, item.MessageID)
}

func TestProcess_FetchFailure(t *testing.T) {
	t.Parallel()

	server := startHTMLServer(t, http.StatusInternalServerError, "error")
	deps := newWorkerTestDeps()
	wp := newTestWorkerPool(t, deps)

	item := &queue.WorkItem{MessageID: "2-0", URL: server.URL + "/broken", Depth: 0}

	wp.Process(context.Background(), item)

	verifyCompleted(t, deps.store, item.URL, false)

	if len(deps.indexer.indexed()) != 0 {
		t.Error("expected no index calls after fetch failure")
	}

	if len(deps.quota.recorded()) != 0 {
		t.Error("expected no quota recording after fetch failure")
	}

	verifyAcked(t, deps.source, item.MessageID)
}

func TestProcess_NonHTMLContent(t *testing.T) {
	t.Parallel()

	server := startPlainServer(t, "application/json", `{"not": "html"}`)
	deps := newWorkerTestDeps()
	wp := newTestWorkerPool(t, deps)

	item := &queue.WorkItem{MessageID: "3-0", URL: server.URL + "/feed.json", Depth: 0}

	wp.Process(context.Background(), item)

	verifyCompleted(t, deps.store, item.URL, false)

	if len(deps.indexer.indexed()) != 0 {
		t.Error("expected no index calls for non-HTML content")
	}
}

func TestProcess_IndexerError(t *testing.T) {
	t.Parallel()

	server := startHTMLServer(t, http.StatusOK, workerTestHTML)
	deps := newWorkerTestDeps()
	deps.indexer.err = errors.New("postgres unavailable")
	wp := newTestWorkerPool(t, deps)

	item := &queue.WorkItem{MessageID: "4-0", URL: server.URL + "/article", Depth: 0}

	wp.Process(context.Background(), item)

	verifyCompleted(t, deps.store, item.URL, false)

	if len(deps.quota.recorded()) != 0 {
		t.Error("expected no quota recording after index failure")
	}

	verifyAcked(t, deps.source, item.MessageID)
}

func TestProcess_DepthLimitStopsDiscovery(t *testing.T) {
	t.Parallel()

	server := startHTMLServer(t, http.StatusOK, workerTestHTML)
	deps := newWorkerTestDeps()
	wp := newTestWorkerPool(t, deps)

	item := &queue.WorkItem{MessageID: "5-0", URL: server.URL + "/leaf", Depth: workerTestMaxDepth}

	wp.Process(context.Background(), item)

	verifyCompleted(t, deps.store, item.URL, true)

	if len(deps.regStore.registered()) != 0 {
		t.Errorf("expected no links registered at max depth, got %d", len(deps.regStore.registered()))
	}
}

func TestWorkerPool_ProcessesQueuedItem(t *testing.T) {
	t.Parallel()

	server := startHTMLServer(t, http.StatusOK, workerTestHTML)
	deps := newWorkerTestDeps()

	item := &queue.WorkItem{MessageID: "6-0", URL: server.URL + "/queued", Depth: 0}

	var delivered atomic.Bool

	deps.source.readFunc = func(_ context.Context) ([]*queue.WorkItem, error) {
		if delivered.CompareAndSwap(false, true) {
			return []*queue.WorkItem{item}, nil
		}

		return nil, nil
	}

	wp := newTestWorkerPool(t, deps)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = wp.Start(ctx)

	verifyCompleted(t, deps.store, item.URL, true)
	verifyAcked(t, deps.source, item.MessageID)
}

func TestWorkerPool_IdlesWhenQueueEmpty(t *testing.T) {
	t.Parallel()

	deps := newWorkerTestDeps()
	deps.source.readFunc = func(_ context.Context) ([]*queue.WorkItem, error) {
		return nil, nil
	}

	wp := newTestWorkerPool(t, deps)

	ctx, cancel := context.WithTimeout(context.Background(), workerTestIdleDelay*4)
	defer cancel()

	_ = wp.Start(ctx)

	// After ~4 idle delays, the worker should have polled at least twice.
	minExpectedReads := 2
	if reads := deps.source.getReadCalls(); reads < minExpectedReads {
		t.Errorf("expected at least %d reads, got %d", minExpectedReads, reads)
	}
}

func TestWorkerPool_StopsOnReadErrorWhenCancelled(t *testing.T) {
	t.Parallel()

	deps := newWorkerTestDeps()

	ctx, cancel := context.WithCancel(context.Background())

	deps.source.readFunc = func(readCtx context.Context) ([]*queue.WorkItem, error) {
		cancel()

		return nil, readCtx.Err()
	}

	wp := newTestWorkerPool(t, deps)

	done := make(chan struct{})

	go func() {
		_ = wp.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker pool did not stop after context cancellation")
	}
}

// --- Verification helpers ---

func verifyCompleted(t *testing.T, store *mockCompletionStore, url string, success bool) {
	t.Helper()

	calls := store.completions()
	if len(calls) == 0 {
		t.Fatal("expected Complete to be called, but it was not")
	}

	last := calls[len(calls)-1]
	if last.URL != url || last.Success != success {
		t.Errorf("expected Complete(%q, %v), got Complete(%q, %v)", url, success, last.URL, last.Success)
	}
}

func verifyAcked(t *testing.T, source *mockWorkSource, messageID string) {
	t.Helper()

	for _, id := range source.ackedIDs() {
		if id == messageID {
			return
		}
	}

	t.Errorf("expected message %q to be acknowledged", messageID)
}

// startPlainServer serves a fixed body with the given content type.
func startPlainServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))

	t.Cleanup(server.Close)

	return server
}
