package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wakewatch/internal/models"
	"wakewatch/internal/storage"
)

type manualTask struct {
	d         time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

// manualScheduler records registrations; tests fire them explicitly.
type manualScheduler struct {
	mu    sync.Mutex
	every []*manualTask
	after []*manualTask
}

func (s *manualScheduler) Every(d time.Duration, fn func()) Cancel {
	return s.add(&s.every, d, fn)
}

func (s *manualScheduler) After(d time.Duration, fn func()) Cancel {
	return s.add(&s.after, d, fn)
}

func (s *manualScheduler) add(list *[]*manualTask, d time.Duration, fn func()) Cancel {
	task := &manualTask{d: d, fn: fn}
	s.mu.Lock()
	*list = append(*list, task)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

// fireEvery runs every active periodic task registered with period d.
func (s *manualScheduler) fireEvery(d time.Duration) int {
	s.mu.Lock()
	var fns []func()
	for _, task := range s.every {
		if task.d == d && !task.cancelled {
			fns = append(fns, task.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (s *manualScheduler) pendingAfter() []*manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTask
	for _, task := range s.after {
		if !task.cancelled && !task.fired {
			out = append(out, task)
		}
	}
	return out
}

func (s *manualScheduler) fireAfter(task *manualTask) {
	s.mu.Lock()
	task.fired = true
	s.mu.Unlock()
	task.fn()
}

func (s *manualScheduler) activeEvery() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, task := range s.every {
		if !task.cancelled {
			out = append(out, task.d)
		}
	}
	return out
}

// fakeBackend serves per-route handlers and counts hits. Unknown routes answer 503.
type fakeBackend struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	srv      *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.hits[key]++
		h := b.handlers[key]
		b.mu.Unlock()
		if h == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method+" "+path] = h
}

func (b *fakeBackend) count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

func respond(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// hang blocks until the client gives up on the request.
func hang(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

type recordingNotifier struct {
	mu          sync.Mutex
	transitions []models.Transition
}

func (n *recordingNotifier) Notify(_ context.Context, t models.Transition) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, t)
	return nil
}

func (n *recordingNotifier) all() []models.Transition {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Transition, len(n.transitions))
	copy(out, n.transitions)
	return out
}

type harness struct {
	mon      *Monitor
	sched    *manualScheduler
	history  *storage.ProbeHistory
	notifier *recordingNotifier
}

func testSettings() Settings {
	return Settings{
		Interval:      30 * time.Second,
		StatusTimeout: time.Second,
		WakeTimeout:   2 * time.Second,
		ConfirmDelay:  2 * time.Second,
	}
}

func newHarness(t *testing.T, baseURL string, settings Settings) *harness {
	t.Helper()
	h := &harness{
		sched:    &manualScheduler{},
		history:  storage.NewProbeHistory(100),
		notifier: &recordingNotifier{},
	}
	h.mon = New(NewClient(baseURL), settings, h.sched, h.history, h.notifier)
	t.Cleanup(h.mon.Stop)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
