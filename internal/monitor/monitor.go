package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"wakewatch/internal/config"
	"wakewatch/internal/logging"
	"wakewatch/internal/models"
)

const notifyTimeout = 5 * time.Second

// Recorder receives the outcome of every request sent to the backend.
type Recorder interface {
	Record(models.ProbeRecord)
}

// Notifier receives online/offline transitions.
type Notifier interface {
	Notify(ctx context.Context, t models.Transition) error
}

// Settings controls probe cadence and request deadlines.
type Settings struct {
	Interval      time.Duration
	StatusTimeout time.Duration
	WakeTimeout   time.Duration
	ConfirmDelay  time.Duration
}

// SettingsFromConfig maps the loaded configuration onto monitor settings.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Interval:      cfg.Interval(),
		StatusTimeout: cfg.StatusCheckTimeout(),
		WakeTimeout:   cfg.WakeUpTimeout(),
		ConfirmDelay:  cfg.ConfirmDelay(),
	}
}

func (s Settings) withDefaults() Settings {
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.StatusTimeout <= 0 {
		s.StatusTimeout = 5 * time.Second
	}
	if s.WakeTimeout <= 0 {
		s.WakeTimeout = 15 * time.Second
	}
	if s.ConfirmDelay <= 0 {
		s.ConfirmDelay = 2 * time.Second
	}
	return s
}

// RefreshResult reports what a manual refresh did.
type RefreshResult struct {
	Online bool `json:"online"`
	// Dropped is set when a scheduled probe or wake sequence held the monitor and no request was issued.
	Dropped bool `json:"dropped"`
	// Shared is set when the caller joined a refresh that was already in flight.
	Shared bool `json:"shared"`
}

// Monitor tracks backend availability. It probes the health endpoint on a fixed interval,
// runs the wake sequence when a scheduled probe fails and keeps a ConnectivityState for the UI.
// At most one probe or wake sequence is in flight at any time.
type Monitor struct {
	client   *Client
	settings Settings
	sched    Scheduler
	recorder Recorder
	notifier Notifier
	now      func() time.Time

	intervalSeconds int

	gate   chan struct{}
	flight singleflight.Group

	mu         sync.RWMutex
	state      models.ConnectivityState
	started    bool
	closed     bool
	timers     []Cancel
	confirm    Cancel
	confirmSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. A nil scheduler selects TimerScheduler; recorder and notifier are optional.
func New(client *Client, settings Settings, sched Scheduler, recorder Recorder, notifier Notifier) *Monitor {
	settings = settings.withDefaults()
	if sched == nil {
		sched = TimerScheduler{}
	}
	intervalSeconds := int((settings.Interval + time.Second - 1) / time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		client:          client,
		settings:        settings,
		sched:           sched,
		recorder:        recorder,
		notifier:        notifier,
		now:             time.Now,
		intervalSeconds: intervalSeconds,
		gate:            make(chan struct{}, 1),
		state: models.ConnectivityState{
			Phase:              models.PhaseIdle,
			NextCheckCountdown: intervalSeconds,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Settings returns the effective settings after defaults were applied.
func (m *Monitor) Settings() Settings {
	return m.settings
}

// BackendURL returns the monitored base URL.
func (m *Monitor) BackendURL() string {
	return m.client.BaseURL()
}

// Start probes once and registers the interval and countdown timers.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.timers = append(m.timers,
		m.sched.Every(m.settings.Interval, func() { m.RunCycle(m.ctx) }),
		m.sched.Every(time.Second, m.Tick),
	)
	m.mu.Unlock()

	logging.Info("availability monitor started", logging.Fields{
		"backend_url":      m.client.BaseURL(),
		"interval_seconds": m.intervalSeconds,
	})
	go m.Probe(m.ctx)
}

// Stop cancels all timers and outstanding requests and waits for in-flight operations.
// No state changes are applied once Stop has begun.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	timers := m.timers
	confirm := m.confirm
	m.timers = nil
	m.confirm = nil
	m.mu.Unlock()

	for _, stop := range timers {
		stop()
	}
	if confirm != nil {
		confirm()
	}
	m.cancel()
	m.wg.Wait()
	logging.Info("availability monitor stopped", nil)
}

// Status returns a snapshot of the current connectivity state.
func (m *Monitor) Status() models.ConnectivityState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Tick decrements the countdown to the next scheduled probe, floored at zero.
func (m *Monitor) Tick() {
	m.update(func(s *models.ConnectivityState) {
		if s.NextCheckCountdown > 0 {
			s.NextCheckCountdown--
		}
	})
}

// Probe issues one health probe and reports whether the backend answered with 2xx.
// If another probe or wake sequence is in flight no request is sent and the current
// IsOnline value is returned.
func (m *Monitor) Probe(ctx context.Context) bool {
	if !m.enter() {
		return false
	}
	defer m.wg.Done()
	if !m.tryAcquire() {
		return m.Status().IsOnline
	}
	defer m.release()

	ctx, cancel := m.bind(ctx)
	defer cancel()
	return m.probe(ctx, uuid.NewString())
}

// AttemptWake runs the wake sequence once. It returns false without sending anything when
// another operation is in flight.
func (m *Monitor) AttemptWake(ctx context.Context) bool {
	if !m.enter() {
		return false
	}
	defer m.wg.Done()
	if !m.tryAcquire() {
		return false
	}
	defer m.release()

	ctx, cancel := m.bind(ctx)
	defer cancel()
	return m.attemptWake(ctx, uuid.NewString())
}

// Refresh probes immediately, outside the countdown schedule. Concurrent callers share one
// probe; a refresh that finds a scheduled probe or wake in flight is dropped.
func (m *Monitor) Refresh() RefreshResult {
	v, _, shared := m.flight.Do("refresh", func() (interface{}, error) {
		if !m.enter() {
			return RefreshResult{Dropped: true}, nil
		}
		defer m.wg.Done()
		if !m.tryAcquire() {
			return RefreshResult{Online: m.Status().IsOnline, Dropped: true}, nil
		}
		defer m.release()
		return RefreshResult{Online: m.probe(m.ctx, uuid.NewString())}, nil
	})
	res := v.(RefreshResult)
	res.Shared = shared
	return res
}

// RunCycle is one scheduled cycle: probe, and on failure the wake sequence followed by a
// single confirmation probe after ConfirmDelay when the wake succeeded.
func (m *Monitor) RunCycle(ctx context.Context) {
	if !m.enter() {
		return
	}
	defer m.wg.Done()
	if !m.tryAcquire() {
		logging.Info("probe cycle skipped, check already in flight", nil)
		return
	}
	defer m.release()

	ctx, cancel := m.bind(ctx)
	defer cancel()

	cycleID := uuid.NewString()
	if m.probe(ctx, cycleID) {
		return
	}
	if m.attemptWake(ctx, cycleID) {
		m.scheduleConfirm()
	}
}

func (m *Monitor) probe(ctx context.Context, opID string) bool {
	if !m.update(func(s *models.ConnectivityState) {
		m.setPhase(s, models.PhaseChecking)
		s.IsChecking = true
		s.ErrorMessage = nil
	}) {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, m.settings.StatusTimeout)
	res := m.client.Check(callCtx, HealthEndpoint)
	cancel()
	m.record(models.KindProbe, res)

	checked := m.now()
	var transition *models.Transition
	m.update(func(s *models.ConnectivityState) {
		previous := s.IsOnline
		s.IsChecking = false
		s.IsOnline = res.OK
		s.LastChecked = &checked
		s.NextCheckCountdown = m.intervalSeconds
		if res.OK {
			success := checked
			s.LastSuccess = &success
			s.ErrorMessage = nil
			s.WakeUpAttempts = 0
			m.setPhase(s, models.PhaseOnline)
		} else {
			msg := res.Err.Message()
			s.ErrorMessage = &msg
			m.setPhase(s, models.PhaseOffline)
		}
		if previous != s.IsOnline {
			transition = &models.Transition{
				ID:             uuid.NewString(),
				Online:         s.IsOnline,
				PreviousOnline: previous,
				WakeUpAttempts: s.WakeUpAttempts,
				At:             checked.UTC(),
			}
			if s.ErrorMessage != nil {
				transition.Error = *s.ErrorMessage
			}
		}
	})

	if !res.OK {
		logging.Warn("health probe failed", logging.Fields{
			"op":         opID,
			"error_kind": string(res.Err.Kind),
			"error":      res.Err.Message(),
		})
	}
	if transition != nil {
		m.notify(*transition)
	}
	return res.OK
}

func (m *Monitor) attemptWake(ctx context.Context, opID string) bool {
	attempt := 0
	if !m.update(func(s *models.ConnectivityState) {
		s.WakeUpAttempts++
		attempt = s.WakeUpAttempts
		m.setPhase(s, models.PhaseWaking)
		s.IsChecking = true
	}) {
		return false
	}

	wakeCtx, cancel := context.WithTimeout(ctx, m.settings.WakeTimeout)
	defer cancel()

	woke := false
	for _, endpoint := range WakeEndpoints {
		if wakeCtx.Err() != nil {
			logging.Warn("wake-up deadline exhausted", logging.Fields{
				"op":       opID,
				"endpoint": endpoint.Path,
			})
			break
		}
		res := m.client.Check(wakeCtx, endpoint)
		m.record(models.KindWake, res)
		if res.OK {
			logging.Info("backend wake-up succeeded", logging.Fields{
				"op":       opID,
				"endpoint": endpoint.Path,
				"attempt":  attempt,
			})
			woke = true
			break
		}
		logging.Warn("wake-up attempt failed", logging.Fields{
			"op":         opID,
			"method":     endpoint.Method,
			"endpoint":   endpoint.Path,
			"error_kind": string(res.Err.Kind),
			"error":      res.Err.Message(),
		})
	}

	m.update(func(s *models.ConnectivityState) {
		s.IsChecking = false
		m.setPhase(s, models.PhaseOffline)
	})
	return woke
}

// scheduleConfirm registers the follow-up probe, replacing any pending one.
func (m *Monitor) scheduleConfirm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.confirm != nil {
		m.confirm()
	}
	m.confirmSeq++
	seq := m.confirmSeq
	m.confirm = m.sched.After(m.settings.ConfirmDelay, func() {
		m.mu.Lock()
		if m.confirmSeq == seq {
			m.confirm = nil
		}
		m.mu.Unlock()
		m.Probe(m.ctx)
	})
}

func (m *Monitor) setPhase(s *models.ConnectivityState, next models.Phase) {
	if !s.Phase.CanTransition(next) {
		logging.Warn("unexpected monitor phase transition", logging.Fields{
			"from": string(s.Phase),
			"to":   string(next),
		})
	}
	s.Phase = next
}

// update applies fn to the state unless the monitor has been stopped.
func (m *Monitor) update(fn func(*models.ConnectivityState)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	fn(&m.state)
	return true
}

func (m *Monitor) enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	return true
}

func (m *Monitor) tryAcquire() bool {
	select {
	case m.gate <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Monitor) release() {
	<-m.gate
}

// bind derives a context that is also cancelled when the monitor stops.
func (m *Monitor) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *Monitor) record(kind models.ProbeKind, res CheckResult) {
	if m.recorder == nil {
		return
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	rec := models.ProbeRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Method:    res.Endpoint.Method,
		Endpoint:  res.Endpoint.Path,
		OK:        res.OK,
		LatencyMS: res.Latency.Milliseconds(),
		CheckedAt: m.now().UTC(),
	}
	if res.StatusCode > 0 {
		code := res.StatusCode
		rec.StatusCode = &code
	}
	if res.Err != nil {
		rec.ErrorKind = string(res.Err.Kind)
		rec.Error = res.Err.Message()
	}
	m.recorder.Record(rec)
}

func (m *Monitor) notify(t models.Transition) {
	logging.Info("backend availability changed", logging.Fields{
		"online":           t.Online,
		"wake_up_attempts": t.WakeUpAttempts,
		"error":            t.Error,
	})
	if m.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, notifyTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, t); err != nil {
		logging.Error("publish availability transition", err, logging.Fields{"transition": t.ID})
	}
}
