package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"wakewatch/internal/history"
	"wakewatch/internal/metrics"
	"wakewatch/internal/models"
	"wakewatch/internal/monitor"
	"wakewatch/internal/storage"
)

//go:embed static/*
var embeddedStatic embed.FS

const (
	defaultHistoryLimit = 200
	maxTimelinePoints   = 240
	maxTimelineHours    = 24
)

// Server wraps HTTP serving of API + static assets.
type Server struct {
	httpServer   *http.Server
	mux          *http.ServeMux
	monitor      *monitor.Monitor
	history      *storage.ProbeHistory
	staticFS     fs.FS
	historyLimit int

	bannerMu      sync.RWMutex
	bannerVisible bool
}

type statusPayload struct {
	State           models.ConnectivityState `json:"state"`
	BackendURL      string                   `json:"backend_url"`
	IntervalSeconds int                      `json:"interval_seconds"`
	BannerVisible   bool                     `json:"banner_visible"`
	StatusText      string                   `json:"status_text"`
	StatusMessage   string                   `json:"status_message"`
	Countdown       string                   `json:"countdown"`
}

type refreshPayload struct {
	Result monitor.RefreshResult `json:"result"`
	Status statusPayload         `json:"status"`
}

type bannerPayload struct {
	Visible bool `json:"visible"`
}

// New creates a configured HTTP server for the monitor.
func New(addr string, mon *monitor.Monitor, probes *storage.ProbeHistory) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		mux:           mux,
		monitor:       mon,
		history:       probes,
		staticFS:      staticFS,
		historyLimit:  defaultHistoryLimit,
		bannerVisible: true,
	}
	s.registerRoutes(mux)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.FS(s.staticFS))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data, err := fs.ReadFile(s.staticFS, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/uptime", s.handleUptime)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/banner", s.handleBanner)
	mux.HandleFunc("/api/ws", s.handleStatusWS)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildStatus())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	result := s.monitor.Refresh()
	writeJSON(w, http.StatusOK, refreshPayload{
		Result: result,
		Status: s.buildStatus(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, "limit", s.historyLimit)
	writeJSON(w, http.StatusOK, s.history.HistoryN(limit))
}

func (s *Server) handleUptime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.ComputeAvailability(s.history.History()))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	points := parseLimit(r, "points", maxTimelinePoints)
	if r.URL.Query().Get("points") == "" {
		points = history.DefaultTimelinePoints
	}
	hours := parseLimit(r, "hours", maxTimelineHours)
	if r.URL.Query().Get("hours") == "" {
		hours = 1
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	writeJSON(w, http.StatusOK, map[string]any{
		"range_start": start,
		"range_end":   end,
		"timeline":    history.BuildProbeTimeline(s.history.HistorySince(start.Add(-time.Hour)), start, end, points),
	})
}

// handleBanner serves the hide/show toggle of the status banner. It is display state only.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req bannerPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		s.bannerMu.Lock()
		s.bannerVisible = req.Visible
		s.bannerMu.Unlock()
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, bannerPayload{Visible: s.isBannerVisible()})
}

func (s *Server) isBannerVisible() bool {
	s.bannerMu.RLock()
	defer s.bannerMu.RUnlock()
	return s.bannerVisible
}

func (s *Server) buildStatus() statusPayload {
	state := s.monitor.Status()
	return statusPayload{
		State:           state,
		BackendURL:      s.monitor.BackendURL(),
		IntervalSeconds: int(s.monitor.Settings().Interval / time.Second),
		BannerVisible:   s.isBannerVisible(),
		StatusText:      statusText(state),
		StatusMessage:   statusMessage(state),
		Countdown:       formatCountdown(state.NextCheckCountdown),
	}
}

func parseLimit(r *http.Request, key string, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
