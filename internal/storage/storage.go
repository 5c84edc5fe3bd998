package storage

import (
	"sort"
	"sync"
	"time"

	"wakewatch/internal/models"
)

// ProbeHistory keeps a bounded, time-ordered record of requests sent to the backend.
type ProbeHistory struct {
	mu         sync.RWMutex
	maxHistory int
	history    []models.ProbeRecord
}

// NewProbeHistory creates a history holding at most maxHistory records.
func NewProbeHistory(maxHistory int) *ProbeHistory {
	if maxHistory <= 0 {
		maxHistory = 2048
	}
	return &ProbeHistory{maxHistory: maxHistory}
}

// Record appends a record, discarding the oldest entries beyond capacity.
func (h *ProbeHistory) Record(record models.ProbeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, record)
	if len(h.history) > h.maxHistory {
		trimmed := make([]models.ProbeRecord, h.maxHistory)
		copy(trimmed, h.history[len(h.history)-h.maxHistory:])
		h.history = trimmed
	}
}

// Latest returns the most recent record if it exists.
func (h *ProbeHistory) Latest() (models.ProbeRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.history) == 0 {
		return models.ProbeRecord{}, false
	}
	return h.history[len(h.history)-1], true
}

// History returns a copy of the entire history slice.
func (h *ProbeHistory) History() []models.ProbeRecord {
	return h.HistoryN(0)
}

// HistoryN returns a copy of the newest limit records. A non-positive limit returns everything.
func (h *ProbeHistory) HistoryN(limit int) []models.ProbeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if limit > 0 && len(h.history) > limit {
		start = len(h.history) - limit
	}
	out := make([]models.ProbeRecord, len(h.history)-start)
	copy(out, h.history[start:])
	return out
}

// HistorySince returns records whose timestamp is >= cutoff.
func (h *ProbeHistory) HistorySince(cutoff time.Time) []models.ProbeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.history) == 0 {
		return nil
	}
	idx := 0
	if !cutoff.IsZero() {
		idx = sort.Search(len(h.history), func(i int) bool {
			return !h.history[i].CheckedAt.Before(cutoff)
		})
	}
	if idx >= len(h.history) {
		return nil
	}
	out := make([]models.ProbeRecord, len(h.history)-idx)
	copy(out, h.history[idx:])
	return out
}
