package metrics

import (
	"math"
	"time"

	"wakewatch/internal/models"
)

// Availability summarises backend health over a probe history.
type Availability struct {
	UptimePercent float64 `json:"uptime_percent"`
	TotalProbes   int     `json:"total_probes"`
	Passing       int     `json:"passing"`
	Failing       int     `json:"failing"`
	Timeouts      int     `json:"timeouts"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	WakeRequests  int     `json:"wake_requests"`
	WakeSuccesses int     `json:"wake_successes"`
	LastSuccess   string  `json:"last_success,omitempty"`
	LastFailure   string  `json:"last_failure,omitempty"`
}

// ComputeAvailability aggregates uptime statistics from probe and wake records.
// Only health probes count towards uptime; wake requests are tallied separately.
func ComputeAvailability(records []models.ProbeRecord) Availability {
	var (
		out          Availability
		latencyTotal int64
		lastSuccess  time.Time
		lastFailure  time.Time
	)
	for _, rec := range records {
		if rec.Kind == models.KindWake {
			out.WakeRequests++
			if rec.OK {
				out.WakeSuccesses++
			}
			continue
		}
		out.TotalProbes++
		if rec.OK {
			out.Passing++
			latencyTotal += rec.LatencyMS
			if rec.CheckedAt.After(lastSuccess) {
				lastSuccess = rec.CheckedAt
			}
			continue
		}
		out.Failing++
		if rec.ErrorKind == "timeout" {
			out.Timeouts++
		}
		if rec.CheckedAt.After(lastFailure) {
			lastFailure = rec.CheckedAt
		}
	}

	if out.TotalProbes > 0 {
		out.UptimePercent = round2(float64(out.Passing) / float64(out.TotalProbes) * 100)
	}
	if out.Passing > 0 {
		out.AvgLatencyMS = round2(float64(latencyTotal) / float64(out.Passing))
	}
	if !lastSuccess.IsZero() {
		out.LastSuccess = lastSuccess.UTC().Format(time.RFC3339)
	}
	if !lastFailure.IsZero() {
		out.LastFailure = lastFailure.UTC().Format(time.RFC3339)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
