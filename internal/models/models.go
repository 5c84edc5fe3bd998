package models

import "time"

// ProbeKind distinguishes health probes from wake sequence requests.
type ProbeKind string

const (
	KindProbe ProbeKind = "probe"
	KindWake  ProbeKind = "wake"
)

// ProbeRecord captures the outcome of a single request sent to the backend.
type ProbeRecord struct {
	ID         string    `json:"id"`
	Kind       ProbeKind `json:"kind"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	OK         bool      `json:"ok"`
	StatusCode *int      `json:"status_code,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}
