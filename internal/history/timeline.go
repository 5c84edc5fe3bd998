package history

import (
	"sort"
	"time"

	"wakewatch/internal/models"
)

const (
	// DefaultTimelinePoints controls how many dots we generate for the status page.
	DefaultTimelinePoints = 60
	maxDetailsPerPoint    = 4
)

// BuildProbeTimeline reduces health probe records into compact timeline points.
// Buckets without samples inherit the previous state while the gap stays below
// twice the median probe spacing.
func BuildProbeTimeline(records []models.ProbeRecord, start, end time.Time, points int) []models.TimelinePoint {
	if points <= 0 {
		points = DefaultTimelinePoints
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	samples := make([]models.ProbeRecord, 0, len(records))
	for _, rec := range records {
		if rec.Kind != models.KindProbe || rec.CheckedAt.IsZero() {
			continue
		}
		samples = append(samples, rec)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].CheckedAt.Before(samples[j].CheckedAt)
	})

	bucketDuration := end.Sub(start) / time.Duration(points)
	if bucketDuration <= 0 {
		bucketDuration = time.Second
	}
	gapThreshold := deriveProbeGap(samples)

	result := make([]models.TimelinePoint, 0, points)
	idx := 0
	var last models.ProbeRecord
	var haveLast bool
	for idx < len(samples) && samples[idx].CheckedAt.Before(start) {
		last = samples[idx]
		haveLast = true
		idx++
	}

	for i := 0; i < points; i++ {
		bucketStart := start.Add(time.Duration(i) * bucketDuration)
		bucketEnd := bucketStart.Add(bucketDuration)
		if i == points-1 {
			bucketEnd = end
		}
		point := models.TimelinePoint{
			ClassName: "state-missing",
			Label:     "No data",
			Start:     bucketStart,
			End:       bucketEnd,
		}

		var bucket []models.ProbeRecord
		for idx < len(samples) && samples[idx].CheckedAt.Before(bucketEnd) {
			bucket = append(bucket, samples[idx])
			last = samples[idx]
			haveLast = true
			idx++
		}

		switch {
		case len(bucket) > 0:
			point.ClassName, point.Label = bucketClass(bucket)
			if point.ClassName == "state-error" {
				point.Details = failureDetails(bucket)
			}
		case haveLast && bucketStart.Sub(last.CheckedAt) <= gapThreshold:
			point.ClassName, point.Label = probeClass(last)
			if !last.OK {
				detail := probeDetail(last)
				detail.Timestamp = bucketStart
				point.Details = []models.TimelineDetail{detail}
			}
		}
		result = append(result, point)
	}
	return result
}

// bucketClass marks a bucket unavailable if any probe in it failed.
func bucketClass(bucket []models.ProbeRecord) (className, label string) {
	for _, rec := range bucket {
		if !rec.OK {
			return probeClass(rec)
		}
	}
	return probeClass(bucket[len(bucket)-1])
}

func failureDetails(bucket []models.ProbeRecord) []models.TimelineDetail {
	details := make([]models.TimelineDetail, 0, maxDetailsPerPoint)
	for _, rec := range bucket {
		if rec.OK {
			continue
		}
		if len(details) >= maxDetailsPerPoint {
			break
		}
		details = append(details, probeDetail(rec))
	}
	return details
}

func deriveProbeGap(samples []models.ProbeRecord) time.Duration {
	const defaultGap = 2 * time.Minute
	if len(samples) < 2 {
		return defaultGap
	}
	diffs := make([]time.Duration, 0, len(samples)-1)
	prev := samples[0].CheckedAt
	for i := 1; i < len(samples); i++ {
		curr := samples[i].CheckedAt
		if curr.After(prev) {
			diffs = append(diffs, curr.Sub(prev))
		}
		prev = curr
	}
	if len(diffs) == 0 {
		return defaultGap
	}
	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i] < diffs[j]
	})
	gap := diffs[len(diffs)/2] * 2
	if gap < 10*time.Second {
		return 10 * time.Second
	}
	if gap > time.Hour {
		return time.Hour
	}
	return gap
}

func probeDetail(rec models.ProbeRecord) models.TimelineDetail {
	state := "online"
	if !rec.OK {
		state = "offline"
	}
	return models.TimelineDetail{
		Timestamp: rec.CheckedAt,
		State:     state,
		Error:     rec.Error,
	}
}

func probeClass(rec models.ProbeRecord) (className, label string) {
	if rec.OK {
		return "state-success", "Online"
	}
	if rec.ErrorKind == "timeout" {
		return "state-error", "Timed out"
	}
	return "state-error", "Offline"
}
