package monitoring

import "time"

// Timer measures one backend request
type Timer struct {
	start   time.Time
	metrics *Metrics
	profile string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, profile string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		profile: profile,
	}
}

// Stop stops the timer and records the request
func (t *Timer) Stop(outcome string, respSize int) time.Duration {
	duration := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordRequest(t.profile, outcome, duration, respSize)
	}
	return duration
}
