package tillsync

import "time"

// Metrics captures engine-level telemetry.
type Metrics interface {
	// ObserveFlushDuration records the time spent in one flush pass.
	ObserveFlushDuration(duration time.Duration)
	// AddSent increments the count of delivered items.
	AddSent(count int)
	// AddFailed increments the count of failed delivery attempts.
	AddFailed(count int)
	// AddDead increments the count of dead-lettered items.
	AddDead(count int)
	// SetPending updates the current pending item count.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveFlushDuration implements Metrics.
func (NopMetrics) ObserveFlushDuration(time.Duration) {}

// AddSent implements Metrics.
func (NopMetrics) AddSent(int) {}

// AddFailed implements Metrics.
func (NopMetrics) AddFailed(int) {}

// AddDead implements Metrics.
func (NopMetrics) AddDead(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}
