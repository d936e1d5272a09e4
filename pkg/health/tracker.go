package health

import (
	"sync"
	"time"
)

// Status represents the health state of the service
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

// String returns string representation of the status
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Tracker applies the probe discipline: failures inside the startup grace
// period are ignored, and only a run of consecutive failures past the
// budget flips the instance to unhealthy. One success resets the run.
type Tracker struct {
	mu sync.RWMutex

	startedAt        time.Time
	gracePeriod      time.Duration
	maxFailures      int
	status           Status
	lastStatusChange time.Time

	lastSuccess         time.Time
	lastError           string
	consecutiveFailures int
	totalFailures       int64
	totalProbes         int64
	gracePeriodSkips    int64
}

// NewTracker creates a tracker. maxFailures is the consecutive-failure
// budget after which the instance is unhealthy.
func NewTracker(gracePeriod time.Duration, maxFailures int) *Tracker {
	now := time.Now()
	return &Tracker{
		startedAt:        now,
		gracePeriod:      gracePeriod,
		maxFailures:      maxFailures,
		status:           StatusHealthy,
		lastStatusChange: now,
		lastSuccess:      now,
	}
}

// RecordSuccess records a successful probe
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalProbes++
	t.lastSuccess = time.Now()
	t.lastError = ""
	t.consecutiveFailures = 0
	t.updateStatus()
}

// RecordFailure records a failed probe. Failures inside the grace period
// do not count against the budget.
func (t *Tracker) RecordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalProbes++
	if err != nil {
		t.lastError = err.Error()
	}

	if time.Since(t.startedAt) < t.gracePeriod {
		t.gracePeriodSkips++
		return
	}

	t.consecutiveFailures++
	t.totalFailures++
	t.updateStatus()
}

// updateStatus recomputes the status. Must be called with lock held.
func (t *Tracker) updateStatus() {
	newStatus := StatusHealthy
	if t.consecutiveFailures >= t.maxFailures {
		newStatus = StatusUnhealthy
	} else if t.maxFailures > 1 && t.consecutiveFailures >= t.maxFailures/2 {
		newStatus = StatusDegraded
	}

	if newStatus != t.status {
		t.status = newStatus
		t.lastStatusChange = time.Now()
	}
}

// Status returns the current health status
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// IsHealthy returns true unless the failure budget is exhausted
func (t *Tracker) IsHealthy() bool {
	return t.Status() != StatusUnhealthy
}

// InGracePeriod reports whether the startup grace period is still running
func (t *Tracker) InGracePeriod() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.startedAt) < t.gracePeriod
}

// Uptime returns time since the tracker was created
func (t *Tracker) Uptime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.startedAt)
}

// Report returns a detailed health report
func (t *Tracker) Report() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return map[string]interface{}{
		"status":               t.status.String(),
		"status_duration":      time.Since(t.lastStatusChange).String(),
		"uptime":               time.Since(t.startedAt).String(),
		"in_grace_period":      time.Since(t.startedAt) < t.gracePeriod,
		"last_success":         t.lastSuccess.Format(time.RFC3339),
		"last_error":           t.lastError,
		"consecutive_failures": t.consecutiveFailures,
		"failure_budget":       t.maxFailures,
		"total_failures":       t.totalFailures,
		"total_probes":         t.totalProbes,
		"grace_period_skips":   t.gracePeriodSkips,
	}
}
