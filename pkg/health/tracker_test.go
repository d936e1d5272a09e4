package health

import (
	"errors"
	"testing"
	"time"
)

func TestGracePeriodIgnoresFailures(t *testing.T) {
	tracker := NewTracker(time.Hour, 3)

	for i := 0; i < 10; i++ {
		tracker.RecordFailure(errors.New("connection refused"))
	}

	if tracker.Status() != StatusHealthy {
		t.Errorf("Failures inside grace period should not count, got %s", tracker.Status())
	}
	if !tracker.InGracePeriod() {
		t.Error("Expected tracker to report grace period")
	}
}

func TestConsecutiveFailureBudget(t *testing.T) {
	tracker := NewTracker(0, 3)

	tracker.RecordFailure(errors.New("timeout"))
	if tracker.Status() == StatusUnhealthy {
		t.Error("One failure should not exhaust the budget")
	}
	if !tracker.IsHealthy() {
		t.Error("Degraded instance still reports healthy to the orchestrator")
	}

	tracker.RecordFailure(errors.New("timeout"))
	tracker.RecordFailure(errors.New("timeout"))

	if tracker.Status() != StatusUnhealthy {
		t.Errorf("Three consecutive failures should be unhealthy, got %s", tracker.Status())
	}
	if tracker.IsHealthy() {
		t.Error("Exhausted budget should report unhealthy")
	}
}

func TestSuccessResetsFailureRun(t *testing.T) {
	tracker := NewTracker(0, 3)

	tracker.RecordFailure(errors.New("timeout"))
	tracker.RecordFailure(errors.New("timeout"))
	tracker.RecordSuccess()
	tracker.RecordFailure(errors.New("timeout"))
	tracker.RecordFailure(errors.New("timeout"))

	if tracker.Status() == StatusUnhealthy {
		t.Error("Non-consecutive failures should not exhaust the budget")
	}
}

func TestRecoveryAfterUnhealthy(t *testing.T) {
	tracker := NewTracker(0, 3)

	for i := 0; i < 3; i++ {
		tracker.RecordFailure(errors.New("timeout"))
	}
	if tracker.Status() != StatusUnhealthy {
		t.Fatalf("Expected unhealthy, got %s", tracker.Status())
	}

	tracker.RecordSuccess()
	if tracker.Status() != StatusHealthy {
		t.Errorf("Success should restore health, got %s", tracker.Status())
	}
}

func TestReport(t *testing.T) {
	tracker := NewTracker(0, 3)
	tracker.RecordFailure(errors.New("connection refused"))

	report := tracker.Report()
	if report["consecutive_failures"] != 1 {
		t.Errorf("Expected 1 consecutive failure, got %v", report["consecutive_failures"])
	}
	if report["failure_budget"] != 3 {
		t.Errorf("Expected budget 3, got %v", report["failure_budget"])
	}
	if report["last_error"] != "connection refused" {
		t.Errorf("Expected last error recorded, got %v", report["last_error"])
	}
}
