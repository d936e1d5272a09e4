package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewProber(server.URL+"/health", time.Second, time.Second)
	if err := prober.Probe(context.Background()); err != nil {
		t.Errorf("Expected successful probe, got %v", err)
	}
}

func TestProbeNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	prober := NewProber(server.URL+"/health", time.Second, time.Second)
	if err := prober.Probe(context.Background()); err == nil {
		t.Error("Expected error for 503 response")
	}
}

func TestProbeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	prober := NewProber(server.URL+"/health", time.Second, 20*time.Millisecond)
	if err := prober.Probe(context.Background()); err == nil {
		t.Error("Expected timeout error")
	}
}

func TestRunFlagsUnhealthyAfterBudget(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	tracker := NewTracker(0, 3)
	prober := NewProber(server.URL+"/health", 10*time.Millisecond, time.Second)

	changes := make(chan Status, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go prober.Run(ctx, tracker, func(s Status) { changes <- s })

	deadline := time.After(2 * time.Second)
	for tracker.Status() != StatusUnhealthy {
		select {
		case <-deadline:
			t.Fatal("Tracker never became unhealthy")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Recovery path
	healthy.Store(true)
	deadline = time.After(2 * time.Second)
	for tracker.Status() != StatusHealthy {
		select {
		case <-deadline:
			t.Fatal("Tracker never recovered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
