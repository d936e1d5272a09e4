package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Prober issues liveness probes against an HTTP endpoint
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
}

// NewProber creates a prober for url. timeout bounds each probe;
// interval spaces them when running as a loop.
func NewProber(url string, interval, timeout time.Duration) *Prober {
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
	}
}

// Probe issues one liveness check
func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return nil
}

// Run probes on the configured interval until ctx is cancelled,
// recording each outcome into the tracker.
func (p *Prober) Run(ctx context.Context, tracker *Tracker, onChange func(Status)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	lastStatus := tracker.Status()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := p.Probe(ctx); err != nil {
			tracker.RecordFailure(err)
		} else {
			tracker.RecordSuccess()
		}

		if status := tracker.Status(); status != lastStatus {
			lastStatus = status
			if onChange != nil {
				onChange(status)
			}
		}
	}
}
