package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

// MemoryImmichStore is an in-memory ImmichStore for tests and local runs
type MemoryImmichStore struct {
	mu sync.RWMutex

	Stats     UploadStats
	Uploaders int64
	Users     UserCounts
	Err       error
}

// NewMemoryImmichStore creates an empty in-memory store
func NewMemoryImmichStore() *MemoryImmichStore {
	return &MemoryImmichStore{}
}

// UploadStats returns the configured aggregates
func (s *MemoryImmichStore) UploadStats(ctx context.Context) (*UploadStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	stats := s.Stats
	return &stats, nil
}

// ActiveUploaders returns the configured uploader count
func (s *MemoryImmichStore) ActiveUploaders(ctx context.Context, window time.Duration) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Uploaders, nil
}

// UserCounts returns the configured user counts
func (s *MemoryImmichStore) UserCounts(ctx context.Context) (*UserCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	counts := s.Users
	return &counts, nil
}

// HealthCheck reports the configured error, if any
func (s *MemoryImmichStore) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Err
}

// SetError makes all subsequent calls fail with err
func (s *MemoryImmichStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// Close is a no-op
func (s *MemoryImmichStore) Close() error {
	return nil
}

// MemorySnapshotStore is an in-memory SnapshotStore
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots []*models.Snapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// SaveSnapshot persists one sample
func (s *MemorySnapshotStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snap
	s.snapshots = append(s.snapshots, &copied)
	return nil
}

// RecentSnapshots returns up to limit samples, newest first
func (s *MemorySnapshotStore) RecentSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := make([]*models.Snapshot, len(s.snapshots))
	copy(sorted, s.snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CapturedAt.After(sorted[j].CapturedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// PruneSnapshots deletes samples captured before cutoff
func (s *MemorySnapshotStore) PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.snapshots[:0]
	var removed int64
	for _, snap := range s.snapshots {
		if snap.CapturedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, snap)
	}
	s.snapshots = kept
	return removed, nil
}

// Close is a no-op
func (s *MemorySnapshotStore) Close() error {
	return nil
}
