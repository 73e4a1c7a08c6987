// Package history keeps the three rolling in-memory series backing the
// dashboard charts. Nothing here survives a restart.
package history

import (
	"sync"
	"time"

	"mempool-backend/internal/models"
)

// Store holds the fee, mempool-count and volume series. Each series is
// append-only at "now"; every write prunes entries older than the retention
// window, so reads never see more than one write cycle of slack past the
// window. Reads return copies.
type Store struct {
	window time.Duration

	fees    []models.FeePoint
	feesMu  sync.RWMutex
	counts  []models.MempoolPoint
	countMu sync.RWMutex
	volumes []models.VolumePoint
	volMu   sync.RWMutex
}

// NewStore creates an empty store with the given retention window.
func NewStore(window time.Duration) *Store {
	return &Store{
		window:  window,
		fees:    make([]models.FeePoint, 0),
		counts:  make([]models.MempoolPoint, 0),
		volumes: make([]models.VolumePoint, 0),
	}
}

// Window returns the configured retention window.
func (s *Store) Window() time.Duration {
	return s.window
}

// AppendFee appends a fee sample and prunes stale entries.
func (s *Store) AppendFee(p models.FeePoint) {
	s.feesMu.Lock()
	defer s.feesMu.Unlock()
	s.fees = append(s.fees, p)
	cutoff := time.Now().UTC().Add(-s.window)
	s.fees = pruneFees(s.fees, cutoff)
}

// AppendMempool appends a mempool-count sample and prunes stale entries.
func (s *Store) AppendMempool(p models.MempoolPoint) {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	s.counts = append(s.counts, p)
	cutoff := time.Now().UTC().Add(-s.window)
	s.counts = pruneCounts(s.counts, cutoff)
}

// AppendVolume appends a volume sample and prunes stale entries.
func (s *Store) AppendVolume(p models.VolumePoint) {
	s.volMu.Lock()
	defer s.volMu.Unlock()
	s.volumes = append(s.volumes, p)
	cutoff := time.Now().UTC().Add(-s.window)
	s.volumes = pruneVolumes(s.volumes, cutoff)
}

// FeeSeries returns a copy of the fee series, oldest first.
func (s *Store) FeeSeries() []models.FeePoint {
	s.feesMu.RLock()
	defer s.feesMu.RUnlock()
	out := make([]models.FeePoint, len(s.fees))
	copy(out, s.fees)
	return out
}

// MempoolSeries returns a copy of the mempool-count series, oldest first.
func (s *Store) MempoolSeries() []models.MempoolPoint {
	s.countMu.RLock()
	defer s.countMu.RUnlock()
	out := make([]models.MempoolPoint, len(s.counts))
	copy(out, s.counts)
	return out
}

// VolumeSeries returns a copy of the volume series, oldest first.
func (s *Store) VolumeSeries() []models.VolumePoint {
	s.volMu.RLock()
	defer s.volMu.RUnlock()
	out := make([]models.VolumePoint, len(s.volumes))
	copy(out, s.volumes)
	return out
}

// EmptyFees reports whether the fee series has no samples.
func (s *Store) EmptyFees() bool {
	s.feesMu.RLock()
	defer s.feesMu.RUnlock()
	return len(s.fees) == 0
}

// EmptyMempool reports whether the mempool series has no samples.
func (s *Store) EmptyMempool() bool {
	s.countMu.RLock()
	defer s.countMu.RUnlock()
	return len(s.counts) == 0
}

// EmptyVolumes reports whether the volume series has no samples.
func (s *Store) EmptyVolumes() bool {
	s.volMu.RLock()
	defer s.volMu.RUnlock()
	return len(s.volumes) == 0
}

// SeedLowFee guarantees the fee series contains at least one sample below
// limit. If none exists the given point is appended without pruning, so a
// backdated seed is not immediately evicted. Returns true when a seed was
// inserted. The fee-history endpoint relies on this to always expose a
// low-fee marker to the UI.
func (s *Store) SeedLowFee(limit int64, seed models.FeePoint) bool {
	s.feesMu.Lock()
	defer s.feesMu.Unlock()
	for _, p := range s.fees {
		if p.HourFee < limit {
			return false
		}
	}
	s.fees = append(s.fees, seed)
	return true
}

func pruneFees(points []models.FeePoint, cutoff time.Time) []models.FeePoint {
	kept := points[:0]
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}

func pruneCounts(points []models.MempoolPoint, cutoff time.Time) []models.MempoolPoint {
	kept := points[:0]
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}

func pruneVolumes(points []models.VolumePoint, cutoff time.Time) []models.VolumePoint {
	kept := points[:0]
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}
