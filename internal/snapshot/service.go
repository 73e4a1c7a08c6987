// Package snapshot orchestrates upstream fetches and the history store. It is
// the single place where upstream failure degrades to default data.
package snapshot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mempool-backend/internal/history"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/models"
	"mempool-backend/internal/upstream"
)

// Fetcher is the upstream surface the service depends on.
type Fetcher interface {
	Fetch(ctx context.Context) (upstream.Result, error)
}

// Service produces the current NetworkSnapshot. Tick is total: callers always
// get a usable snapshot, real or default, never an error.
type Service struct {
	fetcher Fetcher
	store   *history.Store
	metrics metrics.Provider
	log     zerolog.Logger
}

// NewService creates a snapshot service writing samples into store.
func NewService(fetcher Fetcher, store *history.Store, m metrics.Provider, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "snapshot").Logger(),
	}
}

// Tick fetches a fresh snapshot. On success one sample is appended to each of
// the three series and the snapshot is returned. On upstream failure the
// failure is logged and the fixed default snapshot is returned without
// touching history — the dashboard never goes blank.
func (s *Service) Tick(ctx context.Context) models.NetworkSnapshot {
	now := time.Now().UTC()

	result, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.metrics.IncFetchFailures()
		s.log.Error().Err(err).Msg("upstream fetch failed, serving default snapshot")
		return models.DefaultSnapshot(now)
	}

	s.store.AppendFee(models.FeePoint{Timestamp: now, HourFee: result.Snapshot.Fees.HourFee})
	s.store.AppendMempool(models.MempoolPoint{Timestamp: now, Count: result.Snapshot.Mempool.Count})
	s.store.AppendVolume(models.VolumePoint{Timestamp: now, Volume: result.Volume})

	s.log.Debug().
		Int64("hourFee", result.Snapshot.Fees.HourFee).
		Int64("mempoolCount", result.Snapshot.Mempool.Count).
		Float64("volume", result.Volume).
		Msg("snapshot fetched")

	return result.Snapshot
}
