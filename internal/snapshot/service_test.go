package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mempool-backend/config"
	"mempool-backend/internal/history"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/models"
	"mempool-backend/internal/upstream"
)

func newTestService(fetcher Fetcher, store *history.Store) *Service {
	return NewService(fetcher, store, metrics.NewProvider(config.MetricsConfig{}), zerolog.Nop())
}

type stubFetcher struct {
	result upstream.Result
	err    error
	calls  int
}

func (f *stubFetcher) Fetch(ctx context.Context) (upstream.Result, error) {
	f.calls++
	return f.result, f.err
}

func successResult() upstream.Result {
	return upstream.Result{
		Snapshot: models.NetworkSnapshot{
			Fees:           models.Fees{FastestFee: 42, HalfHourFee: 30, HourFee: 18, MinimumFee: 8},
			Mempool:        models.Mempool{Count: 7200, Vsize: 900000},
			Savings:        float64(42-18) * models.SavingsRate,
			Difficulty:     91000000000000,
			AdjustmentTime: time.Now().UTC().Format(time.RFC3339),
		},
		Volume: 512.5,
	}
}

func TestTick_SuccessAppendsToAllSeries(t *testing.T) {
	store := history.NewStore(24 * time.Hour)
	svc := newTestService(&stubFetcher{result: successResult()}, store)

	snap := svc.Tick(context.Background())

	assert.Equal(t, int64(42), snap.Fees.FastestFee)

	fees := store.FeeSeries()
	require.Len(t, fees, 1)
	assert.Equal(t, int64(18), fees[0].HourFee)

	counts := store.MempoolSeries()
	require.Len(t, counts, 1)
	assert.Equal(t, int64(7200), counts[0].Count)

	volumes := store.VolumeSeries()
	require.Len(t, volumes, 1)
	assert.Equal(t, 512.5, volumes[0].Volume)
}

func TestTick_FailureReturnsDefaultWithoutAppending(t *testing.T) {
	store := history.NewStore(24 * time.Hour)
	fetcher := &stubFetcher{err: upstream.ErrUpstream}
	svc := newTestService(fetcher, store)

	snap := svc.Tick(context.Background())

	// Default-shaped, never an error.
	assert.Equal(t, int64(50), snap.Fees.FastestFee)
	assert.Equal(t, int64(20), snap.Fees.HourFee)
	assert.Equal(t, models.DefaultDifficulty, snap.Difficulty)
	assert.Equal(t, 0.0005, snap.Savings)

	assert.True(t, store.EmptyFees())
	assert.True(t, store.EmptyMempool())
	assert.True(t, store.EmptyVolumes())
}

func TestTick_ArbitraryErrorAlsoDegrades(t *testing.T) {
	store := history.NewStore(24 * time.Hour)
	svc := newTestService(&stubFetcher{err: errors.New("dns exploded")}, store)

	snap := svc.Tick(context.Background())

	assert.Equal(t, models.DefaultSnapshot(time.Now().UTC()).Fees, snap.Fees)
	assert.True(t, store.EmptyFees())
}

func TestTick_SequentialCallsGrowSeries(t *testing.T) {
	store := history.NewStore(24 * time.Hour)
	fetcher := &stubFetcher{result: successResult()}
	svc := newTestService(fetcher, store)

	for i := 0; i < 3; i++ {
		svc.Tick(context.Background())
	}

	assert.Equal(t, 3, fetcher.calls)
	series := store.FeeSeries()
	require.Len(t, series, 3)
	for i := 1; i < len(series); i++ {
		assert.False(t, series[i].Timestamp.Before(series[i-1].Timestamp))
	}
}
