package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mempool-backend/config"
)

func testGenerator() *Generator {
	return NewGenerator(config.DefaultConfig().Simulate)
}

func TestFeeSeries_ShapeAndRange(t *testing.T) {
	g := testGenerator()
	now := time.Now().UTC()

	series := g.FeeSeries(now)
	require.Len(t, series, 24)

	for i, p := range series {
		if i < len(series)-1 {
			assert.GreaterOrEqual(t, p.HourFee, int64(10))
			assert.LessOrEqual(t, p.HourFee, int64(50))
		}
		if i > 0 {
			assert.True(t, p.Timestamp.After(series[i-1].Timestamp), "series must be oldest first")
		}
	}

	// The newest point always carries the low fee.
	assert.Equal(t, int64(14), series[len(series)-1].HourFee)
	assert.Equal(t, now, series[len(series)-1].Timestamp)
}

func TestMempoolSeries_ShapeAndRange(t *testing.T) {
	g := testGenerator()
	now := time.Now().UTC()

	series := g.MempoolSeries(now)
	require.Len(t, series, 60)

	for _, p := range series {
		assert.GreaterOrEqual(t, p.Count, int64(3000))
		assert.LessOrEqual(t, p.Count, int64(10000))
	}

	// 10-minute granularity across the window.
	step := series[1].Timestamp.Sub(series[0].Timestamp)
	assert.Equal(t, 10*time.Minute, step)
}

func TestVolumeSeries_ShapeAndRange(t *testing.T) {
	g := testGenerator()
	series := g.VolumeSeries(time.Now().UTC())
	require.Len(t, series, 24)

	for _, p := range series {
		assert.GreaterOrEqual(t, p.Volume, 100.0)
		assert.Less(t, p.Volume, 1000.0)
	}
}

func TestVolume_InRange(t *testing.T) {
	g := testGenerator()
	for i := 0; i < 100; i++ {
		v := g.Volume()
		assert.GreaterOrEqual(t, v, 100.0)
		assert.Less(t, v, 1000.0)
	}
}

func TestLowFeePoint_BackdatedThirtyMinutes(t *testing.T) {
	g := testGenerator()
	now := time.Now().UTC()

	p := g.LowFeePoint(now)
	assert.Equal(t, int64(14), p.HourFee)
	assert.Equal(t, now.Add(-30*time.Minute), p.Timestamp)
}
