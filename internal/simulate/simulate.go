// Package simulate produces the synthesized series and values served when no
// real samples exist. All of it is demo data; none of it is stored unless a
// caller explicitly appends it.
package simulate

import (
	"math/rand"
	"sync"
	"time"

	"mempool-backend/config"
	"mempool-backend/internal/models"
)

// Generator synthesizes plausible random series according to the configured
// shapes and ranges.
type Generator struct {
	cfg  config.SimulateConfig
	rand *rand.Rand
	mu   sync.Mutex
}

// NewGenerator creates a generator seeded from the wall clock.
func NewGenerator(cfg config.SimulateConfig) *Generator {
	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) intBetween(min, max int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rand.Int63n(max-min+1)
}

func (g *Generator) floatBetween(min, max float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rand.Float64()*(max-min)
}

// Volume returns a synthesized transaction volume in BTC. This accompanies
// every successful fetch; the upstream API has no volume figure.
func (g *Generator) Volume() float64 {
	return g.floatBetween(g.cfg.VolumeMin, g.cfg.VolumeMax)
}

// FeeSeries returns a full synthesized fee window, oldest first. The newest
// point always carries the low fee so the dashboard's low-fee marker renders.
func (g *Generator) FeeSeries(now time.Time) []models.FeePoint {
	points := make([]models.FeePoint, g.cfg.FeePoints)
	for i := g.cfg.FeePoints - 1; i >= 0; i-- {
		fee := g.intBetween(g.cfg.FeeMin, g.cfg.FeeMax)
		if i == 0 {
			fee = g.cfg.LowFee
		}
		points[g.cfg.FeePoints-1-i] = models.FeePoint{
			Timestamp: now.Add(-time.Duration(i) * g.cfg.FeeStep),
			HourFee:   fee,
		}
	}
	return points
}

// MempoolSeries returns a full synthesized mempool-count window, oldest first.
func (g *Generator) MempoolSeries(now time.Time) []models.MempoolPoint {
	points := make([]models.MempoolPoint, g.cfg.MempoolPoints)
	for i := g.cfg.MempoolPoints - 1; i >= 0; i-- {
		points[g.cfg.MempoolPoints-1-i] = models.MempoolPoint{
			Timestamp: now.Add(-time.Duration(i) * g.cfg.MempoolStep),
			Count:     g.intBetween(g.cfg.MempoolMin, g.cfg.MempoolMax),
		}
	}
	return points
}

// VolumeSeries returns a full synthesized volume window, oldest first.
func (g *Generator) VolumeSeries(now time.Time) []models.VolumePoint {
	points := make([]models.VolumePoint, g.cfg.VolumePoints)
	for i := g.cfg.VolumePoints - 1; i >= 0; i-- {
		points[g.cfg.VolumePoints-1-i] = models.VolumePoint{
			Timestamp: now.Add(-time.Duration(i) * g.cfg.VolumeStep),
			Volume:    g.floatBetween(g.cfg.VolumeMin, g.cfg.VolumeMax),
		}
	}
	return points
}

// LowFeePoint returns the seed point appended when a populated fee series has
// no entry under the low-fee limit.
func (g *Generator) LowFeePoint(now time.Time) models.FeePoint {
	return models.FeePoint{
		Timestamp: now.Add(-g.cfg.LowFeeAge),
		HourFee:   g.cfg.LowFee,
	}
}
