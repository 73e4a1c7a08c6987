package models

import "time"

// SavingsRate converts a fee-tier spread (sat/vB) into the estimated BTC saved
// by waiting for the one-hour tier instead of the fastest one.
const SavingsRate = 0.0001

// Fees holds the recommended fee tiers in sat/vB as reported by the upstream
// fee-recommendation endpoint.
type Fees struct {
	FastestFee  int64 `json:"fastestFee"`
	HalfHourFee int64 `json:"halfHourFee"`
	HourFee     int64 `json:"hourFee"`
	MinimumFee  int64 `json:"minimumFee"`
}

// Mempool holds the upstream mempool summary.
type Mempool struct {
	Count int64 `json:"count"`
	Vsize int64 `json:"vsize"`
}

// NetworkSnapshot is a point-in-time aggregate of fee, mempool and difficulty
// figures. A snapshot is built fresh on every fetch cycle and never mutated
// afterwards; consumers always receive a whole replacement.
type NetworkSnapshot struct {
	Fees           Fees    `json:"fees"`
	Mempool        Mempool `json:"mempool"`
	Savings        float64 `json:"savings"`
	Difficulty     int64   `json:"difficulty"`
	AdjustmentTime string  `json:"adjustmentTime"`
}

// FeePoint is one sample of the one-hour fee tier.
type FeePoint struct {
	Timestamp time.Time `json:"timestamp"`
	HourFee   int64     `json:"hourFee"`
}

// MempoolPoint is one sample of the mempool transaction count.
type MempoolPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`
}

// VolumePoint is one sample of the simulated transaction volume in BTC.
// Volume is demo data, not an upstream measurement.
type VolumePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume"`
}

// Difficulty constants used when the upstream difficulty-adjustment response
// omits the corresponding fields.
const (
	DefaultDifficulty int64 = 88000000000000
	TestDifficulty    int64 = 90000000000000
)

// DefaultSnapshot is the fixed snapshot served whenever the upstream API is
// unreachable. The dashboard never goes blank; it degrades to this.
func DefaultSnapshot(now time.Time) NetworkSnapshot {
	return NetworkSnapshot{
		Fees: Fees{
			FastestFee:  50,
			HalfHourFee: 30,
			HourFee:     20,
			MinimumFee:  10,
		},
		Mempool: Mempool{
			Count: 5000,
			Vsize: 1000000,
		},
		Savings:        0.0005,
		Difficulty:     DefaultDifficulty,
		AdjustmentTime: now.UTC().Format(time.RFC3339),
	}
}

// TestSnapshot is the fixed illustrative snapshot returned by the /test-data
// endpoint for UI development.
func TestSnapshot(now time.Time) NetworkSnapshot {
	return NetworkSnapshot{
		Fees: Fees{
			FastestFee:  60,
			HalfHourFee: 40,
			HourFee:     25,
			MinimumFee:  15,
		},
		Mempool: Mempool{
			Count: 6000,
			Vsize: 1200000,
		},
		Savings:        0.0007,
		Difficulty:     TestDifficulty,
		AdjustmentTime: now.UTC().Format(time.RFC3339),
	}
}
