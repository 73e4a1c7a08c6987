package server

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"mempool-backend/internal/models"
)

var networkDataKey = []byte("network-data")

// testDataResponse mirrors the wire shape the dashboard UI consumes.
type testDataResponse struct {
	Network         models.NetworkSnapshot `json:"network"`
	FeeHistory      []models.FeePoint      `json:"fee_history"`
	MempoolHistory  []models.MempoolPoint  `json:"mempool_history"`
	TxVolumeHistory []models.VolumePoint   `json:"tx_volume_history"`
}

// safeJSON is the never-fail-the-dashboard wrapper: the primary handler runs
// with panic recovery, and any failure is replaced by the endpoint's
// synthesized fallback payload with a 200 status. Only the auth subsystem
// surfaces conventional errors.
func (s *Server) safeJSON(endpoint string, primary func(*http.Request) (interface{}, error), fallback func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		payload, err := recoverable(primary, r)
		if err != nil {
			s.log.Error().Err(err).Str("endpoint", endpoint).Msg("handler failed, serving fallback")
			payload = fallback()
		}
		s.writeJSON(w, http.StatusOK, payload)
	}
}

func recoverable(fn func(*http.Request) (interface{}, error), r *http.Request) (payload interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return fn(r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// fetchNetworkData serves the current snapshot, live-fetching through the
// snapshot service. A short-TTL cache keeps page loads from multiplying
// upstream calls.
func (s *Server) fetchNetworkData(r *http.Request) (interface{}, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(networkDataKey); err == nil {
			s.metrics.IncCacheHits()
			return json.RawMessage(data), nil
		}
		s.metrics.IncCacheMisses()
	}

	snap := s.snapshots.Tick(r.Context())

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(networkDataKey, data, int(s.cfg.Cache.TTL.Seconds()))
		}
	}
	return snap, nil
}

func (s *Server) fallbackNetworkData() interface{} {
	return models.DefaultSnapshot(time.Now().UTC())
}

// fetchFeeHistory returns the stored fee series. A populated series is
// guaranteed to contain at least one point under the low-fee limit; if none
// exists one is seeded 30 minutes in the past (a deliberate test-data seam,
// observable by the client). An empty series yields a synthesized window that
// is not stored.
func (s *Server) fetchFeeHistory(r *http.Request) (interface{}, error) {
	now := time.Now().UTC()

	if s.store.EmptyFees() {
		return s.gen.FeeSeries(now), nil
	}

	if seeded := s.store.SeedLowFee(s.cfg.Simulate.LowFeeLimit, s.gen.LowFeePoint(now)); seeded {
		s.log.Debug().Msg("seeded low-fee point into fee history")
	}
	return s.store.FeeSeries(), nil
}

func (s *Server) fallbackFeeHistory() interface{} {
	return s.gen.FeeSeries(time.Now().UTC())
}

func (s *Server) fetchMempoolHistory(r *http.Request) (interface{}, error) {
	now := time.Now().UTC()
	if s.store.EmptyMempool() {
		return s.gen.MempoolSeries(now), nil
	}
	return s.store.MempoolSeries(), nil
}

func (s *Server) fallbackMempoolHistory() interface{} {
	return s.gen.MempoolSeries(time.Now().UTC())
}

func (s *Server) fetchVolumeHistory(r *http.Request) (interface{}, error) {
	now := time.Now().UTC()
	if s.store.EmptyVolumes() {
		return s.gen.VolumeSeries(now), nil
	}
	return s.store.VolumeSeries(), nil
}

func (s *Server) fallbackVolumeHistory() interface{} {
	return s.gen.VolumeSeries(time.Now().UTC())
}

// fetchTestData returns a fixed illustrative snapshot plus three synthesized
// series for UI development. Shapes are stable across calls; numeric values
// are randomized.
func (s *Server) fetchTestData(r *http.Request) (interface{}, error) {
	now := time.Now().UTC()
	return testDataResponse{
		Network:         models.TestSnapshot(now),
		FeeHistory:      s.gen.FeeSeries(now),
		MempoolHistory:  s.gen.MempoolSeries(now),
		TxVolumeHistory: s.gen.VolumeSeries(now),
	}, nil
}

func (s *Server) fallbackTestData() interface{} {
	now := time.Now().UTC()
	return testDataResponse{
		Network:         models.TestSnapshot(now),
		FeeHistory:      s.gen.FeeSeries(now),
		MempoolHistory:  s.gen.MempoolSeries(now),
		TxVolumeHistory: s.gen.VolumeSeries(now),
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	FeePoints     int    `json:"feePoints"`
	MempoolPoints int    `json:"mempoolPoints"`
	VolumePoints  int    `json:"volumePoints"`
	FeedPort      int    `json:"feedPort"`
	Clients       int    `json:"clients"`
	UniqueClients uint64 `json:"uniqueClients"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status:        "ok",
		FeePoints:     len(s.store.FeeSeries()),
		MempoolPoints: len(s.store.MempoolSeries()),
		VolumePoints:  len(s.store.VolumeSeries()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if s.feed != nil {
		resp.FeedPort = s.feed.Port()
		resp.Clients = s.feed.ClientCount()
		resp.UniqueClients = s.feed.UniqueClients()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
