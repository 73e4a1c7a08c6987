package broadcaster

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mempool-backend/config"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/models"
)

type staticSource struct {
	snap models.NetworkSnapshot
}

func (s staticSource) Tick(ctx context.Context) models.NetworkSnapshot {
	return s.snap
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testBroadcastConfig(t *testing.T) config.BroadcastConfig {
	return config.BroadcastConfig{
		Host:          "127.0.0.1",
		PreferredPort: freePort(t),
		FallbackPort:  freePort(t),
		Interval:      time.Hour,
		SendBuffer:    16,
		MaxClients:    10,
	}
}

func startBroadcaster(t *testing.T, cfg config.BroadcastConfig) (*Broadcaster, context.CancelFunc) {
	t.Helper()

	b := NewBroadcaster(cfg, staticSource{snap: models.TestSnapshot(time.Now().UTC())}, metrics.NewProvider(config.MetricsConfig{}), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("broadcaster did not stop")
		}
	})
	return b, cancel
}

func TestStart_BindsPreferredPort(t *testing.T) {
	cfg := testBroadcastConfig(t)
	b, _ := startBroadcaster(t, cfg)

	require.Eventually(t, func() bool { return b.Port() != 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, cfg.PreferredPort, b.Port())
}

func TestStart_FallsBackWhenPreferredBusy(t *testing.T) {
	cfg := testBroadcastConfig(t)

	occupied, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.PreferredPort))
	require.NoError(t, err)
	defer occupied.Close()

	b, _ := startBroadcaster(t, cfg)

	require.Eventually(t, func() bool { return b.Port() != 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, cfg.FallbackPort, b.Port())
}

func TestStart_BothPortsBusyDisablesFeed(t *testing.T) {
	cfg := testBroadcastConfig(t)

	first, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.PreferredPort))
	require.NoError(t, err)
	defer first.Close()
	second, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.FallbackPort))
	require.NoError(t, err)
	defer second.Close()

	b := NewBroadcaster(cfg, staticSource{}, metrics.NewProvider(config.MetricsConfig{}), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		b.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start should return when no port can be bound")
	}
	assert.Equal(t, 0, b.Port())
}

func dialFeed(t *testing.T, b *Broadcaster, host string) *websocket.Conn {
	t.Helper()

	require.Eventually(t, func() bool { return b.Port() != 0 }, 2*time.Second, 10*time.Millisecond)

	url := fmt.Sprintf("ws://%s:%d/", host, b.Port())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastOnce_DeliversSnapshotToSubscriber(t *testing.T) {
	cfg := testBroadcastConfig(t)
	b, _ := startBroadcaster(t, cfg)

	conn := dialFeed(t, b, cfg.Host)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.BroadcastOnce(context.Background())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap models.NetworkSnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, int64(60), snap.Fees.FastestFee)
	assert.Equal(t, models.TestDifficulty, snap.Difficulty)
}

func TestBroadcastOnce_MultipleSubscribersAllReceive(t *testing.T) {
	cfg := testBroadcastConfig(t)
	b, _ := startBroadcaster(t, cfg)

	first := dialFeed(t, b, cfg.Host)
	second := dialFeed(t, b, cfg.Host)
	require.Eventually(t, func() bool { return b.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	b.BroadcastOnce(context.Background())

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.NotEmpty(t, payload)
	}
}

func TestUniqueClients_CountsDistinctSubscribers(t *testing.T) {
	cfg := testBroadcastConfig(t)
	b, _ := startBroadcaster(t, cfg)

	dialFeed(t, b, cfg.Host)
	dialFeed(t, b, cfg.Host)
	require.Eventually(t, func() bool { return b.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, uint64(2), b.UniqueClients())
}

func TestCancel_DropsAllSubscribers(t *testing.T) {
	cfg := testBroadcastConfig(t)
	b, cancel := startBroadcaster(t, cfg)

	conn := dialFeed(t, b, cfg.Host)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
