// Package broadcaster runs the websocket feed: a dedicated listener that
// pushes the current snapshot to every connected subscriber on a fixed period.
package broadcaster

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mempool-backend/config"
	"mempool-backend/internal/metrics"
	"mempool-backend/internal/models"
)

// SnapshotSource produces the snapshot pushed on every period. Tick is total
// and never errors.
type SnapshotSource interface {
	Tick(ctx context.Context) models.NetworkSnapshot
}

// Client is one connected subscriber.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster manages subscribers and the periodic fetch-and-push loop.
type Broadcaster struct {
	cfg      config.BroadcastConfig
	source   SnapshotSource
	metrics  metrics.Provider
	log      zerolog.Logger
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	portMu sync.RWMutex
	port   int

	uniqueMu sync.Mutex
	unique   *hyperloglog.Sketch
}

// NewBroadcaster creates a broadcaster; Start must be called to bind and run.
func NewBroadcaster(cfg config.BroadcastConfig, source SnapshotSource, m metrics.Provider, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		cfg:        cfg,
		source:     source,
		metrics:    m,
		log:        log.With().Str("component", "broadcaster").Logger(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		unique:     hyperloglog.New14(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start binds the feed listener and runs the hub loop until ctx is canceled.
// The preferred port gets exactly one fallback attempt; if both binds fail the
// feed is disabled and Start returns — the HTTP server is unaffected.
func (b *Broadcaster) Start(ctx context.Context) {
	listener := b.bind()
	if listener == nil {
		b.log.Warn().Msg("websocket feed disabled, no port could be bound")
		return
	}

	b.portMu.Lock()
	b.port = listener.Addr().(*net.TCPAddr).Port
	b.portMu.Unlock()

	server := &http.Server{Handler: http.HandlerFunc(b.handleUpgrade)}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			b.log.Error().Err(err).Msg("websocket feed serve error")
		}
	}()

	b.log.Info().Int("port", b.Port()).Msg("websocket feed listening")

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			server.Close()
			b.closeAll()
			return

		case client := <-b.register:
			b.addClient(client)

		case client := <-b.unregister:
			b.removeClient(client)

		case <-ticker.C:
			b.BroadcastOnce(ctx)
		}
	}
}

// bind tries the preferred port, then the fallback exactly once.
func (b *Broadcaster) bind() net.Listener {
	for i, port := range []int{b.cfg.PreferredPort, b.cfg.FallbackPort} {
		addr := fmt.Sprintf("%s:%d", b.cfg.Host, port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener
		}
		if i == 0 {
			b.log.Warn().Err(err).Int("port", port).Msg("preferred feed port unavailable, trying fallback")
		} else {
			b.log.Error().Err(err).Int("port", port).Msg("fallback feed port unavailable")
		}
	}
	return nil
}

// Port returns the bound feed port, or 0 when the feed is disabled.
func (b *Broadcaster) Port() int {
	b.portMu.RLock()
	defer b.portMu.RUnlock()
	return b.port
}

// BroadcastOnce performs one fetch-and-push cycle: a single Tick, then a
// non-blocking send to every subscriber. A subscriber with a full buffer is
// dropped rather than allowed to stall the rest.
func (b *Broadcaster) BroadcastOnce(ctx context.Context) {
	snapshot := b.source.Tick(ctx)

	data, err := json.Marshal(snapshot)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to encode snapshot")
		return
	}

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			go func(c *Client) { b.unregister <- c }(client)
		}
	}

	b.metrics.IncBroadcasts()
	if len(clients) > 0 {
		b.log.Debug().Int("clients", len(clients)).Msg("snapshot broadcast")
	}
}

func (b *Broadcaster) addClient(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) >= b.cfg.MaxClients {
		close(client.send)
		return
	}

	b.clients[client] = true
	go client.writePump()

	b.uniqueMu.Lock()
	b.unique.Insert([]byte(client.id))
	b.uniqueMu.Unlock()

	b.metrics.SetSubscribers(len(b.clients))
	b.log.Debug().Str("client", client.id).Int("clients", len(b.clients)).Msg("subscriber connected")
}

func (b *Broadcaster) removeClient(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client.send)
		b.metrics.SetSubscribers(len(b.clients))
		b.log.Debug().Str("client", client.id).Msg("subscriber dropped")
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		delete(b.clients, client)
		close(client.send)
	}
	b.metrics.SetSubscribers(0)
}

// ClientCount returns the current number of subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// UniqueClients estimates how many distinct subscribers connected over the
// process lifetime.
func (b *Broadcaster) UniqueClients() uint64 {
	b.uniqueMu.Lock()
	defer b.uniqueMu.Unlock()
	return b.unique.Estimate()
}

func (b *Broadcaster) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		id:   fmt.Sprintf("client_%d", time.Now().UnixNano()),
		conn: conn,
		send: make(chan []byte, b.cfg.SendBuffer),
	}

	b.register <- client
	go client.readPump(b.unregister)
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection. No client-to-server messages are defined,
// but the read loop notices closes and keeps pong handling alive.
func (c *Client) readPump(unregister chan<- *Client) {
	defer func() {
		unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
