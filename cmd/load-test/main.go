// Load test for the websocket snapshot feed: connects many subscribers, counts
// delivered snapshots and decode failures, and prints periodic rates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"mempool-backend/internal/models"
)

var (
	clients       = flag.Int("clients", 500, "number of concurrent feed subscribers")
	duration      = flag.Duration("duration", 5*time.Minute, "test duration")
	feedURL       = flag.String("url", "ws://localhost:8765/", "websocket feed URL")
	rampUp        = flag.Duration("rampup", 10*time.Second, "time to ramp up all subscribers")
	printInterval = flag.Duration("print", 5*time.Second, "statistics print interval")
)

type stats struct {
	connected    int64
	disconnected int64
	snapshots    int64
	badPayloads  int64
	errors       int64
}

func main() {
	flag.Parse()

	u, err := url.Parse(*feedURL)
	if err != nil {
		log.Fatalf("invalid feed URL: %v", err)
	}

	fmt.Printf("feed load test: %d subscribers against %s for %v\n", *clients, u, *duration)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var st stats
	var wg sync.WaitGroup

	go reportStats(ctx, &st)

	interval := *rampUp / time.Duration(*clients)
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go subscribe(ctx, &wg, u, &st)
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	fmt.Printf("all %d subscribers started\n", *clients)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		fmt.Println("test duration completed")
	case <-sigChan:
		fmt.Println("interrupted")
		cancel()
	}

	wg.Wait()

	snapshots := atomic.LoadInt64(&st.snapshots)
	errors := atomic.LoadInt64(&st.errors)
	fmt.Printf("\npeak connected: %d\n", atomic.LoadInt64(&st.connected))
	fmt.Printf("snapshots received: %d\n", snapshots)
	fmt.Printf("undecodable payloads: %d\n", atomic.LoadInt64(&st.badPayloads))
	fmt.Printf("errors: %d\n", errors)
	if snapshots+errors > 0 {
		fmt.Printf("success rate: %.2f%%\n", 100.0*float64(snapshots)/float64(snapshots+errors))
	}
}

func subscribe(ctx context.Context, wg *sync.WaitGroup, u *url.URL, st *stats) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&st.errors, 1)
		return
	}
	defer conn.Close()

	atomic.AddInt64(&st.connected, 1)
	defer atomic.AddInt64(&st.disconnected, 1)

	go func() {
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, payload, err := conn.ReadMessage()
				if err != nil {
					if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						atomic.AddInt64(&st.errors, 1)
					}
					return
				}

				var snap models.NetworkSnapshot
				if err := json.Unmarshal(payload, &snap); err != nil {
					atomic.AddInt64(&st.badPayloads, 1)
					continue
				}
				atomic.AddInt64(&st.snapshots, 1)
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				atomic.AddInt64(&st.errors, 1)
				return
			}
		}
	}
}

func reportStats(ctx context.Context, st *stats) {
	ticker := time.NewTicker(*printInterval)
	defer ticker.Stop()

	var lastSnapshots int64
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			connected := atomic.LoadInt64(&st.connected)
			disconnected := atomic.LoadInt64(&st.disconnected)
			snapshots := atomic.LoadInt64(&st.snapshots)
			errors := atomic.LoadInt64(&st.errors)

			active := connected - disconnected
			delta := snapshots - lastSnapshots
			rate := float64(delta) / printInterval.Seconds()
			avgRate := float64(snapshots) / time.Since(startTime).Seconds()

			fmt.Printf("active: %d | snapshots: %d (+%d) | rate: %.1f/s (avg %.1f/s) | errors: %d\n",
				active, snapshots, delta, rate, avgRate, errors)

			lastSnapshots = snapshots
		}
	}
}
