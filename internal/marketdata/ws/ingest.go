// Package ws ingests live ticks from a WebSocket market-data feed.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"strategy-engine/internal/model"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	maxBackoff = 30 * time.Second
)

// IngestConfig holds configuration for the WS ingest.
type IngestConfig struct {
	URL     string   // ws:// or wss:// endpoint emitting tick frames
	Symbols []string // symbols to subscribe after connect; empty = feed default
}

// tickFrame is the wire format of one feed message.
type tickFrame struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	TS     int64   `json:"ts"` // unix milliseconds
}

// subscribeFrame is sent once per connection to select symbols.
type subscribeFrame struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// Ingest connects to the feed and pushes normalized ticks into a channel,
// reconnecting with exponential backoff on failure.
type Ingest struct {
	cfg IngestConfig

	// OnReconnect is an optional metrics hook, called per reconnect attempt.
	OnReconnect func()
}

// New creates a new Ingest instance.
func New(cfg IngestConfig) (*Ingest, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ws ingest: feed URL required")
	}
	return &Ingest{cfg: cfg}, nil
}

// Start streams ticks into tickCh until ctx is cancelled. A full channel
// drops the tick; live data is only useful fresh.
func (ing *Ingest) Start(ctx context.Context, tickCh chan<- model.Tick) error {
	backoff := time.Second
	for {
		if err := ing.runConn(ctx, tickCh); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[ws] connection error: %v, reconnecting in %v", err, backoff)
			if ing.OnReconnect != nil {
				ing.OnReconnect()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runConn handles a single connection lifetime: dial, subscribe, read loop.
func (ing *Ingest) runConn(ctx context.Context, tickCh chan<- model.Tick) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, ing.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", ing.cfg.URL, err)
	}
	defer conn.Close()
	log.Printf("[ws] connected to %s", ing.cfg.URL)

	if len(ing.cfg.Symbols) > 0 {
		sub := subscribeFrame{Action: "subscribe", Symbols: ing.cfg.Symbols}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		log.Printf("[ws] subscribed to %v", ing.cfg.Symbols)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keepalive pings and context teardown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var frame tickFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			log.Printf("[ws] bad frame: %v", err)
			continue
		}
		if frame.Symbol == "" {
			continue
		}
		tick := model.Tick{
			Symbol: frame.Symbol,
			Price:  frame.Price,
			Volume: frame.Volume,
			TS:     time.UnixMilli(frame.TS).UTC(),
		}
		select {
		case tickCh <- tick:
		default:
			log.Println("[ws] tickCh full, dropping tick")
		}
	}
}
