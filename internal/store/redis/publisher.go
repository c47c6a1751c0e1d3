// Package redis publishes alert notifications and latest tick values to
// Redis so other processes (UI backends, bots) can consume them without
// linking this engine.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"strategy-engine/internal/alert"
	"strategy-engine/internal/model"
)

const latestTickTTL = 30 * time.Minute

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes notifications and tick snapshots to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Close releases the client.
func (p *Publisher) Close() error { return p.client.Close() }

// PublishNotification fans a notification out on "alerts:<symbol>" and the
// firehose channel "alerts:all".
func (p *Publisher) PublishNotification(ctx context.Context, n alert.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis marshal notification: %w", err)
	}
	pipe := p.client.Pipeline()
	pipe.Publish(ctx, "alerts:"+n.Symbol, payload)
	pipe.Publish(ctx, "alerts:all", payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish notification: %w", err)
	}
	return nil
}

// SetLatestTick stores the most recent tick per symbol with a TTL, keyed
// "tick:latest:<symbol>".
func (p *Publisher) SetLatestTick(ctx context.Context, tick model.Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("redis marshal tick: %w", err)
	}
	if err := p.client.Set(ctx, "tick:latest:"+tick.Symbol, payload, latestTickTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest tick: %w", err)
	}
	return nil
}

// GetLatestTick reads the cached latest tick for a symbol. The boolean is
// false when no tick is cached.
func (p *Publisher) GetLatestTick(ctx context.Context, symbol string) (model.Tick, bool, error) {
	val, err := p.client.Get(ctx, "tick:latest:"+symbol).Bytes()
	if err == goredis.Nil {
		return model.Tick{}, false, nil
	}
	if err != nil {
		return model.Tick{}, false, fmt.Errorf("redis get latest tick: %w", err)
	}
	var tick model.Tick
	if err := json.Unmarshal(val, &tick); err != nil {
		return model.Tick{}, false, fmt.Errorf("redis unmarshal tick: %w", err)
	}
	return tick, true, nil
}
