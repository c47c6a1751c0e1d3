// cmd/alertd runs the alert evaluation daemon: it streams ticks from a live
// WebSocket feed (or replays stored candles when no feed is configured),
// fans them out, evaluates alert conditions per symbol, and dispatches
// notifications to the configured backends.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strategy-engine/config"
	"strategy-engine/internal/alert"
	"strategy-engine/internal/logger"
	"strategy-engine/internal/marketdata/bus"
	"strategy-engine/internal/marketdata/replay"
	"strategy-engine/internal/marketdata/ws"
	"strategy-engine/internal/metrics"
	"strategy-engine/internal/model"
	"strategy-engine/internal/notification"
	redisstore "strategy-engine/internal/store/redis"
	sqlitestore "strategy-engine/internal/store/sqlite"
)

const tickBufferSize = 1024

func main() {
	timeframe := flag.String("tf", "1h", "Candle timeframe for replay mode")
	fromTS := flag.Int64("from", 0, "Replay start timestamp (0=all)")
	speed := flag.Float64("speed", 0, "Replay speed multiplier (0=as fast as possible)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("alertd", logger.ParseLevel(cfg.LogLevel))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	store, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[alertd] sqlite open failed: %v", err)
	}
	defer store.Close()

	// Redis is optional. Without it, triggered alerts still reach the
	// notification backends; they just aren't published to subscribers.
	var pub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		pub, err = redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("[alertd] redis connect failed: %v", err)
		}
		defer pub.Close()
	}

	evaluator := alert.NewEvaluator(store)
	active, err := store.LoadActiveAlerts(ctx)
	if err != nil {
		log.Fatalf("[alertd] load alerts: %v", err)
	}
	for _, a := range active {
		if _, err := evaluator.Add(ctx, a); err != nil {
			log.Printf("[alertd] skip alert %s: %v", a.ID, err)
		}
	}
	m.AlertsActive.Set(float64(len(active)))
	log.Printf("[alertd] restored %d active alerts", len(active))

	notifiers := buildNotifiers(cfg)
	unsubscribe := evaluator.Subscribe(func(n alert.Notification) {
		m.AlertsTriggered.WithLabelValues(string(n.Priority)).Inc()
		m.AlertsActive.Dec()
		notification.Dispatch(ctx, notifiers, n, func(backend string, err error) {
			if err != nil {
				m.NotifyErrors.WithLabelValues(backend).Inc()
				return
			}
			m.NotificationsSent.WithLabelValues(backend).Inc()
		})
		if pub != nil {
			if err := pub.PublishNotification(ctx, n); err != nil {
				log.Printf("[alertd] redis publish failed: %v", err)
			}
		}
	})
	defer unsubscribe()

	// Fan-out bus: evaluator + latest-tick cache consume independently.
	fan := bus.New(tickBufferSize)
	fan.OnDrop = func(idx int) {
		m.TicksDropped.WithLabelValues(subscriberName(idx)).Inc()
	}
	evalCh := fan.Subscribe()
	cacheCh := fan.Subscribe()

	tickCh := make(chan model.Tick, tickBufferSize)
	go fan.Run(ctx, tickCh)

	go func() {
		for tick := range evalCh {
			start := time.Now()
			evaluator.OnTick(ctx, tick)
			m.EvalDuration.Observe(time.Since(start).Seconds())
			m.TicksTotal.Inc()
			health.RecordTick()
		}
	}()
	go func() {
		for tick := range cacheCh {
			if pub == nil {
				continue
			}
			if err := pub.SetLatestTick(ctx, tick); err != nil {
				log.Printf("[alertd] cache tick failed: %v", err)
			}
		}
	}()

	if pub != nil {
		health.StartLivenessChecker(ctx, pub.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()

	feedDone := make(chan error, 1)
	symbols := cfg.ParseSymbols()
	if cfg.TickFeedURL != "" {
		ingest, err := ws.New(ws.IngestConfig{URL: cfg.TickFeedURL, Symbols: symbols})
		if err != nil {
			log.Fatalf("[alertd] ws ingest: %v", err)
		}
		ingest.OnReconnect = func() {
			m.WSReconnects.Inc()
			health.SetFeedConnected(false)
		}
		health.SetFeedConnected(true)
		go func() { feedDone <- ingest.Start(ctx, tickCh) }()
		log.Printf("[alertd] live feed %s (%d symbols)", cfg.TickFeedURL, len(symbols))
	} else {
		replayer := replay.New(store)
		go func() { feedDone <- replayer.Run(ctx, symbols, *timeframe, *fromTS, *speed, tickCh) }()
		log.Printf("[alertd] replaying %s candles for %d symbols", *timeframe, len(symbols))
	}

	select {
	case sig := <-sigCh:
		log.Printf("[alertd] received %v, shutting down", sig)
	case err := <-feedDone:
		if err != nil && ctx.Err() == nil {
			log.Printf("[alertd] feed stopped: %v", err)
		} else {
			log.Println("[alertd] feed finished")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)
	log.Println("[alertd] shutdown complete")
}

func buildNotifiers(cfg *config.Config) []notification.Notifier {
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	return notifiers
}

func subscriberName(idx int) string {
	switch idx {
	case 0:
		return "evaluator"
	case 1:
		return "tick_cache"
	default:
		return "unknown"
	}
}
