// Package notification delivers triggered alert notifications to external
// channels (Telegram, webhooks, logs).
package notification

import (
	"context"
	"log"

	"strategy-engine/internal/alert"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Send delivers a notification. Returns error if delivery fails.
	Send(ctx context.Context, n alert.Notification) error
}

// LogNotifier is a simple notifier that logs notifications (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(ctx context.Context, n alert.Notification) error {
	log.Printf("[notify] [%s] %s: %s", n.Priority, n.Symbol, n.Message)
	return nil
}

// Dispatch sends a notification through every backend. Failures are logged
// instead of aborting: one dead webhook must not silence the rest. onResult,
// if non-nil, is invoked once per backend with the delivery outcome.
func Dispatch(ctx context.Context, notifiers []Notifier, n alert.Notification, onResult func(backend string, err error)) {
	for _, backend := range notifiers {
		err := backend.Send(ctx, n)
		if err != nil {
			log.Printf("[notify] %s send failed: %v", backend.Name(), err)
		}
		if onResult != nil {
			onResult(backend.Name(), err)
		}
	}
}
