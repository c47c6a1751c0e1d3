package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"strategy-engine/internal/model"
)

// ErrUnknownAlert is returned for operations on an alert ID that was never
// registered.
var ErrUnknownAlert = errors.New("alert: unknown alert id")

// Store persists alert state transitions. Implementations must tolerate being
// called from the evaluation hot path; the evaluator logs and continues on
// store errors rather than blocking tick processing.
type Store interface {
	SaveAlert(ctx context.Context, a Alert) error
	UpdateAlertStatus(ctx context.Context, id string, status Status, triggeredAt time.Time) error
}

// Evaluator maintains the alert registry and evaluates conditions against
// incoming updates. All mutation of one symbol's alerts is serialized behind
// that symbol's lock, so concurrent tick deliveries for different symbols
// never contend; reads return snapshot copies.
//
// The data feed is injected by the caller (it pushes updates via OnTick /
// OnIndicator), so independent evaluator instances and test doubles need no
// global wiring.
type Evaluator struct {
	mu      sync.RWMutex
	symbols map[string]*symbolAlerts

	subMu   sync.RWMutex
	subs    map[int]func(Notification)
	nextSub int

	notifMu       sync.Mutex
	notifications []Notification

	store Store // nil when persistence is an external concern
}

// symbolAlerts is the per-symbol shard: alerts plus the per-alert evaluation
// state needed for edge detection.
type symbolAlerts struct {
	mu       sync.Mutex
	alerts   map[string]*Alert
	lastSeen map[string]float64 // previous evaluated value per alert ID
	baseline map[string]float64 // first value seen, for PERCENT_CHANGE
}

// NewEvaluator creates an evaluator. store may be nil.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{
		symbols: make(map[string]*symbolAlerts),
		subs:    make(map[int]func(Notification)),
		store:   store,
	}
}

// Add registers an alert. A missing ID is filled with a fresh UUID, a missing
// status defaults to ACTIVE, and the stored record is persisted when a store
// is attached. Returns the registered alert.
func (e *Evaluator) Add(ctx context.Context, a Alert) (Alert, error) {
	if a.Symbol == "" {
		return Alert{}, errors.New("alert: symbol required")
	}
	switch a.Condition.Comparison {
	case GreaterThan, LessThan, CrossesAbove, CrossesBelow, Equals, PercentChange:
	default:
		return Alert{}, fmt.Errorf("alert: unknown comparison %q", a.Condition.Comparison)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	sa := e.shard(a.Symbol)
	sa.mu.Lock()
	sa.alerts[a.ID] = &a
	sa.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveAlert(ctx, a); err != nil {
			log.Printf("[alert] persist alert %s failed: %v", a.ID, err)
		}
	}
	return a, nil
}

// Dismiss moves an ACTIVE alert to DISMISSED. Dismissing a non-ACTIVE alert
// is a no-op, not an error.
func (e *Evaluator) Dismiss(ctx context.Context, symbol, id string) error {
	sa := e.shard(symbol)
	sa.mu.Lock()
	a, ok := sa.alerts[id]
	if !ok {
		sa.mu.Unlock()
		return ErrUnknownAlert
	}
	if a.Status != StatusActive {
		sa.mu.Unlock()
		return nil
	}
	a.Status = StatusDismissed
	sa.mu.Unlock()

	e.persistStatus(ctx, id, StatusDismissed, time.Time{})
	return nil
}

// Alerts returns a snapshot of the alerts registered for a symbol.
func (e *Evaluator) Alerts(symbol string) []Alert {
	sa := e.shard(symbol)
	sa.mu.Lock()
	defer sa.mu.Unlock()
	out := make([]Alert, 0, len(sa.alerts))
	for _, a := range sa.alerts {
		out = append(out, *a)
	}
	return out
}

// Subscribe registers a notification callback and returns its unsubscribe
// handle. Delivery is at-least-once within the process; callback order
// across subscribers is unspecified.
func (e *Evaluator) Subscribe(fn func(Notification)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// Notifications returns a snapshot of all emitted notifications.
func (e *Evaluator) Notifications() []Notification {
	e.notifMu.Lock()
	defer e.notifMu.Unlock()
	out := make([]Notification, len(e.notifications))
	copy(out, e.notifications)
	return out
}

// MarkRead flips the read flag on one notification.
func (e *Evaluator) MarkRead(id string) {
	e.notifMu.Lock()
	defer e.notifMu.Unlock()
	for i := range e.notifications {
		if e.notifications[i].ID == id {
			e.notifications[i].Read = true
			return
		}
	}
}

// ClearAllNotifications drops the notification history.
func (e *Evaluator) ClearAllNotifications() {
	e.notifMu.Lock()
	e.notifications = nil
	e.notifMu.Unlock()
}

// OnTick evaluates all ACTIVE price alerts for the tick's symbol.
func (e *Evaluator) OnTick(ctx context.Context, tick model.Tick) {
	e.evaluate(ctx, tick.Symbol, ConditionPrice, "", tick.Price, tick.TS)
}

// OnIndicator evaluates ACTIVE technical and volatility alerts watching the
// named indicator stream for the symbol.
func (e *Evaluator) OnIndicator(ctx context.Context, symbol, indicator string, value float64, ts time.Time) {
	e.evaluate(ctx, symbol, ConditionTechnical, indicator, value, ts)
	e.evaluate(ctx, symbol, ConditionVolatility, indicator, value, ts)
}

func (e *Evaluator) evaluate(ctx context.Context, symbol string, condType ConditionType, indicator string, value float64, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	sa := e.shard(symbol)
	var triggered []Notification
	var expired []string

	sa.mu.Lock()
	for id, a := range sa.alerts {
		if a.Status != StatusActive || a.Condition.Type != condType {
			continue
		}
		if condType != ConditionPrice && a.Condition.Indicator != indicator {
			continue
		}
		if !a.ExpiresAt.IsZero() && ts.After(a.ExpiresAt) {
			a.Status = StatusExpired
			expired = append(expired, id)
			continue
		}

		prev, hasPrev := sa.lastSeen[id]
		sa.lastSeen[id] = value
		if a.Condition.Comparison == PercentChange {
			if _, ok := sa.baseline[id]; !ok {
				sa.baseline[id] = value
				continue
			}
		}
		if !conditionMet(a.Condition, prev, hasPrev, value, sa.baseline[id]) {
			continue
		}

		now := ts
		a.Status = StatusTriggered
		a.TriggeredAt = &now
		triggered = append(triggered, Notification{
			ID:        uuid.NewString(),
			AlertID:   id,
			Symbol:    symbol,
			Message:   fmt.Sprintf("%s: %s (value %g)", symbol, a.Condition, value),
			Priority:  a.Priority,
			Timestamp: now,
		})
	}
	sa.mu.Unlock()

	for _, id := range expired {
		e.persistStatus(ctx, id, StatusExpired, time.Time{})
	}
	for _, n := range triggered {
		e.persistStatus(ctx, n.AlertID, StatusTriggered, n.Timestamp)
		e.emit(n)
	}
}

// conditionMet applies the comparison. Crossings need a previous value:
// the first observation can never be a crossing.
func conditionMet(c Condition, prev float64, hasPrev bool, cur, baseline float64) bool {
	switch c.Comparison {
	case GreaterThan:
		return cur > c.Value
	case LessThan:
		return cur < c.Value
	case Equals:
		return math.Abs(cur-c.Value) <= equalsEpsilon
	case CrossesAbove:
		return hasPrev && prev <= c.Value && cur > c.Value
	case CrossesBelow:
		return hasPrev && prev >= c.Value && cur < c.Value
	case PercentChange:
		if baseline == 0 {
			return false
		}
		return math.Abs((cur-baseline)/baseline)*100 >= c.Value
	}
	return false
}

// emit records the notification and fans it out to all subscribers.
func (e *Evaluator) emit(n Notification) {
	e.notifMu.Lock()
	e.notifications = append(e.notifications, n)
	e.notifMu.Unlock()

	e.subMu.RLock()
	for _, fn := range e.subs {
		fn(n)
	}
	e.subMu.RUnlock()
}

func (e *Evaluator) persistStatus(ctx context.Context, id string, status Status, triggeredAt time.Time) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateAlertStatus(ctx, id, status, triggeredAt); err != nil {
		log.Printf("[alert] persist status %s=%s failed: %v", id, status, err)
	}
}

func (e *Evaluator) shard(symbol string) *symbolAlerts {
	e.mu.RLock()
	sa, ok := e.symbols[symbol]
	e.mu.RUnlock()
	if ok {
		return sa
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if sa, ok = e.symbols[symbol]; ok {
		return sa
	}
	sa = &symbolAlerts{
		alerts:   make(map[string]*Alert),
		lastSeen: make(map[string]float64),
		baseline: make(map[string]float64),
	}
	e.symbols[symbol] = sa
	return sa
}
