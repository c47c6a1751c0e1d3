package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"strategy-engine/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

var evalT0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func tickAt(price float64, offset time.Duration) model.Tick {
	return model.Tick{Symbol: "BTCUSDT", Price: price, TS: evalT0.Add(offset)}
}

func priceAlert(cmp Comparison, value float64) Alert {
	return Alert{
		Symbol:    "BTCUSDT",
		Condition: Condition{Type: ConditionPrice, Comparison: cmp, Value: value},
	}
}

// recordingStore captures persistence calls for assertions.
type recordingStore struct {
	mu       sync.Mutex
	saved    []Alert
	statuses map[string]Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{statuses: make(map[string]Status)}
}

func (s *recordingStore) SaveAlert(_ context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, a)
	return nil
}

func (s *recordingStore) UpdateAlertStatus(_ context.Context, id string, status Status, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

// ────────────────────────────────────────────────────────────
// Registration
// ────────────────────────────────────────────────────────────

func TestAdd_FillsDefaults(t *testing.T) {
	e := NewEvaluator(nil)
	a, err := e.Add(context.Background(), priceAlert(GreaterThan, 100))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" {
		t.Error("expected generated ID")
	}
	if a.Status != StatusActive || a.Priority != PriorityMedium {
		t.Errorf("defaults: status=%s priority=%s", a.Status, a.Priority)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	e := NewEvaluator(nil)
	if _, err := e.Add(context.Background(), Alert{Condition: Condition{Comparison: GreaterThan}}); err == nil {
		t.Error("expected error for missing symbol")
	}
	bad := priceAlert("SOMETIMES_ABOVE", 100)
	if _, err := e.Add(context.Background(), bad); err == nil {
		t.Error("expected error for unknown comparison")
	}
}

// ────────────────────────────────────────────────────────────
// Threshold comparisons
// ────────────────────────────────────────────────────────────

func TestOnTick_GreaterThanTriggersOnce(t *testing.T) {
	e := NewEvaluator(nil)
	a, _ := e.Add(context.Background(), priceAlert(GreaterThan, 100))

	e.OnTick(context.Background(), tickAt(101, 0))
	e.OnTick(context.Background(), tickAt(102, time.Second))

	notifs := e.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifs))
	}
	if notifs[0].AlertID != a.ID || notifs[0].Symbol != "BTCUSDT" {
		t.Errorf("notification mismatch: %+v", notifs[0])
	}

	alerts := e.Alerts("BTCUSDT")
	if len(alerts) != 1 || alerts[0].Status != StatusTriggered {
		t.Fatalf("expected TRIGGERED alert, got %+v", alerts)
	}
	if alerts[0].TriggeredAt == nil || !alerts[0].TriggeredAt.Equal(evalT0) {
		t.Errorf("TriggeredAt: got %v, want %v", alerts[0].TriggeredAt, evalT0)
	}
}

func TestOnTick_EqualsWithinEpsilon(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(Equals, 100))

	e.OnTick(context.Background(), tickAt(100.001, 0)) // outside 1e-4
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("0.001 away should not match, got %d notifications", got)
	}

	e.OnTick(context.Background(), tickAt(100.00005, time.Second))
	if got := len(e.Notifications()); got != 1 {
		t.Fatalf("0.00005 away should match, got %d notifications", got)
	}
}

// ────────────────────────────────────────────────────────────
// Crossings (edge-triggered)
// ────────────────────────────────────────────────────────────

func TestOnTick_CrossesAboveNeedsActualCrossing(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(CrossesAbove, 100))

	// The first observation can never be a crossing, even from above.
	e.OnTick(context.Background(), tickAt(105, 0))
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("first observation triggered a crossing: %d notifications", got)
	}
}

func TestOnTick_CrossesAboveStaysQuietBelowLevel(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(CrossesAbove, 100))

	for i, p := range []float64{99, 99, 99} {
		e.OnTick(context.Background(), tickAt(p, time.Duration(i)*time.Second))
	}
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("no crossing happened, got %d notifications", got)
	}
}

func TestOnTick_CrossesAboveTriggersOnTransition(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(CrossesAbove, 100))

	e.OnTick(context.Background(), tickAt(99, 0))
	e.OnTick(context.Background(), tickAt(101, time.Second))
	e.OnTick(context.Background(), tickAt(103, 2*time.Second)) // already triggered

	if got := len(e.Notifications()); got != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", got)
	}
}

func TestOnTick_CrossesBelow(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(CrossesBelow, 100))

	e.OnTick(context.Background(), tickAt(101, 0))
	e.OnTick(context.Background(), tickAt(99, time.Second))

	if got := len(e.Notifications()); got != 1 {
		t.Fatalf("expected 1 notification, got %d", got)
	}
}

// ────────────────────────────────────────────────────────────
// Percent change
// ────────────────────────────────────────────────────────────

func TestOnTick_PercentChangeBaselineNeverTriggersFirst(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(PercentChange, 5))

	// First observation seeds the baseline at 100.
	e.OnTick(context.Background(), tickAt(100, 0))
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("baseline seed must not trigger, got %d", got)
	}

	// 3% move: below threshold.
	e.OnTick(context.Background(), tickAt(103, time.Second))
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("3%% move should not trigger a 5%% alert, got %d", got)
	}

	// 6% drop from baseline: |94-100|/100 = 6%.
	e.OnTick(context.Background(), tickAt(94, 2*time.Second))
	if got := len(e.Notifications()); got != 1 {
		t.Fatalf("expected 1 notification after 6%% move, got %d", got)
	}
}

// ────────────────────────────────────────────────────────────
// Expiry and dismissal
// ────────────────────────────────────────────────────────────

func TestEvaluate_ExpiredAlertNeverTriggers(t *testing.T) {
	e := NewEvaluator(nil)
	a := priceAlert(GreaterThan, 100)
	a.ExpiresAt = evalT0.Add(-time.Hour)
	e.Add(context.Background(), a)

	e.OnTick(context.Background(), tickAt(150, 0))

	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("expired alert triggered: %d notifications", got)
	}
	alerts := e.Alerts("BTCUSDT")
	if len(alerts) != 1 || alerts[0].Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %+v", alerts)
	}
}

func TestDismiss(t *testing.T) {
	e := NewEvaluator(nil)
	a, _ := e.Add(context.Background(), priceAlert(GreaterThan, 100))

	if err := e.Dismiss(context.Background(), "BTCUSDT", "missing-id"); !errors.Is(err, ErrUnknownAlert) {
		t.Fatalf("expected ErrUnknownAlert, got %v", err)
	}
	if err := e.Dismiss(context.Background(), "BTCUSDT", a.ID); err != nil {
		t.Fatal(err)
	}

	// Dismissed alerts are skipped by evaluation.
	e.OnTick(context.Background(), tickAt(150, 0))
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("dismissed alert triggered: %d notifications", got)
	}

	// Dismissing again is a no-op.
	if err := e.Dismiss(context.Background(), "BTCUSDT", a.ID); err != nil {
		t.Fatalf("second dismiss: %v", err)
	}
}

// ────────────────────────────────────────────────────────────
// Indicator routing
// ────────────────────────────────────────────────────────────

func TestOnIndicator_FiltersByIndicatorName(t *testing.T) {
	e := NewEvaluator(nil)
	a := Alert{
		Symbol:    "BTCUSDT",
		Condition: Condition{Type: ConditionTechnical, Indicator: "rsi", Comparison: GreaterThan, Value: 70},
	}
	e.Add(context.Background(), a)

	e.OnIndicator(context.Background(), "BTCUSDT", "macd", 80, evalT0)
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("macd update must not trigger an rsi alert, got %d", got)
	}

	e.OnIndicator(context.Background(), "BTCUSDT", "rsi", 75, evalT0)
	if got := len(e.Notifications()); got != 1 {
		t.Fatalf("expected 1 notification, got %d", got)
	}
}

func TestOnIndicator_IgnoresPriceAlerts(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(GreaterThan, 100))

	e.OnIndicator(context.Background(), "BTCUSDT", "rsi", 150, evalT0)
	if got := len(e.Notifications()); got != 0 {
		t.Fatalf("indicator update triggered a price alert: %d notifications", got)
	}
}

// ────────────────────────────────────────────────────────────
// Fan-out
// ────────────────────────────────────────────────────────────

func TestSubscribe_Unsubscribe(t *testing.T) {
	e := NewEvaluator(nil)

	var first, second int
	unsub := e.Subscribe(func(Notification) { first++ })
	e.Subscribe(func(Notification) { second++ })

	e.Add(context.Background(), priceAlert(GreaterThan, 100))
	e.OnTick(context.Background(), tickAt(101, 0))
	if first != 1 || second != 1 {
		t.Fatalf("both subscribers should fire once: first=%d second=%d", first, second)
	}

	unsub()
	e.Add(context.Background(), priceAlert(LessThan, 50))
	e.OnTick(context.Background(), tickAt(40, time.Second))
	if first != 1 {
		t.Errorf("unsubscribed callback fired again: %d", first)
	}
	if second != 2 {
		t.Errorf("remaining subscriber: got %d calls, want 2", second)
	}
}

func TestMarkRead(t *testing.T) {
	e := NewEvaluator(nil)
	e.Add(context.Background(), priceAlert(GreaterThan, 100))
	e.OnTick(context.Background(), tickAt(101, 0))

	notifs := e.Notifications()
	if len(notifs) != 1 || notifs[0].Read {
		t.Fatalf("expected one unread notification, got %+v", notifs)
	}
	e.MarkRead(notifs[0].ID)
	if got := e.Notifications(); !got[0].Read {
		t.Error("notification not marked read")
	}

	e.ClearAllNotifications()
	if got := len(e.Notifications()); got != 0 {
		t.Errorf("after clear: got %d notifications, want 0", got)
	}
}

// ────────────────────────────────────────────────────────────
// Persistence
// ────────────────────────────────────────────────────────────

func TestEvaluator_PersistsTransitions(t *testing.T) {
	store := newRecordingStore()
	e := NewEvaluator(store)

	a, _ := e.Add(context.Background(), priceAlert(GreaterThan, 100))
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 SaveAlert call, got %d", len(store.saved))
	}

	e.OnTick(context.Background(), tickAt(101, 0))
	if store.statuses[a.ID] != StatusTriggered {
		t.Errorf("status persisted: got %s, want TRIGGERED", store.statuses[a.ID])
	}

	b, _ := e.Add(context.Background(), priceAlert(LessThan, 50))
	e.Dismiss(context.Background(), "BTCUSDT", b.ID)
	if store.statuses[b.ID] != StatusDismissed {
		t.Errorf("status persisted: got %s, want DISMISSED", store.statuses[b.ID])
	}
}
