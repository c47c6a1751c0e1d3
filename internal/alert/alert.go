// Package alert provides a live condition evaluator over streaming price and
// indicator updates. Alerts are edge-triggered: each one leaves ACTIVE at
// most once and emits exactly one notification when it does.
package alert

import (
	"fmt"
	"time"
)

// ConditionType selects which update stream an alert watches.
type ConditionType string

const (
	ConditionPrice      ConditionType = "PRICE"
	ConditionTechnical  ConditionType = "TECHNICAL"
	ConditionVolatility ConditionType = "VOLATILITY"
)

// Comparison is the operator applied to the watched value.
type Comparison string

const (
	GreaterThan   Comparison = "GREATER_THAN"
	LessThan      Comparison = "LESS_THAN"
	CrossesAbove  Comparison = "CROSSES_ABOVE"
	CrossesBelow  Comparison = "CROSSES_BELOW"
	Equals        Comparison = "EQUALS"
	PercentChange Comparison = "PERCENT_CHANGE"
)

// equalsEpsilon is the tolerance for EQUALS; float equality is never exact.
const equalsEpsilon = 1e-4

// Status is the alert lifecycle. TRIGGERED, DISMISSED and EXPIRED are
// terminal; only an external reset back to ACTIVE re-arms an alert.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusTriggered Status = "TRIGGERED"
	StatusDismissed Status = "DISMISSED"
	StatusExpired   Status = "EXPIRED"
)

// Priority orders notification urgency for downstream consumers.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Condition is the numeric predicate an alert evaluates.
// Indicator names the watched stream for TECHNICAL/VOLATILITY conditions
// (e.g. "RSI_14", "ATR_14"); PRICE conditions watch the raw tick price.
type Condition struct {
	Type       ConditionType `json:"type"`
	Indicator  string        `json:"indicator,omitempty"`
	Comparison Comparison    `json:"comparison"`
	Value      float64       `json:"value"` // threshold, or percent for PERCENT_CHANGE
}

func (c Condition) String() string {
	subject := string(c.Type)
	if c.Indicator != "" {
		subject = c.Indicator
	}
	return fmt.Sprintf("%s %s %g", subject, c.Comparison, c.Value)
}

// Alert is one registered condition for a symbol.
type Alert struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Condition   Condition  `json:"condition"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at,omitempty"` // zero = never expires
}

// Notification is the immutable record emitted once per trigger transition.
// Read is the only field a consumer may flip.
type Notification struct {
	ID        string    `json:"id"`
	AlertID   string    `json:"alert_id"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
