// Package domain contains the inputs and outputs of charge model evaluation.
package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// GroupKey identifies one partition of a grouped aggregation, e.g. {"region": "EU"}.
type GroupKey map[string]string

// String renders the key with sorted dimensions so it is stable across runs.
func (k GroupKey) String() string {
	if len(k) == 0 {
		return ""
	}
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+k[key])
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy that does not share the underlying map.
func (k GroupKey) Clone() GroupKey {
	if k == nil {
		return nil
	}
	out := make(GroupKey, len(k))
	for key, value := range k {
		out[key] = value
	}
	return out
}

// Event is a single usage event as seen by per-event pricing.
type Event struct {
	Value      decimal.Decimal   `json:"value"`
	Amount     decimal.Decimal   `json:"amount"`
	Properties map[string]string `json:"properties,omitempty"`
}

// matches reports whether the event belongs to the given group.
func (e Event) matches(group GroupKey) bool {
	for key, value := range group {
		if e.Properties[key] != value {
			return false
		}
	}
	return true
}

// Aggregator exposes the per-event view behind an aggregation.
type Aggregator interface {
	PerEventAggregation(groupedBy GroupKey) []Event
}

// EventList is an in-memory Aggregator. Events keep their upstream order.
type EventList []Event

// PerEventAggregation returns the events belonging to the group, or all events when
// the group is empty.
func (l EventList) PerEventAggregation(groupedBy GroupKey) []Event {
	if len(groupedBy) == 0 {
		out := make([]Event, len(l))
		copy(out, l)
		return out
	}
	out := make([]Event, 0, len(l))
	for _, event := range l {
		if event.matches(groupedBy) {
			out = append(out, event)
		}
	}
	return out
}

// AggregationResult is the usage summary produced upstream for one billing period.
type AggregationResult struct {
	Aggregation       decimal.Decimal      `json:"aggregation"`
	CurrentUsageUnits decimal.Decimal      `json:"current_usage_units"`
	Count             int64                `json:"count"`
	Aggregator        Aggregator           `json:"-"`
	SubAggregations   []GroupedAggregation `json:"sub_aggregations,omitempty"`
}

// GroupedAggregation pairs a group key with the aggregation computed for it.
type GroupedAggregation struct {
	GroupKey GroupKey          `json:"group_key"`
	Result   AggregationResult `json:"result"`
}

// Grouped reports whether the aggregation was partitioned upstream.
func (a AggregationResult) Grouped() bool {
	return len(a.SubAggregations) > 0
}

// TierCharge is the share of a graduated fee billed in one tier.
type TierCharge struct {
	FromValue     decimal.Decimal  `json:"from_value"`
	ToValue       *decimal.Decimal `json:"to_value,omitempty"`
	Units         decimal.Decimal  `json:"units"`
	PerUnitAmount decimal.Decimal  `json:"per_unit_amount"`
	FlatAmount    decimal.Decimal  `json:"flat_amount"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
}

// FeeResult is the priced output of one charge model invocation.
type FeeResult struct {
	AmountCents   int64           `json:"amount_cents"`
	PreciseAmount decimal.Decimal `json:"precise_amount"`
	UnitAmount    decimal.Decimal `json:"unit_amount"`
	Units         decimal.Decimal `json:"units"`
	EventsCount   int64           `json:"events_count"`
	Currency      string          `json:"currency"`
	GroupedBy     GroupKey        `json:"grouped_by,omitempty"`
	Tiers         []TierCharge    `json:"tiers,omitempty"`
}
