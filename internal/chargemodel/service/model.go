package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// Scope is the per-invocation context a charge model prices against. The grouped
// decorator builds a fresh Scope for every group, so nothing is shared between
// groups.
type Scope struct {
	Aggregator chargedomain.Aggregator
	GroupedBy  chargedomain.GroupKey
	Currency   chargedomain.Currency
}

// Events resolves the per-event view for the group under evaluation.
func (s Scope) Events() []chargedomain.Event {
	if s.Aggregator == nil {
		return nil
	}
	return s.Aggregator.PerEventAggregation(s.GroupedBy)
}

// ChargeModel prices one aggregation. Implementations must not mutate their inputs.
type ChargeModel interface {
	Type() chargedomain.ChargeModelType
	Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error)
}

func checkUsage(agg chargedomain.AggregationResult) error {
	if agg.Aggregation.IsNegative() {
		return fmt.Errorf("%w: aggregation %s", chargedomain.ErrNegativeUsage, agg.Aggregation.String())
	}
	if agg.CurrentUsageUnits.IsNegative() {
		return fmt.Errorf("%w: current_usage_units %s", chargedomain.ErrNegativeUsage, agg.CurrentUsageUnits.String())
	}
	if agg.Count < 0 {
		return fmt.Errorf("%w: count %d", chargedomain.ErrNegativeUsage, agg.Count)
	}
	return nil
}

func invalidProps(reason string) error {
	return fmt.Errorf("%w: %s", chargedomain.ErrInvalidProperties, reason)
}

// billableUnits deducts free units, never going below zero.
func billableUnits(usage, freeUnits decimal.Decimal) decimal.Decimal {
	return decimal.Max(usage.Sub(freeUnits), decimal.Zero)
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// toMinorUnits rounds half-up to the smallest currency unit. It is the only place
// a monetary value is rounded.
func toMinorUnits(amount decimal.Decimal, currency chargedomain.Currency) (int64, error) {
	rounded := amount.Shift(currency.Exponent).Round(0)
	if rounded.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: %s %s", chargedomain.ErrAmountOverflow, amount.String(), currency.Code)
	}
	return rounded.IntPart(), nil
}

// addMinorUnits sums non-negative minor-unit amounts, failing instead of wrapping.
func addMinorUnits(total, amount int64) (int64, error) {
	if amount > math.MaxInt64-total {
		return 0, fmt.Errorf("%w: total exceeds %d minor units", chargedomain.ErrAmountOverflow, int64(math.MaxInt64))
	}
	return total + amount, nil
}

// blendedUnitAmount is the average price per billable unit.
func blendedUnitAmount(amount, units decimal.Decimal) decimal.Decimal {
	if units.IsZero() {
		return decimal.Zero
	}
	return amount.Div(units)
}

func newFee(amount, units, unitAmount decimal.Decimal, scope Scope) (chargedomain.FeeResult, error) {
	cents, err := toMinorUnits(amount, scope.Currency)
	if err != nil {
		return chargedomain.FeeResult{}, err
	}
	return chargedomain.FeeResult{
		AmountCents:   cents,
		PreciseAmount: amount,
		UnitAmount:    unitAmount,
		Units:         units,
		Currency:      scope.Currency.Code,
	}, nil
}
