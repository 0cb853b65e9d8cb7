package service

import (
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// percentageModel bills a rate on the aggregated value plus an optional fixed
// fee per transaction.
//
// The first FreeUnitsPerEvents events are free, value and fixed fee alike.
// FreeUnits is a further value allowance consumed after them. When transaction
// caps are configured and the aggregator exposes events, every paid event is
// priced and clamped on its own; without events the caps clamp the total.
type percentageModel struct{}

func (percentageModel) Type() chargedomain.ChargeModelType { return chargedomain.Percentage }

func (percentageModel) Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}
	if props.Rate == nil {
		return chargedomain.FeeResult{}, invalidProps("rate is required")
	}

	rate := *props.Rate
	fixed := decimal.Zero
	if props.FixedAmount != nil {
		fixed = *props.FixedAmount
	}

	events := scope.Events()
	for _, event := range events {
		if event.Value.IsNegative() {
			return chargedomain.FeeResult{}, chargedomain.ErrNegativeUsage
		}
	}

	count := agg.Count
	if len(events) > 0 {
		count = int64(len(events))
	}
	freeEvents := min(props.FreeUnitsPerEvents, count)
	paidEvents := count - freeEvents

	freeValue := decimal.Zero
	for i := 0; i < len(events) && int64(i) < freeEvents; i++ {
		freeValue = freeValue.Add(events[i].Value)
	}
	freeValue = decimal.Min(freeValue.Add(props.FreeUnits), agg.Aggregation)
	units := agg.Aggregation.Sub(freeValue)

	capped := props.PerTransactionMinAmount != nil || props.PerTransactionMaxAmount != nil

	var amount decimal.Decimal
	switch {
	case capped && len(events) > 0:
		amount, paidEvents = perTransactionAmount(events, freeEvents, props.FreeUnits, rate, fixed, props)
	case capped && (units.IsPositive() || paidEvents > 0):
		amount = clampAmount(units.Mul(rate).Add(decimal.NewFromInt(paidEvents).Mul(fixed)), props)
	default:
		amount = units.Mul(rate).Add(decimal.NewFromInt(paidEvents).Mul(fixed))
	}

	fee, err := newFee(amount, units, blendedUnitAmount(amount, units), scope)
	if err != nil {
		return chargedomain.FeeResult{}, err
	}
	fee.EventsCount = paidEvents
	return fee, nil
}

func perTransactionAmount(
	events []chargedomain.Event,
	freeEvents int64,
	allowance, rate, fixed decimal.Decimal,
	props chargedomain.ChargeProperties,
) (decimal.Decimal, int64) {
	total := decimal.Zero
	var paid int64
	for i, event := range events {
		if int64(i) < freeEvents {
			continue
		}

		value := event.Value
		if allowance.IsPositive() {
			covered := decimal.Min(allowance, value)
			allowance = allowance.Sub(covered)
			value = value.Sub(covered)
		}

		total = total.Add(clampAmount(value.Mul(rate).Add(fixed), props))
		paid++
	}
	return total, paid
}

func clampAmount(amount decimal.Decimal, props chargedomain.ChargeProperties) decimal.Decimal {
	if props.PerTransactionMinAmount != nil {
		amount = decimal.Max(amount, *props.PerTransactionMinAmount)
	}
	if props.PerTransactionMaxAmount != nil {
		amount = decimal.Min(amount, *props.PerTransactionMaxAmount)
	}
	return amount
}
