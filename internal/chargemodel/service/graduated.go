package service

import (
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// graduatedModel walks the tier schedule band by band. Billing starts at the
// units already consumed in the period so a later computation continues in the
// band where the previous one stopped.
type graduatedModel struct{}

func (graduatedModel) Type() chargedomain.ChargeModelType { return chargedomain.Graduated }

func (graduatedModel) Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}
	if len(props.Tiers) == 0 {
		return chargedomain.FeeResult{}, invalidProps("tiers are required")
	}

	units := billableUnits(agg.Aggregation, props.FreeUnits)
	windowStart := agg.CurrentUsageUnits
	windowEnd := windowStart.Add(units)

	amount := decimal.Zero
	breakdown := make([]chargedomain.TierCharge, 0, len(props.Tiers))
	for _, tier := range props.Tiers {
		// Tiers are contiguous and ordered, nothing further can be reached.
		if !windowEnd.GreaterThan(tier.FromValue) {
			break
		}

		lower := decimal.Max(tier.FromValue, windowStart)
		upper := windowEnd
		if tier.ToValue != nil {
			upper = decimal.Min(upper, *tier.ToValue)
		}
		if !upper.GreaterThan(lower) {
			continue
		}

		tierUnits := upper.Sub(lower)
		flat := decimal.Zero
		// The flat fee belongs to whichever computation enters the band.
		if !windowStart.GreaterThan(tier.FromValue) {
			flat = tier.FlatAmount
		}
		total := flat.Add(tierUnits.Mul(tier.PerUnitAmount))
		amount = amount.Add(total)

		breakdown = append(breakdown, chargedomain.TierCharge{
			FromValue:     tier.FromValue,
			ToValue:       tier.ToValue,
			Units:         tierUnits,
			PerUnitAmount: tier.PerUnitAmount,
			FlatAmount:    flat,
			TotalAmount:   total,
		})
	}

	fee, err := newFee(amount, units, blendedUnitAmount(amount, units), scope)
	if err != nil {
		return chargedomain.FeeResult{}, err
	}
	fee.Tiers = breakdown
	return fee, nil
}
