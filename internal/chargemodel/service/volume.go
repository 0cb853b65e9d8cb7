package service

import (
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// volumeModel bills the whole usage at the rate of the single tier containing it.
type volumeModel struct{}

func (volumeModel) Type() chargedomain.ChargeModelType { return chargedomain.Volume }

func (volumeModel) Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}
	if len(props.Tiers) == 0 {
		return chargedomain.FeeResult{}, invalidProps("tiers are required")
	}

	units := agg.Aggregation
	if units.IsZero() {
		return newFee(decimal.Zero, units, decimal.Zero, scope)
	}

	for _, tier := range props.Tiers {
		if !tier.Contains(units) {
			continue
		}
		amount := units.Mul(tier.PerUnitAmount).Add(tier.FlatAmount)
		return newFee(amount, units, blendedUnitAmount(amount, units), scope)
	}

	return chargedomain.FeeResult{}, invalidProps("no tier covers usage " + units.String())
}
