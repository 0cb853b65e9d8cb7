package service

import (
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// standardModel bills every unit above the free allowance at a flat unit amount.
type standardModel struct{}

func (standardModel) Type() chargedomain.ChargeModelType { return chargedomain.Standard }

func (standardModel) Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}
	if props.Amount == nil {
		return chargedomain.FeeResult{}, invalidProps("amount is required")
	}

	units := billableUnits(agg.Aggregation, props.FreeUnits)
	amount := units.Mul(*props.Amount)

	return newFee(amount, units, *props.Amount, scope)
}
