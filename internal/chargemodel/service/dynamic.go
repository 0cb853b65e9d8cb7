package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// dynamicModel sums the amounts the events were already priced at.
type dynamicModel struct{}

func (dynamicModel) Type() chargedomain.ChargeModelType { return chargedomain.Dynamic }

func (dynamicModel) Apply(_ chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}

	events := scope.Events()
	amount := decimal.Zero
	for i, event := range events {
		if event.Amount.IsNegative() {
			return chargedomain.FeeResult{}, fmt.Errorf("%w: event %d amount %s", chargedomain.ErrNegativeUsage, i, event.Amount.String())
		}
		amount = amount.Add(event.Amount)
	}

	units := agg.Aggregation
	fee, err := newFee(amount, units, blendedUnitAmount(amount, units), scope)
	if err != nil {
		return chargedomain.FeeResult{}, err
	}
	fee.EventsCount = int64(len(events))
	return fee, nil
}
