package service

import (
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// packageModel bills whole packages; a started package is a billed package.
type packageModel struct{}

func (packageModel) Type() chargedomain.ChargeModelType { return chargedomain.Package }

func (packageModel) Apply(props chargedomain.ChargeProperties, agg chargedomain.AggregationResult, scope Scope) (chargedomain.FeeResult, error) {
	if err := checkUsage(agg); err != nil {
		return chargedomain.FeeResult{}, err
	}
	if props.PackageSize == nil || !props.PackageSize.IsPositive() {
		return chargedomain.FeeResult{}, invalidProps("package_size must be positive")
	}
	if props.Amount == nil {
		return chargedomain.FeeResult{}, invalidProps("amount is required")
	}

	units := billableUnits(agg.Aggregation, props.FreeUnits)
	packages := packageCount(units, *props.PackageSize)
	amount := packages.Mul(*props.Amount)

	return newFee(amount, units, blendedUnitAmount(amount, units), scope)
}

// packageCount is ceil(units / size) computed with an exact remainder.
func packageCount(units, size decimal.Decimal) decimal.Decimal {
	if units.IsZero() {
		return decimal.Zero
	}
	q, r := units.QuoRem(size, 0)
	if !r.IsZero() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}
