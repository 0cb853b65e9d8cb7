package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tier is one usage band of a graduated or volume schedule. A nil ToValue means
// the band is unbounded.
type Tier struct {
	FromValue     decimal.Decimal  `json:"from_value" validate:"gte=0"`
	ToValue       *decimal.Decimal `json:"to_value" validate:"omitempty,gte=0"`
	PerUnitAmount decimal.Decimal  `json:"per_unit_amount" validate:"gte=0"`
	FlatAmount    decimal.Decimal  `json:"flat_amount" validate:"gte=0"`
}

// Contains reports whether usage falls into the band. The lower bound is
// exclusive except for a band starting at zero, the upper bound is inclusive.
func (t Tier) Contains(usage decimal.Decimal) bool {
	if t.FromValue.IsZero() {
		if usage.IsNegative() {
			return false
		}
	} else if !usage.GreaterThan(t.FromValue) {
		return false
	}
	return t.ToValue == nil || usage.LessThanOrEqual(*t.ToValue)
}

// ChargeProperties is the pricing configuration of a charge. Which fields are
// required depends on the charge model; see Validate.
type ChargeProperties struct {
	FreeUnits decimal.Decimal `json:"free_units" validate:"gte=0"`

	// standard unit amount, or the price of one package
	Amount *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gte=0"`

	Tiers []Tier `json:"tiers,omitempty" validate:"omitempty,dive"`

	PackageSize *decimal.Decimal `json:"package_size,omitempty" validate:"omitempty,gt=0"`

	Rate                    *decimal.Decimal `json:"rate,omitempty" validate:"omitempty,gte=0"`
	FixedAmount             *decimal.Decimal `json:"fixed_amount,omitempty" validate:"omitempty,gte=0"`
	FreeUnitsPerEvents      int64            `json:"free_units_per_events,omitempty" validate:"gte=0"`
	PerTransactionMinAmount *decimal.Decimal `json:"per_transaction_min_amount,omitempty" validate:"omitempty,gte=0"`
	PerTransactionMaxAmount *decimal.Decimal `json:"per_transaction_max_amount,omitempty" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Decimals are validated by sign, so only gte=0 and gt=0 are meaningful on them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.Sign()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseProperties decodes raw charge properties and validates them for the model.
// Unknown keys are rejected.
func ParseProperties(model ChargeModelType, raw datatypes.JSONMap) (ChargeProperties, error) {
	var props ChargeProperties
	if raw == nil {
		raw = datatypes.JSONMap{}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return props, fmt.Errorf("%w: %v", ErrInvalidProperties, err)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&props); err != nil {
		return props, fmt.Errorf("%w: %v", ErrInvalidProperties, err)
	}

	if err := props.Validate(model); err != nil {
		return ChargeProperties{}, err
	}
	return props, nil
}

// Validate checks the properties against the requirements of the model.
func (p ChargeProperties) Validate(model ChargeModelType) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrInvalidProperties, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidProperties, err)
	}

	switch model {
	case Standard:
		if p.Amount == nil {
			return invalid("amount is required")
		}
	case Graduated:
		return validateTiers(p.Tiers)
	case Volume:
		if !p.FreeUnits.IsZero() {
			return invalid("free_units is not supported by volume pricing")
		}
		return validateTiers(p.Tiers)
	case Package:
		if p.PackageSize == nil {
			return invalid("package_size is required")
		}
		if p.Amount == nil {
			return invalid("amount is required")
		}
	case Percentage:
		if p.Rate == nil {
			return invalid("rate is required")
		}
		if p.PerTransactionMinAmount != nil && p.PerTransactionMaxAmount != nil &&
			p.PerTransactionMinAmount.GreaterThan(*p.PerTransactionMaxAmount) {
			return invalid("per_transaction_min_amount exceeds per_transaction_max_amount")
		}
	case Dynamic:
		if !p.FreeUnits.IsZero() {
			return invalid("free_units is not supported by dynamic pricing")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChargeModel, model)
	}
	return nil
}

// validateTiers requires a contiguous schedule starting at zero where each band
// starts at the previous band's upper bound and only the last band is unbounded.
func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return invalid("tiers are required")
	}
	if !tiers[0].FromValue.IsZero() {
		return invalid("tiers[0].from_value must be 0")
	}

	last := len(tiers) - 1
	for i, tier := range tiers {
		if tier.ToValue == nil {
			if i != last {
				return invalid(fmt.Sprintf("tiers[%d].to_value is required", i))
			}
		} else {
			if i == last {
				return invalid(fmt.Sprintf("tiers[%d].to_value must be empty on the last tier", i))
			}
			if !tier.ToValue.GreaterThan(tier.FromValue) {
				return invalid(fmt.Sprintf("tiers[%d].to_value must be greater than from_value", i))
			}
		}
		if i > 0 && !tier.FromValue.Equal(*tiers[i-1].ToValue) {
			return invalid(fmt.Sprintf("tiers[%d].from_value must equal tiers[%d].to_value", i, i-1))
		}
	}
	return nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidProperties, reason)
}
