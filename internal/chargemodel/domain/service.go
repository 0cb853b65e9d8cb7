package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ChargeModelType string

var (
	Standard   ChargeModelType = "standard"
	Graduated  ChargeModelType = "graduated"
	Volume     ChargeModelType = "volume"
	Package    ChargeModelType = "package"
	Percentage ChargeModelType = "percentage"
	Dynamic    ChargeModelType = "dynamic"
)

// ParseChargeModelType normalizes a declared model identifier.
func ParseChargeModelType(raw string) ChargeModelType {
	return ChargeModelType(strings.ToLower(strings.TrimSpace(raw)))
}

// Charge is the pricing configuration of one billable metric.
type Charge struct {
	ID         snowflake.ID      `json:"id"`
	Model      ChargeModelType   `json:"charge_model"`
	Currency   string            `json:"currency"`
	Properties datatypes.JSONMap `json:"properties"`
}

type ComputeRequest struct {
	Charge      Charge
	Aggregation AggregationResult
}

type ComputeResponse struct {
	ChargeID         string      `json:"charge_id"`
	ChargeModel      string      `json:"charge_model"`
	Currency         string      `json:"currency"`
	Fees             []FeeResult `json:"fees"`
	TotalAmountCents int64       `json:"total_amount_cents"`
}

type Service interface {
	Compute(context.Context, ComputeRequest) (*ComputeResponse, error)
}

var (
	ErrInvalidProperties  = errors.New("invalid_properties")
	ErrNegativeUsage      = errors.New("negative_usage")
	ErrEmptyGrouping      = errors.New("empty_grouping")
	ErrNestedGrouping     = errors.New("nested_grouping")
	ErrUnknownChargeModel = errors.New("unknown_charge_model")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrAmountOverflow     = errors.New("amount_overflow")
)
