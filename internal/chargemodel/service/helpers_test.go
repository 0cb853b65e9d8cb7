package service

import (
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

var usd = chargedomain.Currency{Code: "USD", Exponent: 2}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	out := d(v)
	return &out
}

func usage(v string) chargedomain.AggregationResult {
	return chargedomain.AggregationResult{Aggregation: d(v)}
}

func usdScope() Scope {
	return Scope{Currency: usd}
}
