package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
	"github.com/smallbiznis/chargeengine/internal/config"
	"github.com/smallbiznis/chargeengine/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
)

func newTestService(t *testing.T, chargeConfig config.ChargeConfig) (chargedomain.Service, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m, err := metrics.New(metrics.Config{ServiceName: "chargeengine-test"}, noop.NewMeterProvider())
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		Log:          zap.NewNop(),
		Tracer:       tp.Tracer("test"),
		Metrics:      m,
		ChargeConfig: config.NewStaticChargeConfigHolder(chargeConfig),
	})
	return svc, recorder
}

func TestServiceComputeStandard(t *testing.T) {
	svc, recorder := newTestService(t, config.DefaultChargeConfig())
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	chargeID := node.Generate()

	resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge: chargedomain.Charge{
			ID:         chargeID,
			Model:      chargedomain.Standard,
			Properties: datatypes.JSONMap{"amount": "2.00", "free_units": "5"},
		},
		Aggregation: usage("12"),
	})
	require.NoError(t, err)

	assert.Equal(t, chargeID.String(), resp.ChargeID)
	assert.Equal(t, "standard", resp.ChargeModel)
	assert.Equal(t, "USD", resp.Currency)
	require.Len(t, resp.Fees, 1)
	assert.Equal(t, int64(1400), resp.Fees[0].AmountCents)
	assert.Equal(t, int64(1400), resp.TotalAmountCents)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chargemodel.compute", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestServiceComputeGrouped(t *testing.T) {
	svc, _ := newTestService(t, config.ChargeConfig{GroupWorkers: 4})

	resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge: chargedomain.Charge{
			Model:      chargedomain.Standard,
			Currency:   "eur",
			Properties: datatypes.JSONMap{"amount": "1.00"},
		},
		Aggregation: regionAggregation(),
	})
	require.NoError(t, err)

	require.Len(t, resp.Fees, 2)
	assert.Equal(t, "EU", resp.Fees[0].GroupedBy["region"])
	assert.Equal(t, int64(1000), resp.Fees[0].AmountCents)
	assert.Equal(t, "US", resp.Fees[1].GroupedBy["region"])
	assert.Equal(t, int64(2000), resp.Fees[1].AmountCents)
	assert.Equal(t, int64(3000), resp.TotalAmountCents)
	assert.Equal(t, "EUR", resp.Currency)
	assert.Empty(t, resp.ChargeID)
}

func TestServiceComputeScenarios(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultChargeConfig())

	tests := []struct {
		name  string
		model chargedomain.ChargeModelType
		props datatypes.JSONMap
		agg   chargedomain.AggregationResult
		want  int64
	}{
		{
			name:  "graduated",
			model: chargedomain.Graduated,
			props: datatypes.JSONMap{"tiers": []any{
				map[string]any{"from_value": 0, "to_value": 10, "per_unit_amount": "1.00"},
				map[string]any{"from_value": 10, "per_unit_amount": "0.50"},
			}},
			agg:  usage("15"),
			want: 1250,
		},
		{
			name:  "package",
			model: chargedomain.Package,
			props: datatypes.JSONMap{"package_size": 100, "amount": "50.00"},
			agg:   usage("150"),
			want:  10000,
		},
		{
			name:  "volume",
			model: chargedomain.Volume,
			props: datatypes.JSONMap{"tiers": []any{
				map[string]any{"from_value": 0, "to_value": 10, "per_unit_amount": "1.00"},
				map[string]any{"from_value": 10, "per_unit_amount": "0.50"},
			}},
			agg:  usage("15"),
			want: 750,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := chargedomain.ComputeRequest{
				Charge:      chargedomain.Charge{Model: tt.model, Properties: tt.props},
				Aggregation: tt.agg,
			}
			first, err := svc.Compute(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, first.TotalAmountCents)

			second, err := svc.Compute(context.Background(), req)
			require.NoError(t, err)
			require.Len(t, second.Fees, len(first.Fees))
			assert.Equal(t, first.TotalAmountCents, second.TotalAmountCents)
			for i := range first.Fees {
				assert.Equal(t, first.Fees[i].PreciseAmount.String(), second.Fees[i].PreciseAmount.String())
			}
		})
	}
}

func TestServiceComputeCurrencyOverride(t *testing.T) {
	svc, _ := newTestService(t, config.ChargeConfig{Currencies: map[string]int32{"idr": 0}})

	resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge: chargedomain.Charge{
			Model:      chargedomain.Standard,
			Currency:   "IDR",
			Properties: datatypes.JSONMap{"amount": "1500.6"},
		},
		Aggregation: usage("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1501), resp.TotalAmountCents)
}

func TestServiceComputeErrors(t *testing.T) {
	svc, recorder := newTestService(t, config.DefaultChargeConfig())

	nested := regionAggregation()
	nested.SubAggregations[1].Result.SubAggregations = []chargedomain.GroupedAggregation{{GroupKey: chargedomain.GroupKey{"plan": "pro"}}}

	negativeGroup := regionAggregation()
	negativeGroup.SubAggregations[0].Result.Aggregation = d("-3")

	tests := []struct {
		name    string
		charge  chargedomain.Charge
		agg     chargedomain.AggregationResult
		wantErr error
	}{
		{
			name:    "unknown model",
			charge:  chargedomain.Charge{Model: "graduated_percentage", Properties: datatypes.JSONMap{}},
			agg:     usage("1"),
			wantErr: chargedomain.ErrUnknownChargeModel,
		},
		{
			name:    "invalid properties",
			charge:  chargedomain.Charge{Model: chargedomain.Package, Properties: datatypes.JSONMap{"amount": "1"}},
			agg:     usage("1"),
			wantErr: chargedomain.ErrInvalidProperties,
		},
		{
			name:    "invalid currency",
			charge:  chargedomain.Charge{Model: chargedomain.Standard, Currency: "DOLLAR", Properties: datatypes.JSONMap{"amount": "1"}},
			agg:     usage("1"),
			wantErr: chargedomain.ErrInvalidCurrency,
		},
		{
			name:    "negative usage",
			charge:  chargedomain.Charge{Model: chargedomain.Standard, Properties: datatypes.JSONMap{"amount": "1"}},
			agg:     usage("-1"),
			wantErr: chargedomain.ErrNegativeUsage,
		},
		{
			name:    "negative group usage",
			charge:  chargedomain.Charge{Model: chargedomain.Standard, Properties: datatypes.JSONMap{"amount": "1"}},
			agg:     negativeGroup,
			wantErr: chargedomain.ErrNegativeUsage,
		},
		{
			name:    "nested grouping",
			charge:  chargedomain.Charge{Model: chargedomain.Standard, Properties: datatypes.JSONMap{"amount": "1"}},
			agg:     nested,
			wantErr: chargedomain.ErrNestedGrouping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{Charge: tt.charge, Aggregation: tt.agg})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, isClientError(err))
		})
	}

	for _, span := range recorder.Ended() {
		assert.Equal(t, codes.Error, span.Status().Code)
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge:      chargedomain.Charge{Model: chargedomain.Dynamic},
		Aggregation: chargedomain.AggregationResult{Aggregation: d("2"), Count: 1, Aggregator: chargedomain.EventList{{Value: d("2"), Amount: d("0.42")}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.TotalAmountCents)
}

func TestServiceComputeRejectsTotalOverflow(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultChargeConfig())

	agg := chargedomain.AggregationResult{
		Aggregation: d("100000000000000000"),
		SubAggregations: []chargedomain.GroupedAggregation{
			{GroupKey: chargedomain.GroupKey{"region": "EU"}, Result: usage("50000000000000000")},
			{GroupKey: chargedomain.GroupKey{"region": "US"}, Result: usage("50000000000000000")},
		},
	}
	resp, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge:      chargedomain.Charge{Model: chargedomain.Standard, Properties: datatypes.JSONMap{"amount": "1"}},
		Aggregation: agg,
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, chargedomain.ErrAmountOverflow)
}

func TestServiceReusesSelectorUntilWorkersChange(t *testing.T) {
	svc := NewService(ServiceParam{Log: zap.NewNop()}).(*Service)

	first := svc.selectorFor(2)
	assert.Same(t, first, svc.selectorFor(2))

	resized := svc.selectorFor(3)
	assert.NotSame(t, first, resized)
	assert.Equal(t, 3, resized.fanout.Workers())
}

func TestServiceLogsInputErrorsAsWarnings(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := NewService(ServiceParam{Log: zap.New(core)})

	_, err := svc.Compute(context.Background(), chargedomain.ComputeRequest{
		Charge:      chargedomain.Charge{Model: chargedomain.Standard, Properties: datatypes.JSONMap{"amount": "1"}},
		Aggregation: usage("-1"),
	})
	require.Error(t, err)

	entries := logs.FilterMessage("charge computation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, isClientError(fmt.Errorf("group region=EU: %w", chargedomain.ErrNegativeUsage)))
	assert.True(t, isClientError(chargedomain.ErrAmountOverflow))
	assert.False(t, isClientError(context.Canceled))
}
