package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

const (
	ChargeErrorReasonInvalidProperties = "invalid_properties"
	ChargeErrorReasonNegativeUsage     = "negative_usage"
	ChargeErrorReasonEmptyGrouping     = "empty_grouping"
	ChargeErrorReasonNestedGrouping    = "nested_grouping"
	ChargeErrorReasonUnknownModel      = "unknown_charge_model"
	ChargeErrorReasonInvalidCurrency   = "invalid_currency"
	ChargeErrorReasonAmountOverflow    = "amount_overflow"
	ChargeErrorReasonDeadlineExceeded  = "deadline_exceeded"
	ChargeErrorReasonCanceled          = "canceled"
	ChargeErrorReasonUnknown           = "unknown"
)

// EngineMetrics captures charge engine latency and failures for Prometheus scraping.
type EngineMetrics struct {
	computeDuration *prometheus.HistogramVec
	computeErrors   *prometheus.CounterVec
	groupsPerCharge prometheus.Observer
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "chargeengine"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	computeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "chargeengine_compute_duration_seconds",
		Help:        "Charge computation latency by model.",
		Buckets:     []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1},
		ConstLabels: constLabels,
	}, []string{"charge_model", "grouped"})
	computeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "chargeengine_compute_errors_total",
		Help:        "Charge computation errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"charge_model", "reason"})
	groupsPerCharge := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "chargeengine_groups_per_charge",
		Help:        "Number of groups fanned out per grouped charge.",
		Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(computeDuration, computeErrors, groupsPerCharge)

	return &EngineMetrics{
		computeDuration: computeDuration,
		computeErrors:   computeErrors,
		groupsPerCharge: groupsPerCharge,
	}
}

// ObserveCompute records computation latency in seconds.
func (m *EngineMetrics) ObserveCompute(chargeModel string, grouped bool, duration time.Duration) {
	if m == nil || m.computeDuration == nil {
		return
	}
	groupedLabel := "false"
	if grouped {
		groupedLabel = "true"
	}
	m.computeDuration.WithLabelValues(chargeModel, groupedLabel).Observe(duration.Seconds())
}

// IncComputeError increments the error counter with classification.
func (m *EngineMetrics) IncComputeError(chargeModel string, err error) {
	if m == nil || err == nil || m.computeErrors == nil {
		return
	}
	m.computeErrors.WithLabelValues(chargeModel, ClassifyChargeError(err)).Inc()
}

// ObserveGroups records the fan-out width of a grouped charge.
func (m *EngineMetrics) ObserveGroups(groups int) {
	if m == nil || m.groupsPerCharge == nil || groups <= 0 {
		return
	}
	m.groupsPerCharge.Observe(float64(groups))
}

// ClassifyChargeError maps an engine error to a metric reason label.
func ClassifyChargeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chargedomain.ErrInvalidProperties):
		return ChargeErrorReasonInvalidProperties
	case errors.Is(err, chargedomain.ErrNegativeUsage):
		return ChargeErrorReasonNegativeUsage
	case errors.Is(err, chargedomain.ErrEmptyGrouping):
		return ChargeErrorReasonEmptyGrouping
	case errors.Is(err, chargedomain.ErrNestedGrouping):
		return ChargeErrorReasonNestedGrouping
	case errors.Is(err, chargedomain.ErrUnknownChargeModel):
		return ChargeErrorReasonUnknownModel
	case errors.Is(err, chargedomain.ErrInvalidCurrency):
		return ChargeErrorReasonInvalidCurrency
	case errors.Is(err, chargedomain.ErrAmountOverflow):
		return ChargeErrorReasonAmountOverflow
	case errors.Is(err, context.DeadlineExceeded):
		return ChargeErrorReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ChargeErrorReasonCanceled
	default:
		return ChargeErrorReasonUnknown
	}
}
