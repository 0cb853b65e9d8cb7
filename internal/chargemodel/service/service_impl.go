package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
	"github.com/smallbiznis/chargeengine/internal/config"
	"github.com/smallbiznis/chargeengine/internal/observability/logger"
	"github.com/smallbiznis/chargeengine/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log    *zap.Logger
	tracer trace.Tracer

	metrics       *metrics.Metrics
	engineMetrics *metrics.EngineMetrics
	chargeConfig  *config.ChargeConfigHolder

	selectorMu      sync.Mutex
	selector        *Selector
	selectorWorkers int
}

type ServiceParam struct {
	fx.In

	Log           *zap.Logger
	Tracer        trace.Tracer               `optional:"true"`
	Metrics       *metrics.Metrics           `optional:"true"`
	EngineMetrics *metrics.EngineMetrics     `optional:"true"`
	ChargeConfig  *config.ChargeConfigHolder `optional:"true"`
}

func NewService(p ServiceParam) chargedomain.Service {
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer("chargeengine")
	}
	chargeConfig := p.ChargeConfig
	if chargeConfig == nil {
		chargeConfig = config.NewStaticChargeConfigHolder(config.DefaultChargeConfig())
	}

	return &Service{
		log:    p.Log.Named("chargemodel.service"),
		tracer: tracer,

		metrics:       p.Metrics,
		engineMetrics: p.EngineMetrics,
		chargeConfig:  chargeConfig,
	}
}

func (s *Service) Compute(ctx context.Context, req chargedomain.ComputeRequest) (*chargedomain.ComputeResponse, error) {
	model := req.Charge.Model
	grouped := req.Aggregation.Grouped()

	ctx, span := s.tracer.Start(ctx, "chargemodel.compute", trace.WithAttributes(
		attribute.String("charge_model", string(model)),
		attribute.Bool("grouped", grouped),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.compute(ctx, req)
	s.engineMetrics.ObserveCompute(string(model), grouped, time.Since(start))

	log := logger.WithCharge(logger.WithContext(ctx, s.log), chargeIDString(req.Charge), string(model), req.Charge.Currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordFeeError(ctx, string(model), metrics.ClassifyChargeError(err))
		s.engineMetrics.IncComputeError(string(model), err)
		level := zap.ErrorLevel
		if isClientError(err) {
			level = zap.WarnLevel
		}
		log.Log(level, "charge computation failed", zap.Bool("grouped", grouped), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("currency", resp.Currency),
		attribute.Int("fees", len(resp.Fees)),
		attribute.Int64("total_amount_cents", resp.TotalAmountCents),
	)
	for _, fee := range resp.Fees {
		s.metrics.RecordFee(ctx, string(model), resp.Currency, fee.AmountCents)
	}
	if grouped {
		s.metrics.RecordGroups(ctx, string(model), len(resp.Fees))
		s.engineMetrics.ObserveGroups(len(resp.Fees))
	}

	log.Debug("charge computed",
		zap.Bool("grouped", grouped),
		zap.Int("fees", len(resp.Fees)),
		zap.Int64("total_amount_cents", resp.TotalAmountCents),
	)
	return resp, nil
}

func (s *Service) compute(ctx context.Context, req chargedomain.ComputeRequest) (*chargedomain.ComputeResponse, error) {
	model := req.Charge.Model
	props, err := chargedomain.ParseProperties(model, req.Charge.Properties)
	if err != nil {
		return nil, err
	}

	cfg := s.chargeConfig.Get()
	currency, err := chargedomain.ResolveCurrency(req.Charge.Currency, cfg.Currencies)
	if err != nil {
		return nil, err
	}

	if err := validateAggregation(req.Aggregation); err != nil {
		return nil, err
	}

	evaluator, err := s.selectorFor(cfg.GroupWorkers).Select(model, req.Aggregation.Grouped())
	if err != nil {
		return nil, err
	}

	fees, err := evaluator.Evaluate(ctx, props, req.Aggregation, currency)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, fee := range fees {
		if total, err = addMinorUnits(total, fee.AmountCents); err != nil {
			return nil, err
		}
	}

	return &chargedomain.ComputeResponse{
		ChargeID:         chargeIDString(req.Charge),
		ChargeModel:      string(model),
		Currency:         currency.Code,
		Fees:             fees,
		TotalAmountCents: total,
	}, nil
}

// selectorFor returns the cached selector, rebuilt when the configured worker
// limit changes.
func (s *Service) selectorFor(workers int) *Selector {
	s.selectorMu.Lock()
	defer s.selectorMu.Unlock()

	if s.selector == nil || s.selectorWorkers != workers {
		s.selector = NewSelector(NewGrouped(workers))
		s.selectorWorkers = workers
	}
	return s.selector
}

func validateAggregation(agg chargedomain.AggregationResult) error {
	if err := checkUsage(agg); err != nil {
		return err
	}
	for _, group := range agg.SubAggregations {
		if group.Result.Grouped() {
			return fmt.Errorf("%w: group %s", chargedomain.ErrNestedGrouping, group.GroupKey)
		}
		if err := checkUsage(group.Result); err != nil {
			return fmt.Errorf("group %s: %w", group.GroupKey, err)
		}
	}
	return nil
}

func chargeIDString(charge chargedomain.Charge) string {
	if charge.ID == 0 {
		return ""
	}
	return charge.ID.String()
}

// isClientError reports whether err was caused by the charge or aggregation input.
func isClientError(err error) bool {
	return errors.Is(err, chargedomain.ErrInvalidProperties) ||
		errors.Is(err, chargedomain.ErrNegativeUsage) ||
		errors.Is(err, chargedomain.ErrEmptyGrouping) ||
		errors.Is(err, chargedomain.ErrNestedGrouping) ||
		errors.Is(err, chargedomain.ErrUnknownChargeModel) ||
		errors.Is(err, chargedomain.ErrInvalidCurrency) ||
		errors.Is(err, chargedomain.ErrAmountOverflow)
}
