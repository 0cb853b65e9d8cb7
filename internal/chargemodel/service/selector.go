package service

import (
	"context"
	"fmt"
	"sort"

	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// Evaluator prices an aggregation and returns one fee per priced partition.
type Evaluator interface {
	Evaluate(
		ctx context.Context,
		props chargedomain.ChargeProperties,
		agg chargedomain.AggregationResult,
		currency chargedomain.Currency,
	) ([]chargedomain.FeeResult, error)
}

type plainEvaluator struct {
	model ChargeModel
}

func (e plainEvaluator) Evaluate(
	_ context.Context,
	props chargedomain.ChargeProperties,
	agg chargedomain.AggregationResult,
	currency chargedomain.Currency,
) ([]chargedomain.FeeResult, error) {
	fee, err := e.model.Apply(props, agg, Scope{Aggregator: agg.Aggregator, Currency: currency})
	if err != nil {
		return nil, err
	}
	return []chargedomain.FeeResult{fee}, nil
}

type groupedEvaluator struct {
	model  ChargeModel
	fanout *Grouped
}

func (e groupedEvaluator) Evaluate(
	ctx context.Context,
	props chargedomain.ChargeProperties,
	agg chargedomain.AggregationResult,
	currency chargedomain.Currency,
) ([]chargedomain.FeeResult, error) {
	return e.fanout.Apply(ctx, e.model, props, agg, currency)
}

// Selector maps a declared charge model to its evaluator. The set of models is
// fixed when the selector is built.
type Selector struct {
	models map[chargedomain.ChargeModelType]ChargeModel
	fanout *Grouped
}

func NewSelector(fanout *Grouped) *Selector {
	if fanout == nil {
		fanout = NewGrouped(0)
	}
	s := &Selector{
		models: make(map[chargedomain.ChargeModelType]ChargeModel),
		fanout: fanout,
	}
	for _, m := range []ChargeModel{
		standardModel{},
		graduatedModel{},
		volumeModel{},
		packageModel{},
		percentageModel{},
		dynamicModel{},
	} {
		s.models[m.Type()] = m
	}
	return s
}

// Model returns the bare strategy for a model identifier.
func (s *Selector) Model(model chargedomain.ChargeModelType) (ChargeModel, error) {
	m, ok := s.models[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", chargedomain.ErrUnknownChargeModel, model)
	}
	return m, nil
}

// Select returns the evaluator for the model, wrapped in the group fan-out when
// grouped is set.
func (s *Selector) Select(model chargedomain.ChargeModelType, grouped bool) (Evaluator, error) {
	m, err := s.Model(model)
	if err != nil {
		return nil, err
	}
	if grouped {
		return groupedEvaluator{model: m, fanout: s.fanout}, nil
	}
	return plainEvaluator{model: m}, nil
}

// Models lists the registered model identifiers in sorted order.
func (s *Selector) Models() []string {
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
