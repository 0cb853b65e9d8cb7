package service

import (
	"context"
	"fmt"
	"runtime"

	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
	"golang.org/x/sync/errgroup"
)

// Grouped applies one charge model to every sub-aggregation of a grouped
// aggregation and tags each fee with its group key.
//
// Each group is priced against the parent's aggregator, narrowed to the group
// through its Scope, so per-event models see exactly that group's events.
type Grouped struct {
	workers int
}

// NewGrouped returns a fan-out evaluating up to workers groups at once. One
// worker evaluates sequentially; zero or less uses GOMAXPROCS.
func NewGrouped(workers int) *Grouped {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Grouped{workers: workers}
}

func (g *Grouped) Workers() int {
	return g.workers
}

// Apply returns one fee per sub-aggregation, in sub-aggregation order. When
// several groups fail, the error of the first failing group in that order is
// returned so the outcome does not depend on scheduling.
func (g *Grouped) Apply(
	ctx context.Context,
	model ChargeModel,
	props chargedomain.ChargeProperties,
	agg chargedomain.AggregationResult,
	currency chargedomain.Currency,
) ([]chargedomain.FeeResult, error) {
	if len(agg.SubAggregations) == 0 {
		return nil, chargedomain.ErrEmptyGrouping
	}

	fees := make([]chargedomain.FeeResult, len(agg.SubAggregations))
	errs := make([]error, len(agg.SubAggregations))

	applyGroup := func(i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}

		group := agg.SubAggregations[i]
		if group.Result.Grouped() {
			errs[i] = fmt.Errorf("%w: group %s", chargedomain.ErrNestedGrouping, group.GroupKey)
			return
		}

		scope := Scope{
			Aggregator: agg.Aggregator,
			GroupedBy:  group.GroupKey,
			Currency:   currency,
		}
		fee, err := model.Apply(props, group.Result, scope)
		if err != nil {
			errs[i] = fmt.Errorf("group %s: %w", group.GroupKey, err)
			return
		}
		fee.GroupedBy = group.GroupKey.Clone()
		fees[i] = fee
	}

	if g.workers == 1 || len(agg.SubAggregations) == 1 {
		for i := range agg.SubAggregations {
			applyGroup(i)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(g.workers)
		for i := range agg.SubAggregations {
			i := i
			eg.Go(func() error {
				applyGroup(i)
				return nil
			})
		}
		_ = eg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return fees, nil
}
