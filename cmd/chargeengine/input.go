package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
)

// aggregationFile is the on-disk aggregation. Events, when present, back the
// per-event view of the aggregation and of every sub-aggregation.
type aggregationFile struct {
	chargedomain.AggregationResult
	Events chargedomain.EventList `json:"events"`
}

func readCharge(path string, node *snowflake.Node) (chargedomain.Charge, error) {
	var charge chargedomain.Charge
	if err := readJSON(path, &charge); err != nil {
		return chargedomain.Charge{}, err
	}
	charge.Model = chargedomain.ParseChargeModelType(string(charge.Model))
	if charge.ID == 0 && node != nil {
		charge.ID = node.Generate()
	}
	return charge, nil
}

func readAggregation(path string) (chargedomain.AggregationResult, error) {
	var file aggregationFile
	if err := readJSON(path, &file); err != nil {
		return chargedomain.AggregationResult{}, err
	}
	agg := file.AggregationResult
	if len(file.Events) > 0 {
		agg.Aggregator = file.Events
	}
	return agg, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
