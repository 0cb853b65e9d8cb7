package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chargeengine/internal/chargemodel"
	chargedomain "github.com/smallbiznis/chargeengine/internal/chargemodel/domain"
	"github.com/smallbiznis/chargeengine/internal/config"
	"github.com/smallbiznis/chargeengine/internal/observability"
	"go.uber.org/fx"
)

func main() {
	chargePath := flag.String("charge", "", "Path to the charge JSON file")
	aggregationPath := flag.String("aggregation", "", "Path to the aggregation JSON file")
	flag.Parse()

	if *chargePath == "" || *aggregationPath == "" {
		fmt.Fprintln(os.Stderr, "usage: chargeengine -charge charge.json -aggregation aggregation.json")
		os.Exit(2)
	}

	var (
		svc  chargedomain.Service
		node *snowflake.Node
	)
	app := fx.New(
		config.Module,
		observability.Module,
		chargemodel.Module,
		fx.Provide(RegisterSnowflake),
		fx.Populate(&svc, &node),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err := run(context.Background(), svc, node, *chargePath, *aggregationPath)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc chargedomain.Service, node *snowflake.Node, chargePath, aggregationPath string) error {
	charge, err := readCharge(chargePath, node)
	if err != nil {
		return err
	}
	agg, err := readAggregation(aggregationPath)
	if err != nil {
		return err
	}

	resp, err := svc.Compute(ctx, chargedomain.ComputeRequest{
		Charge:      charge,
		Aggregation: agg,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
