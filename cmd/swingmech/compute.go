package main

import (
	"context"

	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/pipeline"
	"github.com/obplab/swingmech/internal/store"
)

// runCompute executes one pipeline run. With persistence enabled the
// results also land in SQLite for the API to serve.
func runCompute(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("compute")

	var opts []pipeline.Option
	if cfg.Persist {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		opts = append(opts, pipeline.WithStore(st))
	}

	sum, err := pipeline.New(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Str("event", "compute.done").
		Str("run_id", sum.RunID).
		Int("processed", sum.Processed).
		Int("failed", sum.Failed).
		Str("output", sum.OutputCSV).
		Msg("compute finished")
	return nil
}
