package main

import (
	"fmt"

	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/eval"
	"github.com/obplab/swingmech/internal/log"
)

// runEvaluate compares the computed export against the reference angles and
// writes the per-column metrics CSV.
func runEvaluate(cfg config.AppConfig) error {
	logger := log.WithComponent("evaluate")

	if cfg.TargetCSV == "" {
		return fmt.Errorf("no reference CSV configured: set SWINGMECH_TARGET_CSV or SWINGMECH_OBP_ROOT")
	}

	skip := make(map[string]struct{}, len(cfg.SkipSwings))
	for _, s := range cfg.SkipSwings {
		skip[s] = struct{}{}
	}

	results, err := eval.Run(eval.Options{
		SourceCSV:  cfg.OutputCSV,
		TargetCSV:  cfg.TargetCSV,
		ResultsCSV: cfg.ResultsCSV,
		SkipSwings: skip,
	})
	if err != nil {
		return err
	}

	for _, res := range results {
		logger.Info().
			Str("event", "evaluate.metric").
			Str("column", res.Col).
			Str("metric", res.Metric).
			Float64("value", res.Value).
			Msg("column evaluated")
	}
	logger.Info().
		Str("event", "evaluate.done").
		Int("metrics", len(results)).
		Str("results", cfg.ResultsCSV).
		Msg("evaluation finished")
	return nil
}
