// Package pipeline turns raw capture files into joint angle series: it
// scans the dataset, decodes and filters each capture, builds the segment
// frames of the anatomical model and exports the joint angles.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/obplab/swingmech/internal/body"
	"github.com/obplab/swingmech/internal/c3d"
	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/dataset"
	"github.com/obplab/swingmech/internal/filter"
	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/marker"
	"github.com/obplab/swingmech/internal/metrics"
	"github.com/obplab/swingmech/internal/store"
)

// SwingResult holds the computed angle matrix of one swing.
type SwingResult struct {
	Swing   dataset.Swing
	Columns []string
	Times   []float64
	Values  [][]float64
}

// Summary describes one completed pipeline run.
type Summary struct {
	RunID     string
	Scanned   int
	Processed int
	Failed    int
	Duration  time.Duration
	OutputCSV string
}

// Runner executes the compute pipeline.
type Runner struct {
	mu    sync.RWMutex
	cfg   config.AppConfig
	model *body.Model
	st    *store.Store
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore attaches a persistence layer; results of every run are then
// upserted into it.
func WithStore(st *store.Store) Option {
	return func(r *Runner) { r.st = st }
}

// New creates a Runner over the standard anatomical model.
func New(cfg config.AppConfig, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, model: body.StandardModel()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconfigure swaps the runner's configuration. Runs already in flight keep
// the snapshot they started with; the next run picks up the new values.
func (r *Runner) Reconfigure(cfg config.AppConfig) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Runner) config() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Columns returns the angle column names in export order. Joints on the
// batter's side are "rear", the others "lead", so the set of names does not
// depend on handedness.
func (r *Runner) Columns() []string {
	cols := make([]string, 0, len(r.model.Joints)*3)
	for _, j := range r.model.Joints {
		prefix := "lead_"
		if j.Side == "R" {
			// Export order follows a right-handed batter.
			prefix = "rear_"
		}
		for _, axis := range []string{"x", "y", "z"} {
			cols = append(cols, fmt.Sprintf("%s%s_angle_%s", prefix, j.Name, axis))
		}
	}
	return cols
}

// Run scans the dataset, processes every swing and writes the combined CSV.
// Individual swing failures are logged and counted but do not abort the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	cfg := r.config()
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "pipeline")
	start := time.Now()

	swings, err := dataset.Scan(cfg.CaptureDir)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return Summary{}, err
	}
	metrics.SwingsDiscovered.Set(float64(len(swings)))

	logger.Info().
		Str("event", "pipeline.run_started").
		Int("swings", len(swings)).
		Int("workers", cfg.Workers).
		Msg("pipeline run started")

	results, failed := r.processAll(ctx, cfg, swings)
	if len(swings) > 0 && len(results) == 0 {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return Summary{}, fmt.Errorf("pipeline: all %d swings failed", len(swings))
	}

	if err := WriteCSV(cfg.OutputCSV, r.Columns(), results); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return Summary{}, fmt.Errorf("pipeline: write output: %w", err)
	}

	if r.st != nil {
		if err := r.persist(ctx, runID, results); err != nil {
			metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
			return Summary{}, fmt.Errorf("pipeline: persist: %w", err)
		}
	}

	sum := Summary{
		RunID:     runID,
		Scanned:   len(swings),
		Processed: len(results),
		Failed:    failed,
		Duration:  time.Since(start),
		OutputCSV: cfg.OutputCSV,
	}
	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	metrics.PipelineDurationSeconds.Observe(sum.Duration.Seconds())

	logger.Info().
		Str("event", "pipeline.run_completed").
		Int("processed", sum.Processed).
		Int("failed", sum.Failed).
		Dur("duration", sum.Duration).
		Str("output", sum.OutputCSV).
		Msg("pipeline run completed")
	return sum, nil
}

// processAll fans the swings out over a bounded worker pool and returns the
// successful results in dataset order.
func (r *Runner) processAll(ctx context.Context, cfg config.AppConfig, swings []dataset.Swing) ([]SwingResult, int) {
	logger := log.WithComponentFromContext(ctx, "pipeline")

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	results := make([]*SwingResult, len(swings))
	var wg sync.WaitGroup

	for i, sw := range swings {
		idx, swing := i, sw
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			started := time.Now()
			res, err := r.Process(ctx, swing)
			if err != nil {
				metrics.SwingsProcessedTotal.WithLabelValues("failure").Inc()
				logger.Warn().
					Str("event", "pipeline.swing_failed").
					Str("session_swing", swing.SessionSwing).
					Str("path", swing.Path).
					Err(err).
					Msg("swing processing failed")
				return
			}
			metrics.SwingsProcessedTotal.WithLabelValues("success").Inc()
			metrics.SwingProcessingSeconds.Observe(time.Since(started).Seconds())
			results[idx] = &res
		})
	}
	wg.Wait()

	out := make([]SwingResult, 0, len(swings))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	return out, len(swings) - len(out)
}

// Process computes the angle matrix of a single swing.
func (r *Runner) Process(ctx context.Context, sw dataset.Swing) (SwingResult, error) {
	if err := ctx.Err(); err != nil {
		return SwingResult{}, err
	}

	f, err := c3d.Open(sw.Path)
	if err != nil {
		return SwingResult{}, fmt.Errorf("decode %s: %w", sw.Path, err)
	}
	series := marker.FromC3D(f)
	metrics.MarkersPerCapture.Observe(float64(len(f.Labels)))

	cfg := r.config()
	lp, err := filter.LowPass(cfg.FilterOrder, cfg.FilterCutoffHz, series.Rate())
	if err != nil {
		return SwingResult{}, fmt.Errorf("design filter for %s: %w", sw.SessionSwing, err)
	}
	series.Map(func(name string, pts []r3.Vec) []r3.Vec {
		return lp.ZeroPhaseVec(pts)
	})

	if err := marker.ResolveComposites(series); err != nil {
		return SwingResult{}, fmt.Errorf("composites for %s: %w", sw.SessionSwing, err)
	}

	frames, err := r.model.Frames(series)
	if err != nil {
		return SwingResult{}, fmt.Errorf("frames for %s: %w", sw.SessionSwing, err)
	}

	times := series.Time()
	values := make([][]float64, len(times))
	for i := range values {
		values[i] = make([]float64, 0, len(r.model.Joints)*3)
	}
	for _, j := range r.model.Joints {
		angles, err := j.Angles(frames, sw.BatterHand)
		if err != nil {
			return SwingResult{}, fmt.Errorf("%s for %s: %w", j.Name, sw.SessionSwing, err)
		}
		for i := range times {
			values[i] = append(values[i], angles[i][0], angles[i][1], angles[i][2])
		}
	}

	return SwingResult{
		Swing:   sw,
		Columns: r.columnsFor(sw.BatterHand),
		Times:   times,
		Values:  values,
	}, nil
}

// columnsFor names the joint columns in model order for one batter hand.
func (r *Runner) columnsFor(batterHand string) []string {
	cols := make([]string, 0, len(r.model.Joints)*3)
	for _, j := range r.model.Joints {
		prefix := "lead_"
		if j.Side == batterHand {
			prefix = "rear_"
		}
		for _, axis := range []string{"x", "y", "z"} {
			cols = append(cols, fmt.Sprintf("%s%s_angle_%s", prefix, j.Name, axis))
		}
	}
	return cols
}

func (r *Runner) persist(ctx context.Context, runID string, results []SwingResult) error {
	now := time.Now()
	for _, res := range results {
		rec := store.Record{Swing: res.Swing, RunID: runID, ComputedAt: now}
		if err := r.st.UpsertSwing(ctx, rec); err != nil {
			return err
		}
		set := store.AngleSet{Columns: res.Columns, Times: res.Times, Values: res.Values}
		if err := r.st.ReplaceAngles(ctx, res.Swing.SessionSwing, set); err != nil {
			return err
		}
	}
	return nil
}
