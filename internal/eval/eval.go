// Package eval compares computed joint angles against the reference export
// and reports per-column error metrics.
package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/google/renameio/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/obplab/swingmech/internal/log"
)

// Metric names match the reference evaluation.
const (
	MetricRMSE      = "root_mean_squared_error"
	MetricMedianAbs = "median_absolute_error"
)

// Result is one error metric for one angle column, computed across all
// joined frames of all shared swings.
type Result struct {
	Col    string
	Metric string
	Value  float64
}

// Options configures a comparison run.
type Options struct {
	SourceCSV  string
	TargetCSV  string
	ResultsCSV string              // optional; written atomically when set
	SkipSwings map[string]struct{} // session swings excluded from the join
}

// table is a long-form angle CSV in memory.
type table struct {
	columns []string            // angle columns, header order
	rows    map[rowKey]int      // (swing, rounded time) -> index into values
	values  [][]float64         // NaN marks an empty cell
	swings  map[string]struct{} // distinct session swings
	order   []rowKey            // insertion order, for deterministic iteration
}

type rowKey struct {
	swing string
	time  int64 // time in tenths of a millisecond
}

// Run joins the two exports on (session_swing, time) and computes RMSE and
// median absolute error for every source column present in the target.
func Run(opts Options) ([]Result, error) {
	logger := log.WithComponent("eval")

	source, err := loadTable(opts.SourceCSV)
	if err != nil {
		return nil, fmt.Errorf("eval: load source: %w", err)
	}
	target, err := loadTable(opts.TargetCSV)
	if err != nil {
		return nil, fmt.Errorf("eval: load target: %w", err)
	}

	shared := make(map[string]struct{})
	for swing := range source.swings {
		if _, ok := target.swings[swing]; !ok {
			continue
		}
		if _, skip := opts.SkipSwings[swing]; skip {
			continue
		}
		shared[swing] = struct{}{}
	}
	logger.Info().
		Str("event", "eval.join").
		Int("source_swings", len(source.swings)).
		Int("target_swings", len(target.swings)).
		Int("shared_swings", len(shared)).
		Msg("joining exports")

	targetIdx := make(map[string]int, len(target.columns))
	for i, col := range target.columns {
		targetIdx[col] = i
	}

	var results []Result
	for i, col := range source.columns {
		j, ok := targetIdx[col]
		if !ok {
			logger.Warn().
				Str("event", "eval.column_missing").
				Str("column", col).
				Msg("column absent from target export")
			continue
		}

		var diffs []float64
		for _, key := range source.order {
			if _, ok := shared[key.swing]; !ok {
				continue
			}
			ti, ok := target.rows[key]
			if !ok {
				continue
			}
			sv := source.values[source.rows[key]][i]
			tv := target.values[ti][j]
			if math.IsNaN(sv) || math.IsNaN(tv) {
				continue
			}
			diffs = append(diffs, tv-sv)
		}
		if len(diffs) == 0 {
			continue
		}
		results = append(results,
			Result{Col: col, Metric: MetricRMSE, Value: rmse(diffs)},
			Result{Col: col, Metric: MetricMedianAbs, Value: medianAbs(diffs)},
		)
	}

	if opts.ResultsCSV != "" {
		if err := writeResults(opts.ResultsCSV, results); err != nil {
			return nil, fmt.Errorf("eval: write results: %w", err)
		}
	}
	return results, nil
}

func rmse(diffs []float64) float64 {
	sq := make([]float64, len(diffs))
	for i, d := range diffs {
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

func medianAbs(diffs []float64) float64 {
	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	sort.Float64s(abs)
	n := len(abs)
	if n%2 == 1 {
		return abs[n/2]
	}
	return (abs[n/2-1] + abs[n/2]) / 2
}

// loadTable reads a long-form angle CSV. The first two columns must be
// session_swing and time; times are rounded to four decimals so exports
// written with different float formatting still join.
func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != "session_swing" || header[1] != "time" {
		return nil, fmt.Errorf("%s: unexpected header, want session_swing,time,...", path)
	}

	t := &table{
		columns: append([]string(nil), header[2:]...),
		rows:    make(map[rowKey]int),
		swings:  make(map[string]struct{}),
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		tm, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", rec[1], err)
		}
		key := rowKey{swing: rec[0], time: int64(math.Round(tm * 1e4))}

		vals := make([]float64, len(t.columns))
		for i := range vals {
			cell := rec[2+i]
			if cell == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("parse value %q: %w", cell, err)
			}
			vals[i] = v
		}

		t.rows[key] = len(t.values)
		t.values = append(t.values, vals)
		t.order = append(t.order, key)
		t.swings[rec[0]] = struct{}{}
	}
	return t, nil
}

func writeResults(path string, results []Result) error {
	logger := log.WithComponent("eval")

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending results file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending results file")
		}
	}()

	w := csv.NewWriter(pendingFile)
	if err := w.Write([]string{"col", "metric", "value"}); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.Write([]string{res.Col, res.Metric, strconv.FormatFloat(res.Value, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return pendingFile.CloseAtomicallyReplace()
}
