package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/dataset"
	"github.com/obplab/swingmech/internal/log"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return config.AppConfig{
		CaptureDir:     filepath.Join(dir, "c3d"),
		DataDir:        dir,
		OutputCSV:      filepath.Join(dir, "output.csv"),
		FilterCutoffHz: 40,
		FilterOrder:    4,
		Workers:        2,
	}
}

func TestColumns(t *testing.T) {
	r := New(testConfig(t))
	cols := r.Columns()
	require.Len(t, cols, 36) // 12 joints, 3 axes

	assert.Equal(t, "rear_shoulder_angle_x", cols[0])
	assert.Equal(t, "lead_shoulder_angle_x", cols[3])
	assert.Contains(t, cols, "rear_elbow_angle_z")
	assert.Contains(t, cols, "lead_ankle_angle_y")

	for _, col := range cols {
		assert.True(t, strings.HasPrefix(col, "rear_") || strings.HasPrefix(col, "lead_"), col)
	}
}

func TestColumnsForLeftHandedBatter(t *testing.T) {
	r := New(testConfig(t))

	right := r.columnsFor("R")
	left := r.columnsFor("L")
	require.Len(t, left, len(right))

	// Same name set, rear/lead swapped per position.
	assert.ElementsMatch(t, right, left)
	assert.Equal(t, "rear_shoulder_angle_x", right[0])
	assert.Equal(t, "lead_shoulder_angle_x", left[0])
}

func TestWriteCSVAlignsColumnsByName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	columns := []string{"rear_knee_angle_x", "lead_knee_angle_x"}
	results := []SwingResult{
		{
			Swing:   dataset.Swing{SessionSwing: "492_1"},
			Columns: []string{"rear_knee_angle_x", "lead_knee_angle_x"},
			Times:   []float64{0},
			Values:  [][]float64{{10, 20}},
		},
		{
			// Left-handed batter: same names, reversed positions.
			Swing:   dataset.Swing{SessionSwing: "981_1"},
			Columns: []string{"lead_knee_angle_x", "rear_knee_angle_x"},
			Times:   []float64{0},
			Values:  [][]float64{{30, 40}},
		},
	}
	require.NoError(t, WriteCSV(path, columns, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"session_swing", "time", "rear_knee_angle_x", "lead_knee_angle_x"}, rows[0])
	assert.Equal(t, []string{"492_1", "0", "10", "20"}, rows[1])
	assert.Equal(t, []string{"981_1", "0", "40", "30"}, rows[2])
}

func TestWriteCSVNaNBecomesEmptyCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	results := []SwingResult{{
		Swing:   dataset.Swing{SessionSwing: "492_1"},
		Columns: []string{"rear_knee_angle_x"},
		Times:   []float64{0},
		Values:  [][]float64{{math.NaN()}},
	}}
	require.NoError(t, WriteCSV(path, []string{"rear_knee_angle_x"}, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "492_1,0,", lines[1])
}

func TestRunFailsWhenEverySwingFails(t *testing.T) {
	cfg := testConfig(t)
	session := filepath.Join(cfg.CaptureDir, "000492")
	require.NoError(t, os.MkdirAll(session, 0o755))
	// Well-formed name, garbage content.
	require.NoError(t, os.WriteFile(
		filepath.Join(session, "000123_000492_74_210_R_1_853.c3d"),
		[]byte("not a capture"), 0o644))

	r := New(cfg)
	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 swings failed")

	// No output is produced when nothing could be processed.
	_, err = os.Stat(cfg.OutputCSV)
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailsOnMissingCaptureDir(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg)
	_, err := r.Run(context.Background())
	require.Error(t, err)
}

func TestRunComputesValidCapture(t *testing.T) {
	cfg := testConfig(t)
	session := filepath.Join(cfg.CaptureDir, "000492")
	require.NoError(t, os.MkdirAll(session, 0o755))
	writeCapture(t, filepath.Join(session, "000123_000492_74_210_R_2_853.c3d"), 20, 360)

	r := New(cfg)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Scanned)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 0, sum.Failed)

	f, err := os.Open(cfg.OutputCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 21) // header + one row per frame
	header := rows[0]
	require.Len(t, header, 38) // session_swing, time, 12 joints x 3 axes
	assert.Equal(t, "session_swing", header[0])
	assert.Equal(t, "time", header[1])
	assert.Equal(t, "rear_shoulder_angle_x", header[2])

	for i, row := range rows[1:] {
		require.Len(t, row, 38)
		assert.Equal(t, "492_1", row[0])
		tm, err := strconv.ParseFloat(row[1], 64)
		require.NoError(t, err)
		assert.InDelta(t, float64(i)/360, tm, 1e-9)
		// A static non-degenerate pose yields a number in every angle cell.
		for c, cell := range row[2:] {
			require.NotEmpty(t, cell, "column %s", header[c+2])
			v, err := strconv.ParseFloat(cell, 64)
			require.NoError(t, err)
			assert.False(t, math.IsNaN(v), "column %s", header[c+2])
		}
	}

	// The pose is static, so every angle is constant across frames.
	for c := 2; c < 38; c++ {
		first, err := strconv.ParseFloat(rows[1][c], 64)
		require.NoError(t, err)
		last, err := strconv.ParseFloat(rows[20][c], 64)
		require.NoError(t, err)
		assert.InDelta(t, first, last, 1e-6, "column %s", header[c])
	}
}

func TestRunAttachesRunIDToSwingLogs(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "info", Output: &buf, Service: "swingmech"})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	cfg := testConfig(t)
	session := filepath.Join(cfg.CaptureDir, "000492")
	require.NoError(t, os.MkdirAll(session, 0o755))
	writeCapture(t, filepath.Join(session, "000123_000492_74_210_R_1_853.c3d"), 20, 360)
	require.NoError(t, os.WriteFile(
		filepath.Join(session, "000123_000492_74_210_R_2_861.c3d"),
		[]byte("not a capture"), 0o644))

	sum, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "pipeline.swing_failed") {
			assert.Contains(t, line, sum.RunID)
			found = true
		}
	}
	require.True(t, found, "missing swing failure log:\n%s", buf.String())
}

func TestReconfigureAppliesToNextRun(t *testing.T) {
	stale := testConfig(t) // capture dir never created
	r := New(stale)
	_, err := r.Run(context.Background())
	require.Error(t, err)

	next := testConfig(t)
	require.NoError(t, os.MkdirAll(next.CaptureDir, 0o755))
	r.Reconfigure(next)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Scanned)
	assert.Equal(t, next.OutputCSV, sum.OutputCSV)

	_, err = os.Stat(next.OutputCSV)
	require.NoError(t, err)
	_, err = os.Stat(stale.OutputCSV)
	assert.True(t, os.IsNotExist(err))
}
