package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/obplab/swingmech/internal/log"
)

// WriteCSV writes the combined angle matrix of all swings atomically. Every
// swing's columns are aligned to the shared header by name; a missing value
// or NaN becomes an empty cell.
func WriteCSV(path string, columns []string, results []SwingResult) error {
	logger := log.WithComponent("pipeline")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending CSV file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending CSV file")
		}
	}()

	w := csv.NewWriter(pendingFile)
	header := append([]string{"session_swing", "time"}, columns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, res := range results {
		index := make(map[string]int, len(res.Columns))
		for i, col := range res.Columns {
			index[col] = i
		}
		for i, t := range res.Times {
			row[0] = res.Swing.SessionSwing
			row[1] = formatFloat(t)
			for j, col := range columns {
				if k, ok := index[col]; ok && k < len(res.Values[i]) {
					row[2+j] = formatFloat(res.Values[i][k])
				} else {
					row[2+j] = ""
				}
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace CSV file: %w", err)
	}
	return nil
}

// formatFloat renders a value the way the reference export does: shortest
// round-trip representation, NaN as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
