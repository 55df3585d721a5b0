// Package dataset discovers swing captures on disk. A dataset root holds one
// directory per recording session; each capture file encodes its metadata in
// the name:
//
//	<user>_<session>_<height>_<weight>_<hand>_<swingno>_<velo>.c3d
//
// where <velo> packs the exit velocity as three digits, e.g. 853 for
// 85.3 mph. Calibration captures end in "model.c3d" and are skipped.
package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/metrics"
)

// Swing describes one capture file and the metadata parsed from its name.
type Swing struct {
	Path         string
	UserID       string
	SessionID    string
	HeightIn     int
	WeightLb     int
	BatterHand   string // "R" or "L"
	SwingNumber  int
	ExitVelo     float64 // mph
	SessionSwing string  // "<session>_<n>", n is the 1-based position within the session
}

// ParseFileName extracts swing metadata from a capture path.
func ParseFileName(path string) (Swing, error) {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fields := strings.Split(stem, "_")
	if len(fields) != 7 {
		return Swing{}, fmt.Errorf("dataset: %s: want 7 underscore fields, got %d", name, len(fields))
	}

	height, err := strconv.Atoi(fields[2])
	if err != nil {
		return Swing{}, fmt.Errorf("dataset: %s: height: %w", name, err)
	}
	weight, err := strconv.Atoi(fields[3])
	if err != nil {
		return Swing{}, fmt.Errorf("dataset: %s: weight: %w", name, err)
	}
	hand := fields[4]
	if hand != "R" && hand != "L" {
		return Swing{}, fmt.Errorf("dataset: %s: batter hand %q", name, hand)
	}
	swingNo, err := strconv.Atoi(fields[5])
	if err != nil {
		return Swing{}, fmt.Errorf("dataset: %s: swing number: %w", name, err)
	}
	velo, err := parseExitVelo(fields[6])
	if err != nil {
		return Swing{}, fmt.Errorf("dataset: %s: %w", name, err)
	}

	return Swing{
		Path:        path,
		UserID:      fields[0],
		SessionID:   fields[1],
		HeightIn:    height,
		WeightLb:    weight,
		BatterHand:  hand,
		SwingNumber: swingNo,
		ExitVelo:    velo,
	}, nil
}

// parseExitVelo decodes the packed three-digit exit velocity: the first two
// digits are whole mph, the third is tenths.
func parseExitVelo(field string) (float64, error) {
	if len(field) < 3 {
		return 0, fmt.Errorf("exit velo field %q too short", field)
	}
	whole, err := strconv.Atoi(field[:2])
	if err != nil {
		return 0, fmt.Errorf("exit velo: %w", err)
	}
	tenth, err := strconv.Atoi(field[2:3])
	if err != nil {
		return 0, fmt.Errorf("exit velo: %w", err)
	}
	return float64(whole) + float64(tenth)*0.1, nil
}

// Scan walks the dataset root and returns all swings, ordered per session by
// swing number. The SessionSwing key is assigned from that order, so gaps in
// the recorded swing numbers do not produce gaps in the keys.
func Scan(root string) ([]Swing, error) {
	logger := log.WithComponent("dataset")

	sessions, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("dataset: read root: %w", err)
	}

	var out []Swing
	for _, session := range sessions {
		if !session.IsDir() {
			continue
		}
		swings, err := scanSession(filepath.Join(root, session.Name()))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(swings, func(i, j int) bool {
			return swings[i].SwingNumber < swings[j].SwingNumber
		})
		for i := range swings {
			swings[i].SessionSwing = fmt.Sprintf("%s_%d", normalizeSession(swings[i].SessionID), i+1)
		}
		logger.Debug().
			Str("event", "dataset.session_scanned").
			Str("session_dir", session.Name()).
			Int("swings", len(swings)).
			Msg("session scanned")
		out = append(out, swings...)
	}
	return out, nil
}

func scanSession(dir string) ([]Swing, error) {
	logger := log.WithComponent("dataset")

	var swings []Swing
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".c3d") {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(path), "model.c3d") {
			return nil
		}
		sw, err := ParseFileName(path)
		if err != nil {
			metrics.ParseFailuresTotal.Inc()
			logger.Warn().
				Str("event", "dataset.skip_unparsable").
				Str("path", path).
				Err(err).
				Msg("skipping capture with unrecognized name")
			return nil
		}
		swings = append(swings, sw)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: walk %s: %w", dir, err)
	}
	return swings, nil
}

// normalizeSession strips leading zeros so the key matches the numeric
// session ids used by the reference angle export.
func normalizeSession(id string) string {
	if n, err := strconv.Atoi(id); err == nil {
		return strconv.Itoa(n)
	}
	return id
}
