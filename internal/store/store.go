// Package store persists computed joint angles in SQLite so the API can
// serve swings without recomputing the pipeline.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/obplab/swingmech/internal/dataset"
)

// ErrNotFound is returned when a swing is not present in the store.
var ErrNotFound = errors.New("store: swing not found")

// Store provides SQLite persistence for swings and their angle series.
type Store struct {
	db *sql.DB
}

// Record is one stored swing with its pipeline bookkeeping.
type Record struct {
	dataset.Swing
	RunID      string
	ComputedAt time.Time
}

// AngleSet is the angle matrix of one swing: Values[i][j] is column j at
// Times[i].
type AngleSet struct {
	Columns []string
	Times   []float64
	Values  [][]float64
}

// New opens the database, sets WAL mode with a busy timeout and runs the
// schema migration.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS swings (
		session_swing TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		batter_hand TEXT NOT NULL CHECK(batter_hand IN ('R', 'L')),
		height_in INTEGER NOT NULL,
		weight_lb INTEGER NOT NULL,
		swing_number INTEGER NOT NULL,
		exit_velo REAL NOT NULL,
		path TEXT NOT NULL,
		run_id TEXT NOT NULL,
		computed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS joint_angles (
		session_swing TEXT NOT NULL,
		frame INTEGER NOT NULL,
		time REAL NOT NULL,
		column_name TEXT NOT NULL,
		value REAL,
		PRIMARY KEY (session_swing, frame, column_name)
	);

	CREATE INDEX IF NOT EXISTS idx_joint_angles_swing ON joint_angles(session_swing);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertSwing inserts or replaces a swing's metadata.
func (s *Store) UpsertSwing(ctx context.Context, rec Record) error {
	query := `
	INSERT INTO swings (session_swing, user_id, session_id, batter_hand,
		height_in, weight_lb, swing_number, exit_velo, path, run_id, computed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_swing) DO UPDATE SET
		user_id = excluded.user_id,
		session_id = excluded.session_id,
		batter_hand = excluded.batter_hand,
		height_in = excluded.height_in,
		weight_lb = excluded.weight_lb,
		swing_number = excluded.swing_number,
		exit_velo = excluded.exit_velo,
		path = excluded.path,
		run_id = excluded.run_id,
		computed_at = excluded.computed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.SessionSwing, rec.UserID, rec.SessionID, rec.BatterHand,
		rec.HeightIn, rec.WeightLb, rec.SwingNumber, rec.ExitVelo,
		rec.Path, rec.RunID, rec.ComputedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ReplaceAngles atomically replaces the angle series of one swing.
func (s *Store) ReplaceAngles(ctx context.Context, sessionSwing string, set AngleSet) error {
	if len(set.Times) != len(set.Values) {
		return fmt.Errorf("store: %d times but %d value rows", len(set.Times), len(set.Values))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM joint_angles WHERE session_swing = ?`, sessionSwing); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO joint_angles (session_swing, frame, time, column_name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range set.Values {
		if len(row) != len(set.Columns) {
			return fmt.Errorf("store: row %d has %d values for %d columns", i, len(row), len(set.Columns))
		}
		for j, col := range set.Columns {
			if _, err := stmt.ExecContext(ctx, sessionSwing, i, set.Times[i], col, row[j]); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListSwings retrieves all stored swings ordered by session and swing.
func (s *Store) ListSwings(ctx context.Context) ([]Record, error) {
	query := `
	SELECT session_swing, user_id, session_id, batter_hand, height_in,
		weight_lb, swing_number, exit_velo, path, run_id, computed_at
	FROM swings
	ORDER BY session_id, swing_number
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []Record
	for rows.Next() {
		var rec Record
		var computedAt string
		if err := rows.Scan(&rec.SessionSwing, &rec.UserID, &rec.SessionID,
			&rec.BatterHand, &rec.HeightIn, &rec.WeightLb, &rec.SwingNumber,
			&rec.ExitVelo, &rec.Path, &rec.RunID, &computedAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, computedAt); err == nil {
			rec.ComputedAt = ts
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetSwing retrieves one swing's metadata.
func (s *Store) GetSwing(ctx context.Context, sessionSwing string) (Record, error) {
	query := `
	SELECT session_swing, user_id, session_id, batter_hand, height_in,
		weight_lb, swing_number, exit_velo, path, run_id, computed_at
	FROM swings WHERE session_swing = ?
	`
	var rec Record
	var computedAt string
	err := s.db.QueryRowContext(ctx, query, sessionSwing).Scan(
		&rec.SessionSwing, &rec.UserID, &rec.SessionID, &rec.BatterHand,
		&rec.HeightIn, &rec.WeightLb, &rec.SwingNumber, &rec.ExitVelo,
		&rec.Path, &rec.RunID, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, computedAt); err == nil {
		rec.ComputedAt = ts
	}
	return rec, nil
}

// GetAngles retrieves the angle matrix of one swing. Column order follows
// the first frame's insertion order.
func (s *Store) GetAngles(ctx context.Context, sessionSwing string) (AngleSet, error) {
	query := `
	SELECT frame, time, column_name, value
	FROM joint_angles
	WHERE session_swing = ?
	ORDER BY frame, rowid
	`
	rows, err := s.db.QueryContext(ctx, query, sessionSwing)
	if err != nil {
		return AngleSet{}, err
	}
	defer func() { _ = rows.Close() }()

	var set AngleSet
	colIndex := make(map[string]int)
	lastFrame := -1
	for rows.Next() {
		var frame int
		var t float64
		var col string
		var val sql.NullFloat64
		if err := rows.Scan(&frame, &t, &col, &val); err != nil {
			return AngleSet{}, err
		}
		if frame != lastFrame {
			set.Times = append(set.Times, t)
			set.Values = append(set.Values, make([]float64, 0, len(set.Columns)))
			lastFrame = frame
		}
		if _, ok := colIndex[col]; !ok {
			colIndex[col] = len(set.Columns)
			set.Columns = append(set.Columns, col)
		}
		row := len(set.Values) - 1
		set.Values[row] = append(set.Values[row], val.Float64)
	}
	if err := rows.Err(); err != nil {
		return AngleSet{}, err
	}
	if len(set.Times) == 0 {
		return AngleSet{}, ErrNotFound
	}
	return set, nil
}

// DeleteSwing removes a swing and its angles.
func (s *Store) DeleteSwing(ctx context.Context, sessionSwing string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM joint_angles WHERE session_swing = ?`, sessionSwing); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM swings WHERE session_swing = ?`, sessionSwing); err != nil {
		return err
	}
	return tx.Commit()
}
