package storage

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"neuralmesh/internal/model"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open sqlite %s", s.path)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping sqlite %s", s.path)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if snapshot.ID == "" {
		return errors.Wrap(ErrMissingID, "save snapshot")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, generations, total_error, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			generations = excluded.generations,
			total_error = excluded.total_error,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, snapshot.ID, snapshot.Name, int64(snapshot.Generations), float64(snapshot.TotalError), snapshot.SchemaVersion, snapshot.CodecVersion, payload)
	return errors.Wrapf(err, "save snapshot %s", snapshot.ID)
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (model.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Snapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, errors.Wrapf(err, "get snapshot %s", id)
	}

	snapshot, err := DecodeSnapshot(payload)
	if err != nil {
		return model.Snapshot{}, false, errors.Wrapf(err, "snapshot %s", id)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]model.SnapshotSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, generations, total_error FROM snapshots ORDER BY name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	defer rows.Close()

	out := make([]model.SnapshotSummary, 0)
	for rows.Next() {
		var (
			summary     model.SnapshotSummary
			generations int64
			totalError  float64
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &generations, &totalError); err != nil {
			return nil, errors.Wrap(err, "scan snapshot summary")
		}
		summary.Generations = uint64(generations)
		summary.TotalError = float32(totalError)
		out = append(out, summary)
	}
	return out, errors.Wrap(rows.Err(), "list snapshots")
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return errors.Wrapf(err, "delete snapshot %s", id)
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.TrainingRun) error {
	if run.RunID == "" {
		return errors.Wrap(ErrMissingID, "save run")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.RunID, run.CreatedAtUTC, run.SchemaVersion, run.CodecVersion, payload)
	return errors.Wrapf(err, "save run %s", run.RunID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (model.TrainingRun, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.TrainingRun{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TrainingRun{}, false, nil
		}
		return model.TrainingRun{}, false, errors.Wrapf(err, "get run %s", runID)
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.TrainingRun{}, false, errors.Wrapf(err, "run %s", runID)
	}
	return run, true, nil
}

// ListRuns returns runs newest first. A non-positive limit returns them all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM runs ORDER BY created_at_utc DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	out := make([]model.TrainingRun, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, errors.Wrap(rows.Err(), "list runs")
}

func (s *SQLiteStore) SaveErrorHistory(ctx context.Context, runID string, history []float64) error {
	if runID == "" {
		return errors.Wrap(ErrMissingID, "save error history")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeErrorHistory(history)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO error_history (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return errors.Wrapf(err, "save error history %s", runID)
}

func (s *SQLiteStore) GetErrorHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM error_history WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "get error history %s", runID)
	}

	history, err := DecodeErrorHistory(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "error history %s", runID)
	}
	return history, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			generations INTEGER NOT NULL,
			total_error REAL NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS error_history (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
