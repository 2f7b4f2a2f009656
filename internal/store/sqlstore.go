package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .amesreg) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run plus its term frequencies and metrics in one
// transaction and returns the new run id.
func (s *SqlStore) SaveRun(run *Run, freqs []TermFrequency, metrics []Metric) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs(dataset_path, response, seed, replicates, threshold,
		                  log_response, boxcox_low, boxcox_high,
		                  lambda_min, lambda_med, lambda_max, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.DatasetPath, run.Response, int64(run.Seed), run.Replicates, run.Threshold,
		boolInt(run.LogResponse), run.BoxCoxLow, run.BoxCoxHigh,
		run.LambdaMin, run.LambdaMed, run.LambdaMax, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, f := range freqs {
		if _, err := tx.Exec(
			"INSERT INTO term_frequencies(run_id, term, frequency, selected) VALUES(?, ?, ?, ?)",
			runID, f.Term, f.Frequency, boolInt(f.Selected),
		); err != nil {
			return 0, fmt.Errorf("insert frequency %q: %w", f.Term, err)
		}
	}
	for _, m := range metrics {
		if _, err := tx.Exec(
			"INSERT INTO metrics(run_id, name, value) VALUES(?, ?, ?)",
			runID, m.Name, m.Value,
		); err != nil {
			return 0, fmt.Errorf("insert metric %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return runID, nil
}

// GetRun returns the run by id, or nil if not found.
func (s *SqlStore) GetRun(runID int64) (*Run, error) {
	var r Run
	var seed int64
	var logResp int
	err := s.db.QueryRow(
		`SELECT id, dataset_path, response, seed, replicates, threshold,
		        log_response, boxcox_low, boxcox_high,
		        lambda_min, lambda_med, lambda_max, created_at
		 FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.DatasetPath, &r.Response, &seed, &r.Replicates, &r.Threshold,
		&logResp, &r.BoxCoxLow, &r.BoxCoxHigh,
		&r.LambdaMin, &r.LambdaMed, &r.LambdaMax, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.Seed = uint64(seed)
	r.LogResponse = logResp == 1
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *SqlStore) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, dataset_path, response, seed, replicates, threshold,
		        log_response, boxcox_low, boxcox_high,
		        lambda_min, lambda_med, lambda_max, created_at
		 FROM runs ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var list []*Run
	for rows.Next() {
		var r Run
		var seed int64
		var logResp int
		if err := rows.Scan(&r.ID, &r.DatasetPath, &r.Response, &seed, &r.Replicates, &r.Threshold,
			&logResp, &r.BoxCoxLow, &r.BoxCoxHigh,
			&r.LambdaMin, &r.LambdaMed, &r.LambdaMax, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Seed = uint64(seed)
		r.LogResponse = logResp == 1
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}

// FrequenciesForRun returns the run's term frequencies, highest first.
func (s *SqlStore) FrequenciesForRun(runID int64) ([]TermFrequency, error) {
	rows, err := s.db.Query(
		`SELECT run_id, term, frequency, selected FROM term_frequencies
		 WHERE run_id = ? ORDER BY frequency DESC, term`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list frequencies: %w", err)
	}
	defer rows.Close()
	var list []TermFrequency
	for rows.Next() {
		var f TermFrequency
		var sel int
		if err := rows.Scan(&f.RunID, &f.Term, &f.Frequency, &sel); err != nil {
			return nil, fmt.Errorf("scan frequency: %w", err)
		}
		f.Selected = sel == 1
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list frequencies: %w", err)
	}
	return list, nil
}

// MetricsForRun returns the run's evaluation metrics by name.
func (s *SqlStore) MetricsForRun(runID int64) ([]Metric, error) {
	rows, err := s.db.Query(
		"SELECT run_id, name, value FROM metrics WHERE run_id = ? ORDER BY name",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()
	var list []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.RunID, &m.Name, &m.Value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return list, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
