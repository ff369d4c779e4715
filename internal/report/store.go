// Package report persists completed batch reports and renders the CSV
// download contract.
package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phishsense/phishsense/internal/model"
)

// ErrNotFound is returned when no report exists for a job ID.
var ErrNotFound = errors.New("report: job not found")

// Store keeps batch reports in a local sqlite database, one row per
// scanned URL keyed by job ID and input position.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the report database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("report: open db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS reports (
    job_id     TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS report_rows (
    job_id     TEXT NOT NULL,
    idx        INTEGER NOT NULL,
    url        TEXT NOT NULL,
    features   TEXT,
    degraded   TEXT,
    label      TEXT,
    confidence REAL,
    error      TEXT,
    PRIMARY KEY (job_id, idx)
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("report: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a completed batch report atomically.
func (s *Store) Save(rep model.BatchReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("report: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO reports (job_id, created_at) VALUES (?, ?)`,
		rep.JobID, rep.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("report: insert job: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO report_rows
		(job_id, idx, url, features, degraded, label, confidence, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("report: prepare rows: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for idx, row := range rep.Rows {
		var features, degraded, label []byte
		var confidence sql.NullFloat64
		if row.Classification != nil {
			label = []byte(row.Classification.Label)
			confidence = sql.NullFloat64{Float64: row.Classification.Confidence, Valid: true}
		}
		if row.Features != nil {
			if features, err = json.Marshal(row.Features); err != nil {
				return fmt.Errorf("report: encode features: %w", err)
			}
		}
		if row.Degraded != nil {
			if degraded, err = json.Marshal(row.Degraded); err != nil {
				return fmt.Errorf("report: encode degraded: %w", err)
			}
		}
		if _, err := stmt.Exec(
			rep.JobID, idx, row.URL,
			nullable(features), nullable(degraded), nullable(label),
			confidence, nullString(row.ErrCode),
		); err != nil {
			return fmt.Errorf("report: insert row %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("report: commit: %w", err)
	}
	return nil
}

// Get loads a stored report with rows in their original input order.
func (s *Store) Get(jobID string) (model.BatchReport, error) {
	rep := model.BatchReport{JobID: jobID}

	var created time.Time
	err := s.db.QueryRow(
		`SELECT created_at FROM reports WHERE job_id = ?`, jobID,
	).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return rep, ErrNotFound
	}
	if err != nil {
		return rep, fmt.Errorf("report: load job: %w", err)
	}
	rep.CreatedAt = created

	rows, err := s.db.Query(
		`SELECT url, features, degraded, label, confidence, error
		 FROM report_rows WHERE job_id = ? ORDER BY idx`, jobID)
	if err != nil {
		return rep, fmt.Errorf("report: load rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			row        model.ReportRow
			features   sql.NullString
			degraded   sql.NullString
			label      sql.NullString
			confidence sql.NullFloat64
			errCode    sql.NullString
		)
		if err := rows.Scan(&row.URL, &features, &degraded, &label, &confidence, &errCode); err != nil {
			return rep, fmt.Errorf("report: scan row: %w", err)
		}
		if features.Valid {
			if err := json.Unmarshal([]byte(features.String), &row.Features); err != nil {
				return rep, fmt.Errorf("report: decode features: %w", err)
			}
		}
		if degraded.Valid {
			if err := json.Unmarshal([]byte(degraded.String), &row.Degraded); err != nil {
				return rep, fmt.Errorf("report: decode degraded: %w", err)
			}
		}
		if label.Valid {
			row.Classification = &model.Classification{
				Label:      label.String,
				Confidence: confidence.Float64,
			}
		}
		row.ErrCode = errCode.String
		rep.Rows = append(rep.Rows, row)
	}
	return rep, rows.Err()
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
