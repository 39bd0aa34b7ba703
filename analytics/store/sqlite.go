// Package store provides the external-collaborator implementations: the
// SQLite-backed metrics source and the filesystem artifact store.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/crowdverify/verify-analytics/analytics"
)

// migrations define the metrics schema. Applied versions are tracked in
// the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS verification_metrics (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id             TEXT NOT NULL,
    worker_id           TEXT NOT NULL,
    content_type        TEXT NOT NULL,
    verification_method TEXT NOT NULL,
    confidence_score    REAL NOT NULL,
    response_time_ms    INTEGER NOT NULL,
    is_accurate         INTEGER NOT NULL,
    cost                REAL NOT NULL DEFAULT 0,
    timestamp           DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON verification_metrics(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_metrics_worker ON verification_metrics(worker_id);
`,
	},
}

// MetricsDB is the SQLite implementation of analytics.MetricsSource.
type MetricsDB struct {
	db *sqlx.DB
}

// OpenMetricsDB opens (or creates) the metrics database at path and
// applies pending migrations. Use ":memory:" for tests.
func OpenMetricsDB(path string) (*MetricsDB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening metrics db: %w", err)
	}
	m := &MetricsDB{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *MetricsDB) migrate() error {
	var current int
	// Fresh databases have no schema_versions table yet; treat as version 0.
	_ = m.db.Get(&current, `SELECT COALESCE(MAX(version), 0) FROM schema_versions`)
	for _, mig := range migrations {
		if mig.version <= current {
			continue
		}
		if _, err := m.db.Exec(mig.sql); err != nil {
			return fmt.Errorf("applying migration %d: %w", mig.version, err)
		}
		if _, err := m.db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)`, mig.version, time.Now().UTC()); err != nil {
			return fmt.Errorf("recording migration %d: %w", mig.version, err)
		}
		logrus.Infof("Applied metrics schema migration %d", mig.version)
	}
	return nil
}

// Close releases the underlying database handle.
func (m *MetricsDB) Close() error { return m.db.Close() }

// Insert stores verification records. Used by the pipeline-facing ingest
// path and by tests seeding fixtures.
func (m *MetricsDB) Insert(ctx context.Context, records []analytics.MetricRecord) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO verification_metrics
		(task_id, worker_id, content_type, verification_method, confidence_score, response_time_ms, is_accurate, cost, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		accurate := 0
		if r.IsAccurate {
			accurate = 1
		}
		if _, err := tx.ExecContext(ctx, q,
			r.TaskID, r.WorkerID, string(r.ContentType), string(r.VerificationMethod),
			r.ConfidenceScore, r.ResponseTimeMs, accurate, r.Cost, r.Timestamp.UTC()); err != nil {
			return fmt.Errorf("inserting metric record: %w", err)
		}
	}
	return tx.Commit()
}

// metricRow is the scan target for verification_metrics.
type metricRow struct {
	TaskID             string    `db:"task_id"`
	WorkerID           string    `db:"worker_id"`
	ContentType        string    `db:"content_type"`
	VerificationMethod string    `db:"verification_method"`
	ConfidenceScore    float64   `db:"confidence_score"`
	ResponseTimeMs     int64     `db:"response_time_ms"`
	IsAccurate         int       `db:"is_accurate"`
	Cost               float64   `db:"cost"`
	Timestamp          time.Time `db:"timestamp"`
}

// Query implements analytics.MetricsSource: records within the lookback
// window, ascending by timestamp so the batch carries the temporal
// ordering the rolling-window features require.
func (m *MetricsDB) Query(ctx context.Context, lookbackHours int) (analytics.OrderedBatch, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	var rows []metricRow
	const q = `SELECT task_id, worker_id, content_type, verification_method,
		confidence_score, response_time_ms, is_accurate, cost, timestamp
		FROM verification_metrics WHERE timestamp >= ? ORDER BY timestamp ASC`
	if err := m.db.SelectContext(ctx, &rows, q, cutoff); err != nil {
		return analytics.OrderedBatch{}, fmt.Errorf("querying metrics: %w", err)
	}

	records := make([]analytics.MetricRecord, len(rows))
	for i, row := range rows {
		records[i] = analytics.MetricRecord{
			TaskID:             row.TaskID,
			WorkerID:           row.WorkerID,
			ContentType:        analytics.ContentType(row.ContentType),
			VerificationMethod: analytics.VerificationMethod(row.VerificationMethod),
			ConfidenceScore:    row.ConfidenceScore,
			ResponseTimeMs:     row.ResponseTimeMs,
			IsAccurate:         row.IsAccurate != 0,
			Cost:               row.Cost,
			Timestamp:          row.Timestamp,
		}
	}
	return analytics.NewOrderedBatch(records)
}
