// Package audit persists decision records and outcome feedback in
// SQLite so operators can trace why the controller fired (or refused
// to). The controller itself never reads this log; it exists for the
// callers that own DecisionRecords.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meshops/retrain-controller/internal/controller"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	decision_id   TEXT PRIMARY KEY,
	score         REAL NOT NULL,
	theta         REAL NOT NULL,
	retrain       INTEGER NOT NULL,
	fallback      INTEGER NOT NULL,
	record_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outcome_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id   TEXT,
	outcome_error REAL NOT NULL,
	cost_minutes  REAL NOT NULL,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region log-struct
// Log is an append-only SQLite audit trail.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the audit database and runs migrations.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// #endregion log-struct

// #region log-decision
// LogDecision appends one decision record, storing the scalar columns
// operators filter on plus the full record as JSON.
func (l *Log) LogDecision(rec controller.DecisionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = l.db.Exec(
		`INSERT INTO decision_log (decision_id, score, theta, retrain, fallback, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Score, rec.Theta, boolInt(rec.Retrain), boolInt(rec.Fallback),
		string(raw), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region log-outcome
// LogOutcome appends outcome feedback, optionally tied to the decision
// that triggered the retrain.
func (l *Log) LogOutcome(decisionID string, outcomeError, costMinutes float64) error {
	_, err := l.db.Exec(
		`INSERT INTO outcome_log (decision_id, outcome_error, cost_minutes, created_at)
		 VALUES (?, ?, ?, ?)`,
		nullIfEmpty(decisionID), outcomeError, costMinutes,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log outcome: %w", err)
	}
	return nil
}

// #endregion log-outcome

// #region recent
// Row is one audit entry for display.
type Row struct {
	DecisionID string
	Score      float64
	Theta      float64
	Retrain    bool
	Fallback   bool
	RecordJSON string
	CreatedAt  string
}

// Recent returns the newest decision rows, most recent first.
func (l *Log) Recent(limit int) ([]Row, error) {
	rows, err := l.db.Query(
		`SELECT decision_id, score, theta, retrain, fallback, record_json, created_at
		 FROM decision_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var retrain, fallback int
		if err := rows.Scan(&r.DecisionID, &r.Score, &r.Theta, &retrain, &fallback, &r.RecordJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Retrain = retrain != 0
		r.Fallback = fallback != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion recent

// #region helpers
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
