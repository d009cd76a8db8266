package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    line_id    TEXT NOT NULL,
    started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS telemetry (
    run_id         TEXT NOT NULL REFERENCES runs(run_id),
    seq            INTEGER NOT NULL,
    entity_id      TEXT NOT NULL,
    time           TEXT NOT NULL,
    speed          REAL NOT NULL,
    temperature    REAL NOT NULL,
    alarm_severity TEXT NOT NULL,
    alarm_message  TEXT,
    alarming       INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS oee (
    run_id       TEXT NOT NULL REFERENCES runs(run_id),
    seq          INTEGER NOT NULL,
    entity_id    TEXT NOT NULL,
    time         TEXT NOT NULL,
    oee          REAL NOT NULL,
    availability REAL NOT NULL,
    performance  REAL NOT NULL,
    quality      REAL NOT NULL,
    PRIMARY KEY (run_id, seq)
);
`

// SQLiteSink stores both streams of one run in a SQLite database. Rows are
// written inside a single transaction that commits on Close.
type SQLiteSink struct {
	ctx          context.Context
	db           *sql.DB
	tx           *sql.Tx
	runID        string
	telemetrySeq int
	oeeSeq       int
}

// NewSQLiteSink opens the database at path, creates the schema if needed and
// registers a new run for lineID.
func NewSQLiteSink(ctx context.Context, path, lineID string) (*SQLiteSink, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s := &SQLiteSink{ctx: ctx, db: db, tx: tx, runID: uuid.NewString()}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (run_id, line_id, started_at) VALUES (?, ?, ?)`,
		s.runID, lineID, time.Now().Unix()); err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("failed to register run: %w", err)
	}
	logrus.Debugf("Recording run %s into %s", s.runID, path)
	return s, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// RunID returns the identifier under which this sink stores its records.
func (s *SQLiteSink) RunID() string { return s.runID }

// WriteTelemetry inserts one telemetry row.
func (s *SQLiteSink) WriteTelemetry(rec Telemetry) error {
	_, err := s.tx.ExecContext(s.ctx, `
        INSERT INTO telemetry (
            run_id, seq, entity_id, time, speed, temperature,
            alarm_severity, alarm_message, alarming
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, s.telemetrySeq, rec.EntityID, rec.Time, rec.Speed, rec.Temperature,
		rec.AlarmSeverity, rec.AlarmMessage, boolToInt(rec.Alarming),
	)
	if err != nil {
		return fmt.Errorf("failed to store telemetry: %w", err)
	}
	s.telemetrySeq++
	return nil
}

// WriteOEE inserts one OEE row.
func (s *SQLiteSink) WriteOEE(rec OEE) error {
	_, err := s.tx.ExecContext(s.ctx, `
        INSERT INTO oee (
            run_id, seq, entity_id, time, oee, availability, performance, quality
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, s.oeeSeq, rec.EntityID, rec.Time, rec.OEE, rec.Availability, rec.Performance, rec.Quality,
	)
	if err != nil {
		return fmt.Errorf("failed to store OEE: %w", err)
	}
	s.oeeSeq++
	return nil
}

// Close commits the run and closes the database.
func (s *SQLiteSink) Close() error {
	commitErr := s.tx.Commit()
	if commitErr != nil {
		commitErr = fmt.Errorf("failed to commit run %s: %w", s.runID, commitErr)
	}
	return errors.Join(commitErr, s.db.Close())
}

// ReadSQLite loads the records of one run. An empty runID selects the most
// recently started run.
func ReadSQLite(ctx context.Context, path, runID string) (*MemorySink, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if runID == "" {
		row := db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
		if err := row.Scan(&runID); err != nil {
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
	}

	mem := NewMemorySink()
	rows, err := db.QueryContext(ctx, `
        SELECT entity_id, time, speed, temperature, alarm_severity, alarm_message, alarming
        FROM telemetry WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	for rows.Next() {
		var rec Telemetry
		var msg sql.NullString
		var alarming int
		if err := rows.Scan(&rec.EntityID, &rec.Time, &rec.Speed, &rec.Temperature,
			&rec.AlarmSeverity, &msg, &alarming); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan telemetry: %w", err)
		}
		if msg.Valid {
			rec.AlarmMessage = &msg.String
		}
		rec.Alarming = alarming != 0
		mem.Telemetry = append(mem.Telemetry, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read telemetry: %w", err)
	}

	rows, err = db.QueryContext(ctx, `
        SELECT entity_id, time, oee, availability, performance, quality
        FROM oee WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query OEE: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec OEE
		if err := rows.Scan(&rec.EntityID, &rec.Time, &rec.OEE, &rec.Availability,
			&rec.Performance, &rec.Quality); err != nil {
			return nil, fmt.Errorf("failed to scan OEE: %w", err)
		}
		mem.OEE = append(mem.OEE, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read OEE: %w", err)
	}
	return mem, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
