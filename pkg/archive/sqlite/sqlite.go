// Package sqlite provides a SQLite-backed archive driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crosstalkco/crosstalk/pkg/archive"
)

// timeLayout is fixed width UTC so lexical order on the column matches
// chronological order under every SQLite driver.
const timeLayout = "2006-01-02 15:04:05.000000000"

// Driver implements archive.Driver using SQLite as the storage backend.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed archive.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// NewDriverFromDB wraps an already opened SQLite-dialect database handle.
// The libsql driver uses this to share the schema and statements.
func NewDriverFromDB(db *sql.DB) (*Driver, error) {
	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		model_a TEXT NOT NULL,
		model_b TEXT NOT NULL,
		turns INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		transcript TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_finished_at ON conversations(finished_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Save stores a record. Saving the same conversation ID again replaces
// the earlier record.
func (d *Driver) Save(ctx context.Context, record *archive.Record) error {
	if record == nil {
		return fmt.Errorf("cannot archive nil record")
	}
	if record.ID == "" {
		return fmt.Errorf("record requires a conversation ID")
	}

	query := `INSERT OR REPLACE INTO conversations
		(id, topic, model_a, model_b, turns, started_at, finished_at, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		record.ID, record.Topic, record.ModelA, record.ModelB, record.Turns,
		record.StartedAt.UTC().Format(timeLayout),
		record.FinishedAt.UTC().Format(timeLayout),
		string(record.Transcript),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Get retrieves a record by conversation ID.
func (d *Driver) Get(ctx context.Context, id string) (*archive.Record, error) {
	query := `SELECT id, topic, model_a, model_b, turns, started_at, finished_at, transcript
		FROM conversations WHERE id = ?`

	row := d.db.QueryRowContext(ctx, query, id)

	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, archive.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	return record, nil
}

// List returns all records, most recently finished first.
func (d *Driver) List(ctx context.Context) ([]*archive.Record, error) {
	query := `SELECT id, topic, model_a, model_b, turns, started_at, finished_at, transcript
		FROM conversations ORDER BY finished_at DESC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*archive.Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanRecord scans one row into a Record using the given Scan func,
// which lets it serve both QueryRowContext and QueryContext results.
func scanRecord(scan func(dest ...any) error) (*archive.Record, error) {
	var record archive.Record
	var startedAt, finishedAt, transcript string

	err := scan(&record.ID, &record.Topic, &record.ModelA, &record.ModelB,
		&record.Turns, &startedAt, &finishedAt, &transcript)
	if err != nil {
		return nil, err
	}

	record.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	record.FinishedAt, err = time.Parse(timeLayout, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	}

	if transcript != "" {
		record.Transcript = json.RawMessage(transcript)
	}

	return &record, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements archive.Driver
var _ archive.Driver = (*Driver)(nil)
