// Package journal persists a record of every sink delivery. The broker
// loop optimistically reports deliveries before the sinks run; the
// journal is where the real outcome, including the opaque failure
// codes, ends up for later inspection.
package journal

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Schema for the delivery journal.
const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
    id            TEXT PRIMARY KEY,
    turn_id       TEXT NOT NULL,
    sink          TEXT NOT NULL,
    code          TEXT NOT NULL,
    timestamp_ns  INTEGER NOT NULL,
    byte_length   INTEGER NOT NULL,
    interrupted   INTEGER NOT NULL,
    truncated     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_turn ON deliveries(turn_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_time ON deliveries(timestamp_ns);
`

// CodeOK marks a successful delivery; failures store the sink's opaque
// failure code instead.
const CodeOK = "ok"

// Delivery is one recorded sink invocation.
type Delivery struct {
	ID          string
	TurnID      string
	Sink        string
	Code        string
	TimestampNs int64
	ByteLength  int
	Interrupted bool
	Truncated   bool
}

// Journal is the SQLite-backed delivery log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record inserts one delivery outcome and returns its id.
func (j *Journal) Record(d Delivery) (string, error) {
	if d.ID == "" {
		d.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	if d.TimestampNs == 0 {
		d.TimestampNs = time.Now().UnixNano()
	}

	_, err := j.db.Exec(`
		INSERT INTO deliveries (id, turn_id, sink, code, timestamp_ns, byte_length, interrupted, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TurnID, d.Sink, d.Code, d.TimestampNs, d.ByteLength, boolInt(d.Interrupted), boolInt(d.Truncated),
	)
	if err != nil {
		return "", fmt.Errorf("insert delivery: %w", err)
	}
	return d.ID, nil
}

// Recent returns up to limit deliveries, newest first.
func (j *Journal) Recent(limit int) ([]Delivery, error) {
	rows, err := j.db.Query(`
		SELECT id, turn_id, sink, code, timestamp_ns, byte_length, interrupted, truncated
		FROM deliveries ORDER BY timestamp_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var interrupted, truncated int
		if err := rows.Scan(&d.ID, &d.TurnID, &d.Sink, &d.Code, &d.TimestampNs, &d.ByteLength, &interrupted, &truncated); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Interrupted = interrupted != 0
		d.Truncated = truncated != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
