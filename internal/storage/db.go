package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"citemon/internal"
)

// ErrNotCached is returned when no dataset is stored under a key.
var ErrNotCached = errors.New("dataset not cached")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS datasets (
  key TEXT PRIMARY KEY,
  sourcesJson TEXT NOT NULL,
  payload BLOB NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  sourceKey TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_sourceKey ON runs(sourceKey);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// CachedDataset is a stored render result. CreatedAt is in SQLite's
// "YYYY-MM-DD HH:MM:SS" UTC form.
type CachedDataset struct {
	Key       string
	Sources   []string
	Payload   []byte
	CreatedAt string
}

func (d *DB) PutDataset(key string, sources []string, payload []byte) error {
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO datasets (key, sourcesJson, payload) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  sourcesJson = excluded.sourcesJson,
  payload = excluded.payload,
  createdAt = CURRENT_TIMESTAMP
`, key, string(sourcesJSON), payload)
	return err
}

func (d *DB) GetDataset(key string) (CachedDataset, error) {
	var row CachedDataset
	var sourcesJSON string
	err := d.conn.QueryRow(`SELECT key, sourcesJson, payload, createdAt FROM datasets WHERE key = ?`, key).
		Scan(&row.Key, &sourcesJSON, &row.Payload, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedDataset{}, ErrNotCached
	}
	if err != nil {
		return CachedDataset{}, err
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &row.Sources); err != nil {
		return CachedDataset{}, fmt.Errorf("dataset %s: decoding sources: %w", key, err)
	}
	return row, nil
}

// DeleteDataset removes one cached dataset, or all of them when key is
// empty. It returns the number of rows removed.
func (d *DB) DeleteDataset(key string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if strings.TrimSpace(key) == "" {
		res, err = d.conn.Exec(`DELETE FROM datasets`)
	} else {
		res, err = d.conn.Exec(`DELETE FROM datasets WHERE key = ?`, key)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) InsertRun(traceID, sourceKey string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, sourceKey, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, sourceKey, string(timingsJSON), string(countsJSON))
	return err
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, traceId, sourceKey, timingsJson, countsJson, createdAt
FROM runs
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.SourceKey, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
