package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteTransport stores snapshots as rows of a single-file SQLite database,
// one row per location.
//
// Suited to:
//   - Several recovery locations managed from one process
//   - Tooling that wants to list or inspect stored snapshots
//   - Tests that need a real database with zero setup (":memory:")
//
// Schema:
//
//	recovery_snapshots(location TEXT PRIMARY KEY, payload BLOB, updated_at TIMESTAMP)
//
// WAL mode is enabled and the pool is limited to one connection since
// SQLite allows a single writer.
type SQLiteTransport struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteTransport opens (or creates) the database at path and migrates
// the schema.
//
// Example:
//
//	transport, err := store.NewSQLiteTransport("./recovery.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer transport.Close()
func NewSQLiteTransport(path string) (*SQLiteTransport, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	t := &SQLiteTransport{db: db, path: path}
	if err := t.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return t, nil
}

func (t *SQLiteTransport) createTables(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS recovery_snapshots (
			location TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create recovery_snapshots table: %w", err)
	}
	return nil
}

func (t *SQLiteTransport) checkOpen() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *SQLiteTransport) Exists(ctx context.Context, location string) (bool, error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	var one int
	err := t.db.QueryRowContext(ctx,
		"SELECT 1 FROM recovery_snapshots WHERE location = ?", location).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return true, nil
}

func (t *SQLiteTransport) Read(ctx context.Context, location string) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	var payload []byte
	err := t.db.QueryRowContext(ctx,
		"SELECT payload FROM recovery_snapshots WHERE location = ?", location).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return payload, nil
}

func (t *SQLiteTransport) Write(ctx context.Context, location string, data []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO recovery_snapshots (location, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(location) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, location, data)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (t *SQLiteTransport) Remove(ctx context.Context, location string) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx,
		"DELETE FROM recovery_snapshots WHERE location = ?", location); err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

func (t *SQLiteTransport) List(ctx context.Context, prefix string) ([]string, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := t.db.QueryContext(ctx,
		"SELECT location FROM recovery_snapshots WHERE location LIKE ? ESCAPE '\\' ORDER BY location",
		likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Close closes the database. Calling Close more than once is a no-op.
func (t *SQLiteTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}

// Ping verifies the database connection is alive.
func (t *SQLiteTransport) Ping(ctx context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	return t.db.PingContext(ctx)
}

// Path returns the database file path.
func (t *SQLiteTransport) Path() string {
	return t.path
}

// likePrefix escapes LIKE wildcards in prefix and appends '%'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
