package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLTransport stores snapshots in a MySQL/MariaDB table, one row per
// location. Use it when several hosts share recovery state through a
// database; the one-writer-per-location rule still applies.
//
// Schema:
//
//	recovery_snapshots(location VARCHAR(512) PRIMARY KEY, payload LONGBLOB, updated_at TIMESTAMP)
type MySQLTransport struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLTransport connects using dsn and migrates the schema.
//
// DSN format:
//
//	user:password@tcp(localhost:3306)/recovery?parseTime=true
//
// Credentials belong in the environment, not in source:
//
//	transport, err := store.NewMySQLTransport(os.Getenv("MYSQL_DSN"))
func NewMySQLTransport(dsn string) (*MySQLTransport, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	t := &MySQLTransport{db: db}
	if err := t.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return t, nil
}

func (t *MySQLTransport) createTables(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS recovery_snapshots (
			location VARCHAR(512) NOT NULL PRIMARY KEY,
			payload LONGBLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`)
	if err != nil {
		return fmt.Errorf("failed to create recovery_snapshots table: %w", err)
	}
	return nil
}

func (t *MySQLTransport) checkOpen() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *MySQLTransport) Exists(ctx context.Context, location string) (bool, error) {
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

func (t *MySQLTransport) Read(ctx context.Context, location string) ([]byte, error) {
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

func (t *MySQLTransport) Write(ctx context.Context, location string, data []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO recovery_snapshots (location, payload)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload)
	`, location, data)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (t *MySQLTransport) Remove(ctx context.Context, location string) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx,
		"DELETE FROM recovery_snapshots WHERE location = ?", location); err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

func (t *MySQLTransport) List(ctx context.Context, prefix string) ([]string, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := t.db.QueryContext(ctx,
		"SELECT location FROM recovery_snapshots WHERE location LIKE ? ORDER BY location",
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

// Close closes the connection pool. Calling Close more than once is a no-op.
func (t *MySQLTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}

// Ping verifies the database connection is alive.
func (t *MySQLTransport) Ping(ctx context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	return t.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (t *MySQLTransport) Stats() sql.DBStats {
	return t.db.Stats()
}
