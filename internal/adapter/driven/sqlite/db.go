// Package sqlite implements the driven store ports on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// pragmas apply to every connection. journal_mode is added only for file
// databases since WAL does not apply to in-memory ones.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)"

const (
	// A single writer avoids "database is locked" under concurrent inserts.
	writerConns = 1
	readerConns = 4
)

// DB holds separate writer and reader pools over the same database.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
}

// Open opens the database file at path in WAL mode and migrates it to the
// latest schema. The caller owns Close.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	db, err := open(ctx, fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&%s", path, pragmas))
	if err != nil {
		return nil, err
	}

	if _, err := db.Migrate(logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func open(ctx context.Context, dsn string) (*DB, error) {
	writer, err := openPool(ctx, dsn, writerConns)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := openPool(ctx, dsn, readerConns)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader}, nil
}

func openPool(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxOpen)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Close closes both pools and reports every failure.
func (db *DB) Close() error {
	var errs []error
	if err := db.Reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader: %w", err))
	}
	if err := db.Writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	return errors.Join(errs...)
}

type scanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as Unix milliseconds so range queries compare integers.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
