package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"waitlist-intake/pkg/waitlist"
)

// Schema creates the waitlist table when it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS waitlist (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres implements Store against a "waitlist" table.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed waitlist store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// OpenPostgres opens dsn and waits until the database answers a ping.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying database ping after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema applies Schema.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create waitlist table: %w", err)
	}
	return nil
}

// Contains implements Store.
func (p *Postgres) Contains(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM waitlist WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query waitlist: %w", err)
	}
	return exists, nil
}

// Add implements Store.
func (p *Postgres) Add(ctx context.Context, email string) (*waitlist.Entry, error) {
	entry := &waitlist.Entry{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	res, err := p.db.ExecContext(ctx, `
		INSERT INTO waitlist (id, email, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, entry.ID, entry.Email, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert waitlist entry: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		p.logger.Info("Waitlist entry saved", "id", entry.ID, "email", waitlist.RedactEmail(email))
		return entry, nil
	}

	existing := &waitlist.Entry{}
	err = p.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM waitlist WHERE email = $1`,
		email,
	).Scan(&existing.ID, &existing.Email, &existing.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("waitlist entry vanished after conflict: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load existing entry: %w", err)
	}
	return existing, nil
}
