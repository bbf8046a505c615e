// Package cascadestore persists serialized cascades to Postgres. It is a
// blob-plus-metadata row store: it never interprets cascade contents, only
// the bit-exact wire hex cascade.Cascade.ToHex produces plus a caller
// label, salt, depth, and creation time.
package cascadestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
	"github.com/flhps/crset-cascade-go/pkg/cascadelog"
)

// ArtifactMeta describes one stored cascade without its wire bytes.
type ArtifactMeta struct {
	ID        int64
	Label     string
	SaltHex   string
	Depth     int
	CreatedAt time.Time
}

// Store wraps a pgx connection pool scoped to the cascade_artifacts table.
type Store struct {
	pool   *pgxpool.Pool
	logger *cascadelog.Logger
}

// Open connects to dsn and applies any pending migrations under
// migrationsPath before returning. Closing the returned Store releases
// the pool.
func Open(ctx context.Context, dsn, migrationsPath string, logger *cascadelog.Logger) (*Store, error) {
	if logger == nil {
		logger = cascadelog.Global()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cascadestore: failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cascadestore: failed to reach database: %w", err)
	}

	if migrationsPath != "" {
		if err := applyMigrations(dsn, migrationsPath, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Store{pool: pool, logger: logger.WithComponent("cascadestore")}, nil
}

func applyMigrations(dsn, migrationsPath string, logger *cascadelog.Logger) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("cascadestore: failed to initialize migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("cascadestore: failed to apply migrations: %w", err)
	}

	logger.Info("cascadestore migrations applied", map[string]interface{}{"path": migrationsPath})
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Put inserts a new row recording c's current serialized form under label.
// Cascades are immutable once built, so Put never updates an existing row
// — each call appends a new version, and History/Latest order by
// created_at.
func (s *Store) Put(ctx context.Context, label string, c *cascade.Cascade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cascade_artifacts (label, salt_hex, depth, wire_hex) VALUES ($1, $2, $3, $4)`,
		label, c.Salt(), c.Depth(), c.ToHex(),
	)
	if err != nil {
		return fmt.Errorf("cascadestore: failed to insert artifact for label %q: %w", label, err)
	}
	s.logger.Info("cascade artifact stored", map[string]interface{}{"label": label, "depth": c.Depth()})
	return nil
}

// Latest returns the most recently stored cascade for label.
func (s *Store) Latest(ctx context.Context, label string) (*cascade.Cascade, error) {
	var wireHex string
	err := s.pool.QueryRow(ctx,
		`SELECT wire_hex FROM cascade_artifacts WHERE label = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		label,
	).Scan(&wireHex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cascadestore: no artifact stored for label %q", label)
		}
		return nil, fmt.Errorf("cascadestore: failed to query latest artifact for label %q: %w", label, err)
	}

	c, err := cascade.FromHex(wireHex)
	if err != nil {
		return nil, fmt.Errorf("cascadestore: stored artifact for label %q is corrupt: %w", label, err)
	}
	return c, nil
}

// History returns up to limit ArtifactMeta rows for label, most recent
// first.
func (s *Store) History(ctx context.Context, label string, limit int) ([]ArtifactMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, salt_hex, depth, created_at FROM cascade_artifacts WHERE label = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		label, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("cascadestore: failed to query history for label %q: %w", label, err)
	}
	defer rows.Close()

	var out []ArtifactMeta
	for rows.Next() {
		var m ArtifactMeta
		if err := rows.Scan(&m.ID, &m.Label, &m.SaltHex, &m.Depth, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("cascadestore: failed to scan history row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cascadestore: error iterating history rows: %w", err)
	}
	return out, nil
}
