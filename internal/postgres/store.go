package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/service"
)

var _ service.Store = (*Store)(nil)

// Store provides PostgreSQL-based data access
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new PostgreSQL store
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(30) NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			profile_image_url TEXT,
			country VARCHAR(8),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_moderator BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_username_key UNIQUE (username)
		)`,
		`CREATE TABLE IF NOT EXISTS demons (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			creator VARCHAR(255) NOT NULL,
			verifier VARCHAR(255),
			verifier_id VARCHAR(64) REFERENCES users(id) ON DELETE SET NULL,
			difficulty VARCHAR(20) NOT NULL,
			position INT NOT NULL,
			points INT NOT NULL,
			video_url TEXT,
			completion_count INT NOT NULL DEFAULT 0 CHECK (completion_count >= 0),
			list_type VARCHAR(20) NOT NULL DEFAULT 'demonlist',
			enjoyment_rating INT,
			categories TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT demons_list_position_key UNIQUE (list_type, position)
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			demon_id VARCHAR(64) NOT NULL REFERENCES demons(id) ON DELETE CASCADE,
			video_url TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed_at TIMESTAMPTZ,
			reviewed_by VARCHAR(64)
		)`,
		`CREATE TABLE IF NOT EXISTS packs (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			points INT NOT NULL,
			list_type VARCHAR(20) NOT NULL DEFAULT 'demonlist',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS pack_levels (
			pack_id VARCHAR(64) NOT NULL REFERENCES packs(id) ON DELETE CASCADE,
			demon_id VARCHAR(64) NOT NULL REFERENCES demons(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (pack_id, demon_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user ON records(user_id, submitted_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_demon_status ON records(demon_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status, submitted_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_demons_verifier ON demons(verifier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_packs_list_type ON packs(list_type)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// uniqueViolation reports whether err is a unique constraint violation on constraint.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

type scanner interface {
	Scan(dest ...any) error
}
