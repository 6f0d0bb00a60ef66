package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/demonlist-ranking/internal/domain"
)

const userColumns = `id, username, password_hash, profile_image_url, country, is_admin, is_moderator, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.ProfileImageURL,
		&u.Country,
		&u.IsAdmin,
		&u.IsModerator,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. The first account is made admin under an
// advisory lock so concurrent signups cannot both claim it.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('users:first-admin'))`); err != nil {
			return fmt.Errorf("locking users: %w", err)
		}

		query := `
			INSERT INTO users (id, username, password_hash, profile_image_url, country, is_admin, is_moderator, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6 OR NOT EXISTS (SELECT 1 FROM users), $7, $8, $9)
			RETURNING is_admin
		`
		return tx.QueryRow(ctx, query,
			user.ID,
			user.Username,
			user.PasswordHash,
			user.ProfileImageURL,
			user.Country,
			user.IsAdmin,
			user.IsModerator,
			user.CreatedAt,
			user.UpdatedAt,
		).Scan(&user.IsAdmin)
	})
	if err != nil {
		if uniqueViolation(err, "users_username_key") {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return user, nil
}

// UpdateUser writes every editable field of a user
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $2, profile_image_url = $3, country = $4, is_admin = $5, is_moderator = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.ProfileImageURL,
		user.Country,
		user.IsAdmin,
		user.IsModerator,
		user.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "users_username_key") {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("updating user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListUsers retrieves every user in signup order
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

// ListModerators retrieves users with the moderator flag
func (s *Store) ListModerators(ctx context.Context) ([]domain.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_moderator ORDER BY created_at, id`)
}

func (s *Store) listUsers(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
