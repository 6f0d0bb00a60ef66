package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/service"
)

const positionConstraint = "demons_list_position_key"

var demonColumnNames = []string{
	"id", "name", "creator", "verifier", "verifier_id", "difficulty", "position", "points",
	"video_url", "completion_count", "list_type", "enjoyment_rating", "categories",
	"created_at", "updated_at",
}

// demonColumns lists the demon columns, qualified with alias when it is not empty.
func demonColumns(alias string) string {
	if alias == "" {
		return strings.Join(demonColumnNames, ", ")
	}
	return alias + "." + strings.Join(demonColumnNames, ", "+alias+".")
}

func scanDemon(row scanner) (*domain.Demon, error) {
	var d domain.Demon
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Creator,
		&d.Verifier,
		&d.VerifierID,
		&d.Difficulty,
		&d.Position,
		&d.Points,
		&d.VideoURL,
		&d.CompletionCount,
		&d.ListType,
		&d.EnjoymentRating,
		&d.Categories,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if d.Categories == nil {
		d.Categories = []string{}
	}
	return &d, nil
}

func collectDemons(rows pgx.Rows) ([]domain.Demon, error) {
	defer rows.Close()

	demons := make([]domain.Demon, 0)
	for rows.Next() {
		d, err := scanDemon(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning demon: %w", err)
		}
		demons = append(demons, *d)
	}
	return demons, rows.Err()
}

// partitionLockKey is the advisory lock name serialising position writes of a partition
func partitionLockKey(listType domain.ListType) string {
	return "demons:positions:" + string(listType)
}

func lockPartition(ctx context.Context, tx pgx.Tx, listType domain.ListType) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, partitionLockKey(listType)); err != nil {
		return fmt.Errorf("locking partition %s: %w", listType, err)
	}
	return nil
}

// ListDemons retrieves demons ordered by position
func (s *Store) ListDemons(ctx context.Context, listType domain.ListType) ([]domain.Demon, error) {
	query := `
		SELECT ` + demonColumns("") + `
		FROM demons
		WHERE ($1 = '' OR list_type = $1)
		ORDER BY position, list_type
	`
	rows, err := s.pool.Query(ctx, query, string(listType))
	if err != nil {
		return nil, fmt.Errorf("listing demons: %w", err)
	}
	return collectDemons(rows)
}

// GetDemon retrieves a demon by ID
func (s *Store) GetDemon(ctx context.Context, id string) (*domain.Demon, error) {
	query := `SELECT ` + demonColumns("") + ` FROM demons WHERE id = $1`
	demon, err := scanDemon(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDemonNotFound
		}
		return nil, fmt.Errorf("getting demon: %w", err)
	}
	return demon, nil
}

// CreateDemon inserts a demon after moving every demon at or below its
// position one place down. The shift goes through negative positions so the
// unique position constraint holds after every row update.
func (s *Store) CreateDemon(ctx context.Context, demon *domain.Demon) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPartition(ctx, tx, demon.ListType); err != nil {
			return err
		}

		shift := `
			UPDATE demons SET position = -(position + 1), updated_at = NOW()
			WHERE list_type = $1 AND position >= $2
		`
		if _, err := tx.Exec(ctx, shift, demon.ListType, demon.Position); err != nil {
			return fmt.Errorf("parking shifted demons: %w", err)
		}
		settle := `UPDATE demons SET position = -position WHERE list_type = $1 AND position < 0`
		if _, err := tx.Exec(ctx, settle, demon.ListType); err != nil {
			return fmt.Errorf("settling shifted demons: %w", err)
		}

		insert := `
			INSERT INTO demons (` + demonColumns("") + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err := tx.Exec(ctx, insert,
			demon.ID,
			demon.Name,
			demon.Creator,
			demon.Verifier,
			demon.VerifierID,
			demon.Difficulty,
			demon.Position,
			demon.Points,
			demon.VideoURL,
			demon.CompletionCount,
			demon.ListType,
			demon.EnjoymentRating,
			demon.Categories,
			demon.CreatedAt,
			demon.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if uniqueViolation(err, positionConstraint) {
			return domain.ErrPositionTaken
		}
		return fmt.Errorf("creating demon: %w", err)
	}
	return nil
}

// UpdateDemon writes every editable field of a demon
func (s *Store) UpdateDemon(ctx context.Context, demon *domain.Demon) error {
	query := `
		UPDATE demons
		SET name = $2, creator = $3, verifier = $4, verifier_id = $5, difficulty = $6,
			position = $7, points = $8, video_url = $9, list_type = $10,
			enjoyment_rating = $11, categories = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := s.pool.Exec(ctx, query,
		demon.ID,
		demon.Name,
		demon.Creator,
		demon.Verifier,
		demon.VerifierID,
		demon.Difficulty,
		demon.Position,
		demon.Points,
		demon.VideoURL,
		demon.ListType,
		demon.EnjoymentRating,
		demon.Categories,
		demon.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, positionConstraint) {
			return domain.ErrPositionTaken
		}
		return fmt.Errorf("updating demon: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDemonNotFound
	}
	return nil
}

// DeleteDemon removes a demon; records and pack memberships cascade
func (s *Store) DeleteDemon(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM demons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting demon: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDemonNotFound
	}
	return nil
}

// ReorderTx runs fn inside one transaction holding the partition's advisory lock
func (s *Store) ReorderTx(ctx context.Context, listType domain.ListType, fn func(service.PositionWriter) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockPartition(ctx, tx, listType); err != nil {
			return err
		}
		return fn(&positionWriter{tx: tx, listType: listType})
	})
}

type positionWriter struct {
	tx       pgx.Tx
	listType domain.ListType
}

func (w *positionWriter) SetPosition(ctx context.Context, demonID string, position int, points *int) error {
	query := `
		UPDATE demons
		SET position = $3, points = COALESCE($4, points), updated_at = NOW()
		WHERE id = $1 AND list_type = $2
	`
	result, err := w.tx.Exec(ctx, query, demonID, w.listType, position, points)
	if err != nil {
		if uniqueViolation(err, positionConstraint) {
			return domain.ErrPositionTaken
		}
		return fmt.Errorf("setting position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDemonNotFound
	}
	return nil
}
