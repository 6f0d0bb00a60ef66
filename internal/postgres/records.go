package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/demonlist-ranking/internal/domain"
)

const recordColumns = `r.id, r.user_id, r.demon_id, r.video_url, r.status, r.submitted_at, r.reviewed_at, r.reviewed_by`

func scanRecord(row scanner) (*domain.Record, error) {
	var r domain.Record
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.DemonID,
		&r.VideoURL,
		&r.Status,
		&r.SubmittedAt,
		&r.ReviewedAt,
		&r.ReviewedBy,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecord inserts a record
func (s *Store) CreateRecord(ctx context.Context, record *domain.Record) error {
	query := `
		INSERT INTO records (id, user_id, demon_id, video_url, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.DemonID,
		record.VideoURL,
		record.Status,
		record.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by ID
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records r WHERE r.id = $1`
	record, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// ListRecords retrieves records with user and demon, newest first
func (s *Store) ListRecords(ctx context.Context, status domain.RecordStatus) ([]domain.RecordDetail, error) {
	query := `
		SELECT ` + recordColumns + `,
			u.username, u.profile_image_url, u.country,
			d.name, d.position, d.difficulty, d.points, d.list_type
		FROM records r
		JOIN users u ON u.id = r.user_id
		JOIN demons d ON d.id = r.demon_id
		WHERE ($1 = '' OR r.status = $1)
		ORDER BY r.submitted_at DESC
	`
	return s.queryRecordDetails(ctx, query, string(status))
}

// ListRecordsByUser retrieves a user's records, newest first
func (s *Store) ListRecordsByUser(ctx context.Context, userID string) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records r WHERE r.user_id = $1 ORDER BY r.submitted_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// ListApprovedRecordsByDemon retrieves the approved records of a demon, newest first
func (s *Store) ListApprovedRecordsByDemon(ctx context.Context, demonID string) ([]domain.RecordDetail, error) {
	query := `
		SELECT ` + recordColumns + `,
			u.username, u.profile_image_url, u.country,
			d.name, d.position, d.difficulty, d.points, d.list_type
		FROM records r
		JOIN users u ON u.id = r.user_id
		JOIN demons d ON d.id = r.demon_id
		WHERE r.demon_id = $1 AND r.status = 'approved'
		ORDER BY r.submitted_at DESC
	`
	return s.queryRecordDetails(ctx, query, demonID)
}

func (s *Store) queryRecordDetails(ctx context.Context, query string, args ...any) ([]domain.RecordDetail, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	details := make([]domain.RecordDetail, 0)
	for rows.Next() {
		var (
			detail domain.RecordDetail
			demon  domain.DemonSummary
		)
		err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.DemonID,
			&detail.VideoURL,
			&detail.Status,
			&detail.SubmittedAt,
			&detail.ReviewedAt,
			&detail.ReviewedBy,
			&detail.User.Username,
			&detail.User.ProfileImageURL,
			&detail.User.Country,
			&demon.Name,
			&demon.Position,
			&demon.Difficulty,
			&demon.Points,
			&demon.ListType,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		detail.User.ID = detail.UserID
		demon.ID = detail.DemonID
		detail.Demon = &demon
		details = append(details, detail)
	}
	return details, rows.Err()
}

// ReviewRecord moves a pending record to status and, on approval, credits the
// demon's completion count in the same transaction
func (s *Store) ReviewRecord(ctx context.Context, id string, status domain.RecordStatus, reviewerID string, at time.Time) (*domain.Record, error) {
	var record *domain.Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE records r
			SET status = $2, reviewed_at = $3, reviewed_by = $4
			WHERE r.id = $1 AND r.status = 'pending'
			RETURNING ` + recordColumns
		var err error
		record, err = scanRecord(tx.QueryRow(ctx, query, id, status, at, reviewerID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.missingOrReviewed(ctx, tx, id)
			}
			return fmt.Errorf("updating record: %w", err)
		}

		if status != domain.RecordApproved {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE demons SET completion_count = completion_count + 1 WHERE id = $1`,
			record.DemonID,
		)
		if err != nil {
			return fmt.Errorf("incrementing completion count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// missingOrReviewed tells apart a missing record from one that left pending.
func (s *Store) missingOrReviewed(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM records WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking record: %w", err)
	}
	if !exists {
		return domain.ErrRecordNotFound
	}
	return domain.ErrInvalidTransition
}

// DeleteRecord removes a record and takes back its completion when it was approved
func (s *Store) DeleteRecord(ctx context.Context, id string) (*domain.Record, error) {
	var record *domain.Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `DELETE FROM records r WHERE r.id = $1 RETURNING ` + recordColumns
		var err error
		record, err = scanRecord(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRecordNotFound
			}
			return fmt.Errorf("deleting record: %w", err)
		}

		if delta := record.Status.CompletionDelta(); delta > 0 {
			_, err = tx.Exec(ctx,
				`UPDATE demons SET completion_count = GREATEST(completion_count - $2, 0) WHERE id = $1`,
				record.DemonID, delta,
			)
			if err != nil {
				return fmt.Errorf("decrementing completion count: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
