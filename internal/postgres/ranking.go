package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// CompletionTallies sums the points of approved records per user
func (s *Store) CompletionTallies(ctx context.Context, listType domain.ListType) (map[string]domain.PointTally, error) {
	query := `
		SELECT r.user_id, COALESCE(SUM(d.points), 0), COUNT(*)
		FROM records r
		JOIN demons d ON d.id = r.demon_id
		WHERE r.status = 'approved' AND ($1 = '' OR d.list_type = $1)
		GROUP BY r.user_id
	`
	return s.queryTallies(ctx, query, string(listType))
}

// VerifierTallies sums the points of verified demons per user
func (s *Store) VerifierTallies(ctx context.Context, listType domain.ListType) (map[string]domain.PointTally, error) {
	query := `
		SELECT verifier_id, COALESCE(SUM(points), 0), COUNT(*)
		FROM demons
		WHERE verifier_id IS NOT NULL AND ($1 = '' OR list_type = $1)
		GROUP BY verifier_id
	`
	return s.queryTallies(ctx, query, string(listType))
}

func (s *Store) queryTallies(ctx context.Context, query string, args ...any) (map[string]domain.PointTally, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing points: %w", err)
	}
	defer rows.Close()

	tallies := make(map[string]domain.PointTally)
	for rows.Next() {
		var (
			userID string
			points int64
			count  int64
		)
		if err := rows.Scan(&userID, &points, &count); err != nil {
			return nil, fmt.Errorf("scanning tally: %w", err)
		}
		tallies[userID] = domain.PointTally{Points: int(points), Count: int(count)}
	}
	return tallies, rows.Err()
}

// CreditedDemonIDs returns the demons a user has completed or verified
func (s *Store) CreditedDemonIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	query := `
		SELECT demon_id FROM records WHERE user_id = $1 AND status = 'approved'
		UNION
		SELECT id FROM demons WHERE verifier_id = $1
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing credited demons: %w", err)
	}
	defer rows.Close()

	credited := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning credited demon: %w", err)
		}
		credited[id] = struct{}{}
	}
	return credited, rows.Err()
}

// CompletedDemons returns one demon per approved record of the user
func (s *Store) CompletedDemons(ctx context.Context, userID string, listType domain.ListType) ([]domain.Demon, error) {
	query := `
		SELECT ` + demonColumns("d") + `
		FROM records r
		JOIN demons d ON d.id = r.demon_id
		WHERE r.user_id = $1 AND r.status = 'approved' AND ($2 = '' OR d.list_type = $2)
		ORDER BY d.position, d.list_type
	`
	return s.queryDemons(ctx, query, userID, string(listType))
}

// VerifiedDemons returns the demons the user verified
func (s *Store) VerifiedDemons(ctx context.Context, userID string, listType domain.ListType) ([]domain.Demon, error) {
	query := `
		SELECT ` + demonColumns("") + `
		FROM demons
		WHERE verifier_id = $1 AND ($2 = '' OR list_type = $2)
		ORDER BY position, list_type
	`
	return s.queryDemons(ctx, query, userID, string(listType))
}

func (s *Store) queryDemons(ctx context.Context, query string, args ...any) ([]domain.Demon, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing demons: %w", err)
	}
	return collectDemons(rows)
}

// Stats counts demons, credited completions and registered players in one round trip
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT COUNT(*) FROM demons`)
	batch.Queue(`SELECT COUNT(*) FROM records WHERE status = 'approved'`)
	batch.Queue(`SELECT COUNT(*) FROM demons WHERE verifier_id IS NOT NULL`)
	batch.Queue(`SELECT COUNT(*) FROM users`)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var counts [4]int64
	for i := range counts {
		if err := br.QueryRow().Scan(&counts[i]); err != nil {
			return nil, fmt.Errorf("loading stats: %w", err)
		}
	}

	return &domain.Stats{
		TotalDemons:     counts[0],
		VerifiedRecords: counts[1] + counts[2],
		ActivePlayers:   counts[3],
	}, nil
}
