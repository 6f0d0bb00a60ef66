package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/demonlist-ranking/internal/domain"
)

const packColumns = `id, name, points, list_type, created_at, updated_at`

func scanPack(row scanner) (*domain.Pack, error) {
	var p domain.Pack
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Points,
		&p.ListType,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPacks retrieves packs in creation order
func (s *Store) ListPacks(ctx context.Context, listType domain.ListType) ([]domain.Pack, error) {
	query := `
		SELECT ` + packColumns + `
		FROM packs
		WHERE ($1 = '' OR list_type = $1)
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query, string(listType))
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	defer rows.Close()

	packs := make([]domain.Pack, 0)
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pack: %w", err)
		}
		packs = append(packs, *p)
	}
	return packs, rows.Err()
}

// GetPack retrieves a pack by ID
func (s *Store) GetPack(ctx context.Context, id string) (*domain.Pack, error) {
	pack, err := scanPack(s.pool.QueryRow(ctx, `SELECT `+packColumns+` FROM packs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPackNotFound
		}
		return nil, fmt.Errorf("getting pack: %w", err)
	}
	return pack, nil
}

// CreatePack inserts a pack
func (s *Store) CreatePack(ctx context.Context, pack *domain.Pack) error {
	query := `
		INSERT INTO packs (` + packColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		pack.ID,
		pack.Name,
		pack.Points,
		pack.ListType,
		pack.CreatedAt,
		pack.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating pack: %w", err)
	}
	return nil
}

// UpdatePack writes a pack's name and bonus
func (s *Store) UpdatePack(ctx context.Context, pack *domain.Pack) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE packs SET name = $2, points = $3, updated_at = $4 WHERE id = $1`,
		pack.ID, pack.Name, pack.Points, pack.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating pack: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPackNotFound
	}
	return nil
}

// DeletePack removes a pack; memberships cascade
func (s *Store) DeletePack(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM packs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting pack: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPackNotFound
	}
	return nil
}

// AddPackLevel adds a demon to a pack, ignoring existing memberships
func (s *Store) AddPackLevel(ctx context.Context, packID, demonID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pack_levels (pack_id, demon_id) VALUES ($1, $2) ON CONFLICT (pack_id, demon_id) DO NOTHING`,
		packID, demonID,
	)
	if err != nil {
		return fmt.Errorf("adding pack level: %w", err)
	}
	return nil
}

// RemovePackLevel removes a demon from a pack
func (s *Store) RemovePackLevel(ctx context.Context, packID, demonID string) error {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM pack_levels WHERE pack_id = $1 AND demon_id = $2`,
		packID, demonID,
	)
	if err != nil {
		return fmt.Errorf("removing pack level: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPackLevelNotFound
	}
	return nil
}

// PackLevels retrieves the member demons of a pack ordered by position
func (s *Store) PackLevels(ctx context.Context, packID string) ([]domain.Demon, error) {
	query := `
		SELECT ` + demonColumns("d") + `
		FROM pack_levels pl
		JOIN demons d ON d.id = pl.demon_id
		WHERE pl.pack_id = $1
		ORDER BY d.position
	`
	rows, err := s.pool.Query(ctx, query, packID)
	if err != nil {
		return nil, fmt.Errorf("listing pack levels: %w", err)
	}
	return collectDemons(rows)
}

// PackMembers maps every pack of the partition to its member demon IDs
func (s *Store) PackMembers(ctx context.Context, listType domain.ListType) (map[string][]string, error) {
	query := `
		SELECT p.id, pl.demon_id
		FROM packs p
		LEFT JOIN pack_levels pl ON pl.pack_id = p.id
		WHERE ($1 = '' OR p.list_type = $1)
	`
	rows, err := s.pool.Query(ctx, query, string(listType))
	if err != nil {
		return nil, fmt.Errorf("listing pack members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var (
			packID  string
			demonID *string
		)
		if err := rows.Scan(&packID, &demonID); err != nil {
			return nil, fmt.Errorf("scanning pack member: %w", err)
		}
		if _, ok := members[packID]; !ok {
			members[packID] = []string{}
		}
		if demonID != nil {
			members[packID] = append(members[packID], *demonID)
		}
	}
	return members, rows.Err()
}
