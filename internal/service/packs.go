package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/demonlist-ranking/internal/domain"
)

// PackService manages packs and evaluates pack completion
type PackService struct {
	store  Store
	logger *slog.Logger
}

// NewPackService creates a new pack service
func NewPackService(store Store, logger *slog.Logger) *PackService {
	return &PackService{
		store:  store,
		logger: logger,
	}
}

// List returns packs with their member levels, optionally for one partition
func (s *PackService) List(ctx context.Context, listType domain.ListType) ([]domain.PackWithLevels, error) {
	packs, err := s.store.ListPacks(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}

	result := make([]domain.PackWithLevels, 0, len(packs))
	for _, p := range packs {
		levels, err := s.store.PackLevels(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("listing levels of pack %s: %w", p.ID, err)
		}
		result = append(result, domain.PackWithLevels{Pack: p, Levels: levels})
	}
	return result, nil
}

// Get returns a pack with its member levels
func (s *PackService) Get(ctx context.Context, id string) (*domain.PackWithLevels, error) {
	pack, err := s.store.GetPack(ctx, id)
	if err != nil {
		return nil, err
	}
	levels, err := s.store.PackLevels(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing pack levels: %w", err)
	}
	return &domain.PackWithLevels{Pack: *pack, Levels: levels}, nil
}

// Create validates and inserts a pack
func (s *PackService) Create(ctx context.Context, in domain.PackInput) (*domain.Pack, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	pack := &domain.Pack{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Points:    in.Points,
		ListType:  in.ListType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePack(ctx, pack); err != nil {
		return nil, fmt.Errorf("creating pack: %w", err)
	}
	s.logger.Info("pack created", "pack_id", pack.ID, "list_type", pack.ListType)
	return pack, nil
}

// Update renames a pack and changes its bonus
func (s *PackService) Update(ctx context.Context, id string, in domain.PackUpdate) (*domain.Pack, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	pack, err := s.store.GetPack(ctx, id)
	if err != nil {
		return nil, err
	}
	pack.Name = in.Name
	pack.Points = in.Points
	pack.UpdatedAt = time.Now()
	if err := s.store.UpdatePack(ctx, pack); err != nil {
		return nil, fmt.Errorf("updating pack: %w", err)
	}
	return pack, nil
}

// Delete removes a pack and its memberships
func (s *PackService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePack(ctx, id); err != nil {
		return fmt.Errorf("deleting pack: %w", err)
	}
	return nil
}

// AddLevel makes a demon a member of a pack. Adding an existing member is a no-op.
func (s *PackService) AddLevel(ctx context.Context, packID, demonID string) error {
	if demonID == "" {
		return domain.Invalid("demon_id", "is required")
	}
	if _, err := s.store.GetPack(ctx, packID); err != nil {
		return err
	}
	if _, err := s.store.GetDemon(ctx, demonID); err != nil {
		return err
	}
	if err := s.store.AddPackLevel(ctx, packID, demonID); err != nil {
		return fmt.Errorf("adding pack level: %w", err)
	}
	return nil
}

// RemoveLevel drops a demon from a pack
func (s *PackService) RemoveLevel(ctx context.Context, packID, demonID string) error {
	if err := s.store.RemovePackLevel(ctx, packID, demonID); err != nil {
		return fmt.Errorf("removing pack level: %w", err)
	}
	return nil
}

// IsPackCompleted reports whether the user has credit for every level of the pack.
// Credit comes from an approved record or from being the demon's verifier.
func (s *PackService) IsPackCompleted(ctx context.Context, userID, packID string) (bool, error) {
	if _, err := s.store.GetPack(ctx, packID); err != nil {
		return false, err
	}
	levels, err := s.store.PackLevels(ctx, packID)
	if err != nil {
		return false, fmt.Errorf("listing pack levels: %w", err)
	}
	credited, err := s.store.CreditedDemonIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("loading credited demons: %w", err)
	}

	memberIDs := make([]string, len(levels))
	for i, l := range levels {
		memberIDs[i] = l.ID
	}
	return domain.PackCompleted(memberIDs, credited), nil
}

// CompletedPacks returns the packs of the partition the user has completed
func (s *PackService) CompletedPacks(ctx context.Context, userID string, listType domain.ListType) ([]domain.PackSummary, error) {
	catalog, err := loadPackCatalog(ctx, s.store, listType)
	if err != nil {
		return nil, err
	}
	credited, err := s.store.CreditedDemonIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading credited demons: %w", err)
	}
	return catalog.completed(credited), nil
}

// packCatalog is the pack list of a partition with member ids, loaded once
// and evaluated against many users.
type packCatalog struct {
	packs   []domain.Pack
	members map[string][]string
}

func loadPackCatalog(ctx context.Context, store PackStore, listType domain.ListType) (*packCatalog, error) {
	packs, err := store.ListPacks(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	members, err := store.PackMembers(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("listing pack members: %w", err)
	}
	return &packCatalog{packs: packs, members: members}, nil
}

// completed returns the packs whose members are all credited.
func (c *packCatalog) completed(credited map[string]struct{}) []domain.PackSummary {
	done := make([]domain.PackSummary, 0)
	for _, p := range c.packs {
		if domain.PackCompleted(c.members[p.ID], credited) {
			done = append(done, domain.PackSummary{ID: p.ID, Name: p.Name, Points: p.Points})
		}
	}
	return done
}

func sumPackPoints(packs []domain.PackSummary) int {
	total := 0
	for _, p := range packs {
		total += p.Points
	}
	return total
}
