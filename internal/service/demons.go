package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/points"
)

// DemonService manages list entries and their ordering
type DemonService struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
	locks     *partitionLocks
}

// NewDemonService creates a new demon service
func NewDemonService(store Store, publisher EventPublisher, logger *slog.Logger) *DemonService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &DemonService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		locks:     newPartitionLocks(),
	}
}

// List returns demons ordered by position, optionally for one partition
func (s *DemonService) List(ctx context.Context, listType domain.ListType) ([]domain.Demon, error) {
	demons, err := s.store.ListDemons(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("listing demons: %w", err)
	}
	return demons, nil
}

// Get returns a demon by ID
func (s *DemonService) Get(ctx context.Context, id string) (*domain.Demon, error) {
	return s.store.GetDemon(ctx, id)
}

// Create validates and inserts a new demon
func (s *DemonService) Create(ctx context.Context, in domain.DemonInput) (*domain.Demon, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	demon := &domain.Demon{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.Apply(demon)

	verifierID, err := s.resolveVerifier(ctx, in.Verifier)
	if err != nil {
		return nil, err
	}
	demon.VerifierID = verifierID

	unlock := s.locks.lock(demon.ListType)
	defer unlock()

	if err := s.store.CreateDemon(ctx, demon); err != nil {
		return nil, fmt.Errorf("creating demon: %w", err)
	}

	s.logger.Info("demon created",
		"demon_id", demon.ID,
		"list_type", demon.ListType,
		"position", demon.Position,
	)
	return demon, nil
}

// Update replaces the editable fields of a demon. An empty verifier clears the verifier link.
func (s *DemonService) Update(ctx context.Context, id string, in domain.DemonInput) (*domain.Demon, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	demon, err := s.store.GetDemon(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Apply(demon)
	demon.VerifierID, err = s.resolveVerifier(ctx, in.Verifier)
	if err != nil {
		return nil, err
	}
	demon.UpdatedAt = time.Now()

	if err := s.store.UpdateDemon(ctx, demon); err != nil {
		return nil, fmt.Errorf("updating demon: %w", err)
	}
	return demon, nil
}

// Delete removes a demon together with its records and pack memberships
func (s *DemonService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDemon(ctx, id); err != nil {
		return fmt.Errorf("deleting demon: %w", err)
	}
	s.logger.Info("demon deleted", "demon_id", id)
	return nil
}

// Reorder assigns new positions within one partition and recomputes points.
//
// Every listed demon is first parked on a unique negative position (-1, -2, ...
// by input index) so that no final position can collide with a position that
// is still occupied, then moved to its target position with points derived
// from the formula. Both phases share one transaction and reorders of the same
// partition are serialised.
func (s *DemonService) Reorder(ctx context.Context, actorID string, listType domain.ListType, order []domain.Placement) error {
	if !listType.Valid() {
		return domain.Invalid("list_type", "unknown list type %q", listType)
	}
	if err := domain.ValidatePlacements(order); err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}

	unlock := s.locks.lock(listType)
	defer unlock()

	err := s.store.ReorderTx(ctx, listType, func(w PositionWriter) error {
		for i, p := range order {
			if err := w.SetPosition(ctx, p.DemonID, -(i + 1), nil); err != nil {
				return fmt.Errorf("parking demon %s: %w", p.DemonID, err)
			}
		}
		for _, p := range order {
			pts := points.ForList(p.Position, listType)
			if err := w.SetPosition(ctx, p.DemonID, p.Position, &pts); err != nil {
				return fmt.Errorf("placing demon %s: %w", p.DemonID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reordering %s: %w", listType, err)
	}

	s.logger.Info("demons reordered", "list_type", listType, "count", len(order), "actor_id", actorID)
	publishEvent(ctx, s.publisher, s.logger, domain.Event{
		Type:      domain.EventDemonsReordered,
		ActorID:   actorID,
		ListType:  listType,
		Timestamp: time.Now(),
		Metadata:  map[string]interface{}{"count": len(order)},
	})
	return nil
}

// Recalculate rewrites the points of every ranked demon in a partition from
// its current position. Returns the number of demons whose points changed.
func (s *DemonService) Recalculate(ctx context.Context, listType domain.ListType) (int, error) {
	if !listType.Valid() {
		return 0, domain.Invalid("list_type", "unknown list type %q", listType)
	}

	unlock := s.locks.lock(listType)
	defer unlock()

	demons, err := s.store.ListDemons(ctx, listType)
	if err != nil {
		return 0, fmt.Errorf("listing demons: %w", err)
	}

	changed := 0
	err = s.store.ReorderTx(ctx, listType, func(w PositionWriter) error {
		changed = 0
		for _, d := range demons {
			pts := points.ForList(d.Position, listType)
			if pts == d.Points {
				continue
			}
			if err := w.SetPosition(ctx, d.ID, d.Position, &pts); err != nil {
				return fmt.Errorf("updating demon %s: %w", d.ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recalculating %s: %w", listType, err)
	}

	if changed > 0 {
		s.logger.Info("points recalculated", "list_type", listType, "changed", changed)
	}
	return changed, nil
}

// resolveVerifier maps a verifier name to a registered user, if one exists.
func (s *DemonService) resolveVerifier(ctx context.Context, name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	user, err := s.store.GetUserByUsername(ctx, *name)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up verifier: %w", err)
	}
	id := user.ID
	return &id, nil
}
