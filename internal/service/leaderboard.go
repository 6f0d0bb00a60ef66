package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// LeaderboardService computes player rankings from the store on every call
type LeaderboardService struct {
	store  Store
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(store Store, cfg *config.LeaderboardConfig, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Leaderboard ranks every user with points, optionally restricted to one partition.
// A failure while evaluating packs costs the affected users their pack bonus
// instead of failing the whole leaderboard.
func (s *LeaderboardService) Leaderboard(ctx context.Context, listType domain.ListType) ([]domain.RankEntry, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	completions, err := s.store.CompletionTallies(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("summing completion points: %w", err)
	}
	verifications, err := s.store.VerifierTallies(ctx, listType)
	if err != nil {
		return nil, fmt.Errorf("summing verifier points: %w", err)
	}

	catalog, err := loadPackCatalog(ctx, s.store, listType)
	if err != nil {
		s.logger.Warn("pack bonus unavailable for leaderboard", "list_type", listType, "error", err)
		catalog = nil
	}

	entries := make([]domain.RankEntry, 0, len(users))
	for i := range users {
		user := &users[i]
		bonus := s.packBonus(ctx, catalog, user.ID)
		entries = append(entries, domain.NewRankEntry(
			user.Summary(),
			completions[user.ID],
			verifications[user.ID],
			bonus,
		))
	}
	return domain.RankEntries(entries), nil
}

// Page cuts a window out of a ranked leaderboard. A non-positive limit uses
// the configured default; limits above the configured maximum are clamped.
func (s *LeaderboardService) Page(entries []domain.RankEntry, limit, offset int) []domain.RankEntry {
	limit = s.EffectiveLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []domain.RankEntry{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// EffectiveLimit applies the configured default and maximum to a requested page size
func (s *LeaderboardService) EffectiveLimit(limit int) int {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	return limit
}

// packBonus returns the bonus of every completed pack, or zero when the
// user's credit cannot be loaded.
func (s *LeaderboardService) packBonus(ctx context.Context, catalog *packCatalog, userID string) int {
	if catalog == nil || len(catalog.packs) == 0 {
		return 0
	}
	credited, err := s.store.CreditedDemonIDs(ctx, userID)
	if err != nil {
		s.logger.Warn("pack bonus unavailable for user", "user_id", userID, "error", err)
		return 0
	}
	return sumPackPoints(catalog.completed(credited))
}

// PlayerDetail returns a player's completed and verified levels, completed
// packs and point breakdown, optionally restricted to one partition
func (s *LeaderboardService) PlayerDetail(ctx context.Context, userID string, listType domain.ListType) (*domain.PlayerDetail, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed, err := s.store.CompletedDemons(ctx, userID, listType)
	if err != nil {
		return nil, fmt.Errorf("loading completed levels: %w", err)
	}
	verified, err := s.store.VerifiedDemons(ctx, userID, listType)
	if err != nil {
		return nil, fmt.Errorf("loading verified levels: %w", err)
	}

	packs := []domain.PackSummary{}
	catalog, err := loadPackCatalog(ctx, s.store, listType)
	if err == nil {
		var credited map[string]struct{}
		credited, err = s.store.CreditedDemonIDs(ctx, userID)
		if err == nil {
			packs = catalog.completed(credited)
		}
	}
	if err != nil {
		s.logger.Warn("pack bonus unavailable for player", "user_id", userID, "error", err)
	}

	detail := &domain.PlayerDetail{
		User:            user.Summary(),
		CompletedLevels: completed,
		VerifiedLevels:  verified,
		CompletedPacks:  packs,
		PackBonusPoints: sumPackPoints(packs),
	}
	for _, d := range completed {
		detail.CompletionPoints += d.Points
	}
	for _, d := range verified {
		detail.VerifierPoints += d.Points
	}
	detail.TotalPoints = detail.CompletionPoints + detail.VerifierPoints + detail.PackBonusPoints
	return detail, nil
}

// Stats returns site-wide counters
func (s *LeaderboardService) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return stats, nil
}
