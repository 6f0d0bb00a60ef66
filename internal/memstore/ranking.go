package memstore

import (
	"context"

	"github.com/demonlist-ranking/internal/domain"
)

func (s *Store) CompletionTallies(_ context.Context, listType domain.ListType) (map[string]domain.PointTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tallies := make(map[string]domain.PointTally)
	for _, r := range s.records {
		if r.Status != domain.RecordApproved {
			continue
		}
		d, ok := s.demons[r.DemonID]
		if !ok || (listType != "" && d.ListType != listType) {
			continue
		}
		t := tallies[r.UserID]
		t.Points += d.Points
		t.Count++
		tallies[r.UserID] = t
	}
	return tallies, nil
}

func (s *Store) VerifierTallies(_ context.Context, listType domain.ListType) (map[string]domain.PointTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tallies := make(map[string]domain.PointTally)
	for _, d := range s.demons {
		if d.VerifierID == nil || (listType != "" && d.ListType != listType) {
			continue
		}
		t := tallies[*d.VerifierID]
		t.Points += d.Points
		t.Count++
		tallies[*d.VerifierID] = t
	}
	return tallies, nil
}

func (s *Store) CreditedDemonIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credited := make(map[string]struct{})
	for _, r := range s.records {
		if r.UserID == userID && r.Status == domain.RecordApproved {
			credited[r.DemonID] = struct{}{}
		}
	}
	for id, d := range s.demons {
		if d.VerifierID != nil && *d.VerifierID == userID {
			credited[id] = struct{}{}
		}
	}
	return credited, nil
}

func (s *Store) CompletedDemons(_ context.Context, userID string, listType domain.ListType) ([]domain.Demon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range s.records {
		if r.UserID == userID && r.Status == domain.RecordApproved {
			counts[r.DemonID]++
		}
	}

	unique := s.demonsWhere(func(d *domain.Demon) bool {
		return counts[d.ID] > 0 && (listType == "" || d.ListType == listType)
	})
	demons := make([]domain.Demon, 0, len(unique))
	for _, d := range unique {
		for i := 0; i < counts[d.ID]; i++ {
			demons = append(demons, d)
		}
	}
	return demons, nil
}

func (s *Store) VerifiedDemons(_ context.Context, userID string, listType domain.ListType) ([]domain.Demon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.demonsWhere(func(d *domain.Demon) bool {
		return d.VerifierID != nil && *d.VerifierID == userID &&
			(listType == "" || d.ListType == listType)
	}), nil
}

func (s *Store) Stats(context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Stats{
		TotalDemons:   int64(len(s.demons)),
		ActivePlayers: int64(len(s.users)),
	}
	for _, r := range s.records {
		if r.Status == domain.RecordApproved {
			stats.VerifiedRecords++
		}
	}
	for _, d := range s.demons {
		if d.VerifierID != nil {
			stats.VerifiedRecords++
		}
	}
	return stats, nil
}
