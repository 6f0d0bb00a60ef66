package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/demonlist-ranking/internal/domain"
)

func (s *Store) CreateRecord(_ context.Context, record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.demons[record.DemonID]; !ok {
		return domain.ErrDemonNotFound
	}
	if _, ok := s.users[record.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	r := *record
	s.records[r.ID] = &r
	s.recordOrder = append(s.recordOrder, r.ID)
	return nil
}

func (s *Store) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRecords(_ context.Context, status domain.RecordStatus) ([]domain.RecordDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.recordDetails(func(r *domain.Record) bool {
		return status == "" || r.Status == status
	}), nil
}

func (s *Store) ListRecordsByUser(_ context.Context, userID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.Record, 0)
	for _, id := range s.newestFirst() {
		if r := s.records[id]; r.UserID == userID {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (s *Store) ListApprovedRecordsByDemon(_ context.Context, demonID string) ([]domain.RecordDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.recordDetails(func(r *domain.Record) bool {
		return r.DemonID == demonID && r.Status == domain.RecordApproved
	}), nil
}

func (s *Store) ReviewRecord(_ context.Context, id string, status domain.RecordStatus, reviewerID string, at time.Time) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	if !r.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	r.Status = status
	r.ReviewedAt = &at
	reviewer := reviewerID
	r.ReviewedBy = &reviewer

	if status == domain.RecordApproved {
		if d, ok := s.demons[r.DemonID]; ok {
			d.CompletionCount++
		}
	}
	cp := *r
	return &cp, nil
}

func (s *Store) DeleteRecord(_ context.Context, id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	delete(s.records, id)
	s.recordOrder = without(s.recordOrder, id)

	if d, ok := s.demons[r.DemonID]; ok {
		d.CompletionCount -= r.Status.CompletionDelta()
		if d.CompletionCount < 0 {
			d.CompletionCount = 0
		}
	}
	return r, nil
}

// newestFirst returns record ids by submission time descending. Records
// submitted at the same instant keep reverse insertion order.
func (s *Store) newestFirst() []string {
	ids := make([]string, len(s.recordOrder))
	for i, id := range s.recordOrder {
		ids[len(ids)-1-i] = id
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return s.records[ids[i]].SubmittedAt.After(s.records[ids[j]].SubmittedAt)
	})
	return ids
}

func (s *Store) recordDetails(match func(*domain.Record) bool) []domain.RecordDetail {
	details := make([]domain.RecordDetail, 0)
	for _, id := range s.newestFirst() {
		r := s.records[id]
		if !match(r) {
			continue
		}
		detail := domain.RecordDetail{Record: *r}
		if u, ok := s.users[r.UserID]; ok {
			detail.User = u.Summary()
		}
		if d, ok := s.demons[r.DemonID]; ok {
			summary := d.Summary()
			detail.Demon = &summary
		}
		details = append(details, detail)
	}
	return details
}
