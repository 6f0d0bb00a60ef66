// Package memstore keeps the whole list in process memory. It enforces the
// same uniqueness and counter rules as the Postgres store and is used for
// local runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/service"
)

var _ service.Store = (*Store)(nil)

// Store is an in-memory service.Store
type Store struct {
	mu sync.RWMutex

	users     map[string]*domain.User
	userOrder []string

	demons map[string]*domain.Demon

	records     map[string]*domain.Record
	recordOrder []string

	packs      map[string]*domain.Pack
	packOrder  []string
	packLevels map[string][]string
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:      make(map[string]*domain.User),
		demons:     make(map[string]*domain.Demon),
		records:    make(map[string]*domain.Record),
		packs:      make(map[string]*domain.Pack),
		packLevels: make(map[string][]string),
	}
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(user.Username, "") {
		return domain.ErrUsernameTaken
	}
	if len(s.users) == 0 {
		user.IsAdmin = true
	}
	u := *user
	s.users[u.ID] = &u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if s.usernameTaken(user.Username, user.ID) {
		return domain.ErrUsernameTaken
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, *s.users[id])
	}
	return users, nil
}

func (s *Store) ListModerators(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0)
	for _, id := range s.userOrder {
		if u := s.users[id]; u.IsModerator {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *Store) usernameTaken(username, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

// Demons

func (s *Store) ListDemons(_ context.Context, listType domain.ListType) ([]domain.Demon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.demonsWhere(func(d *domain.Demon) bool {
		return listType == "" || d.ListType == listType
	}), nil
}

func (s *Store) GetDemon(_ context.Context, id string) (*domain.Demon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.demons[id]
	if !ok {
		return nil, domain.ErrDemonNotFound
	}
	cp := cloneDemon(d)
	return &cp, nil
}

func (s *Store) CreateDemon(_ context.Context, demon *domain.Demon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.demons {
		if d.ListType == demon.ListType && d.Position >= demon.Position {
			d.Position++
		}
	}
	cp := cloneDemon(demon)
	s.demons[cp.ID] = &cp
	return nil
}

func (s *Store) UpdateDemon(_ context.Context, demon *domain.Demon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.demons[demon.ID]; !ok {
		return domain.ErrDemonNotFound
	}
	if s.positionTaken(demon.ListType, demon.Position, demon.ID) {
		return domain.ErrPositionTaken
	}
	cp := cloneDemon(demon)
	s.demons[cp.ID] = &cp
	return nil
}

// DeleteDemon removes the demon with its records and pack memberships
func (s *Store) DeleteDemon(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.demons[id]; !ok {
		return domain.ErrDemonNotFound
	}
	delete(s.demons, id)

	kept := s.recordOrder[:0]
	for _, rid := range s.recordOrder {
		if s.records[rid].DemonID == id {
			delete(s.records, rid)
			continue
		}
		kept = append(kept, rid)
	}
	s.recordOrder = kept

	for packID, members := range s.packLevels {
		s.packLevels[packID] = without(members, id)
	}
	return nil
}

// ReorderTx runs fn with the store locked and restores every position and
// point value of the partition when fn fails.
func (s *Store) ReorderTx(_ context.Context, listType domain.ListType, fn func(service.PositionWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type saved struct{ position, points int }
	snapshot := make(map[string]saved)
	for id, d := range s.demons {
		if d.ListType == listType {
			snapshot[id] = saved{d.Position, d.Points}
		}
	}

	if err := fn(&positionWriter{store: s, listType: listType}); err != nil {
		for id, v := range snapshot {
			s.demons[id].Position = v.position
			s.demons[id].Points = v.points
		}
		return err
	}
	return nil
}

type positionWriter struct {
	store    *Store
	listType domain.ListType
}

func (w *positionWriter) SetPosition(_ context.Context, demonID string, position int, points *int) error {
	d, ok := w.store.demons[demonID]
	if !ok || d.ListType != w.listType {
		return domain.ErrDemonNotFound
	}
	if w.store.positionTaken(w.listType, position, demonID) {
		return domain.ErrPositionTaken
	}
	d.Position = position
	if points != nil {
		d.Points = *points
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (s *Store) positionTaken(listType domain.ListType, position int, exceptID string) bool {
	for id, d := range s.demons {
		if id != exceptID && d.ListType == listType && d.Position == position {
			return true
		}
	}
	return false
}

// demonsWhere returns copies of matching demons ordered by partition and position.
func (s *Store) demonsWhere(match func(*domain.Demon) bool) []domain.Demon {
	demons := make([]domain.Demon, 0)
	for _, d := range s.demons {
		if match(d) {
			demons = append(demons, cloneDemon(d))
		}
	}
	sort.Slice(demons, func(i, j int) bool {
		if demons[i].Position != demons[j].Position {
			return demons[i].Position < demons[j].Position
		}
		return demons[i].ListType < demons[j].ListType
	})
	return demons
}

func cloneDemon(d *domain.Demon) domain.Demon {
	cp := *d
	cp.Categories = append([]string{}, d.Categories...)
	return cp
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
