package memstore

import (
	"context"
	"sort"

	"github.com/demonlist-ranking/internal/domain"
)

func (s *Store) ListPacks(_ context.Context, listType domain.ListType) ([]domain.Pack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	packs := make([]domain.Pack, 0)
	for _, id := range s.packOrder {
		if p := s.packs[id]; listType == "" || p.ListType == listType {
			packs = append(packs, *p)
		}
	}
	return packs, nil
}

func (s *Store) GetPack(_ context.Context, id string) (*domain.Pack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packs[id]
	if !ok {
		return nil, domain.ErrPackNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) CreatePack(_ context.Context, pack *domain.Pack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *pack
	s.packs[p.ID] = &p
	s.packOrder = append(s.packOrder, p.ID)
	return nil
}

func (s *Store) UpdatePack(_ context.Context, pack *domain.Pack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[pack.ID]; !ok {
		return domain.ErrPackNotFound
	}
	p := *pack
	s.packs[p.ID] = &p
	return nil
}

func (s *Store) DeletePack(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[id]; !ok {
		return domain.ErrPackNotFound
	}
	delete(s.packs, id)
	delete(s.packLevels, id)
	s.packOrder = without(s.packOrder, id)
	return nil
}

func (s *Store) AddPackLevel(_ context.Context, packID, demonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packs[packID]; !ok {
		return domain.ErrPackNotFound
	}
	if _, ok := s.demons[demonID]; !ok {
		return domain.ErrDemonNotFound
	}
	for _, id := range s.packLevels[packID] {
		if id == demonID {
			return nil
		}
	}
	s.packLevels[packID] = append(s.packLevels[packID], demonID)
	return nil
}

func (s *Store) RemovePackLevel(_ context.Context, packID, demonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.packLevels[packID]
	remaining := without(members, demonID)
	if len(remaining) == len(members) {
		return domain.ErrPackLevelNotFound
	}
	s.packLevels[packID] = remaining
	return nil
}

func (s *Store) PackLevels(_ context.Context, packID string) ([]domain.Demon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make([]domain.Demon, 0, len(s.packLevels[packID]))
	for _, id := range s.packLevels[packID] {
		if d, ok := s.demons[id]; ok {
			levels = append(levels, cloneDemon(d))
		}
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Position < levels[j].Position
	})
	return levels, nil
}

func (s *Store) PackMembers(_ context.Context, listType domain.ListType) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make(map[string][]string)
	for _, id := range s.packOrder {
		if p := s.packs[id]; listType == "" || p.ListType == listType {
			members[id] = append([]string{}, s.packLevels[id]...)
		}
	}
	return members, nil
}
