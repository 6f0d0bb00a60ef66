package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/memstore"
)

// creditFailingStore fails every pack credit lookup
type creditFailingStore struct {
	*memstore.Store
}

func (creditFailingStore) CreditedDemonIDs(context.Context, string) (map[string]struct{}, error) {
	return nil, errors.New("credit lookup failed")
}

func TestLeaderboard_SumsAllSources(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	player := h.addUser(t, "player")
	h.addUser(t, "lurker")
	h.addDemon(t, "a", domain.ListDemonlist, 10, 50, nil)
	h.addDemon(t, "b", domain.ListDemonlist, 11, 80, nil)
	h.addDemon(t, "v", domain.ListDemonlist, 12, 20, &player.ID)
	h.approve(t, player.ID, "a")
	h.approve(t, player.ID, "b")

	entries, err := h.leaderboard.Leaderboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, 1, e.Rank)
	assert.Equal(t, "player", e.User.Username)
	assert.Equal(t, 130, e.CompletionPoints)
	assert.Equal(t, 20, e.VerifierPoints)
	assert.Equal(t, 0, e.PackBonusPoints)
	assert.Equal(t, 150, e.TotalPoints)
	assert.Equal(t, 3, e.Completions)
	assert.Equal(t, 1, e.VerifiedCount)
}

func TestLeaderboard_IgnoresUnapprovedRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "player")
	h.addDemon(t, "a", domain.ListDemonlist, 1, 300, nil)

	rec, err := h.records.Submit(ctx, u.ID, domain.RecordSubmission{DemonID: "a", VideoURL: "https://youtu.be/a"})
	require.NoError(t, err)
	entries, err := h.leaderboard.Leaderboard(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = h.records.Reject(ctx, "moderator", rec.ID)
	require.NoError(t, err)
	entries, err = h.leaderboard.Leaderboard(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLeaderboard_TiesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := h.addUser(t, "first")
	second := h.addUser(t, "second")
	third := h.addUser(t, "third")
	h.addDemon(t, "a", domain.ListDemonlist, 10, 150, nil)
	h.addDemon(t, "b", domain.ListDemonlist, 20, 90, nil)

	h.approve(t, third.ID, "b")
	h.approve(t, second.ID, "a")
	h.approve(t, first.ID, "a")

	entries, err := h.leaderboard.Leaderboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.User.Username
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.Equal(t, []int{150, 150, 90}, []int{entries[0].TotalPoints, entries[1].TotalPoints, entries[2].TotalPoints})
}

func TestLeaderboard_PackBonus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "player")
	h.addDemon(t, "a", domain.ListDemonlist, 1, 300, nil)
	h.addDemon(t, "b", domain.ListDemonlist, 2, 298, &u.ID)
	newPack(t, h, "Top two", 50, domain.ListDemonlist, "a", "b")
	h.approve(t, u.ID, "a")

	entries, err := h.leaderboard.Leaderboard(ctx, domain.ListDemonlist)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 50, entries[0].PackBonusPoints)
	assert.Equal(t, 648, entries[0].TotalPoints)

	challenge, err := h.leaderboard.Leaderboard(ctx, domain.ListChallenge)
	require.NoError(t, err)
	assert.Empty(t, challenge)
}

func TestLeaderboard_PackFailureCostsOnlyTheBonus(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	h := newHarnessWithStore(t, creditFailingStore{Store: mem})
	h.store = mem

	u := h.addUser(t, "player")
	h.addDemon(t, "a", domain.ListDemonlist, 1, 300, nil)
	newPack(t, h, "Single", 50, domain.ListDemonlist, "a")
	h.approve(t, u.ID, "a")

	entries, err := h.leaderboard.Leaderboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].PackBonusPoints)
	assert.Equal(t, 300, entries[0].TotalPoints)

	detail, err := h.leaderboard.PlayerDetail(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, detail.CompletedPacks)
	assert.Equal(t, 300, detail.TotalPoints)
}

func TestLeaderboard_Page(t *testing.T) {
	h := newHarness(t)
	entries := make([]domain.RankEntry, 5)
	for i := range entries {
		entries[i].Rank = i + 1
	}

	page := h.leaderboard.Page(entries, 2, 1)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].Rank)

	assert.Len(t, h.leaderboard.Page(entries, 0, 0), 5)
	assert.Empty(t, h.leaderboard.Page(entries, 10, 5))
	assert.Len(t, h.leaderboard.Page(entries, 10, -3), 5)

	assert.Equal(t, 100, h.leaderboard.EffectiveLimit(0))
	assert.Equal(t, 1000, h.leaderboard.EffectiveLimit(5000))
	assert.Equal(t, 25, h.leaderboard.EffectiveLimit(25))
}

func TestLeaderboard_PlayerDetail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "player")
	h.addDemon(t, "a", domain.ListDemonlist, 1, 300, nil)
	h.addDemon(t, "c", domain.ListChallenge, 1, 300, &u.ID)
	pack := newPack(t, h, "Single", 40, domain.ListDemonlist, "a")
	h.approve(t, u.ID, "a")

	detail, err := h.leaderboard.PlayerDetail(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "player", detail.User.Username)
	require.Len(t, detail.CompletedLevels, 1)
	require.Len(t, detail.VerifiedLevels, 1)
	assert.Equal(t, []domain.PackSummary{{ID: pack.ID, Name: "Single", Points: 40}}, detail.CompletedPacks)
	assert.Equal(t, 300, detail.CompletionPoints)
	assert.Equal(t, 300, detail.VerifierPoints)
	assert.Equal(t, 640, detail.TotalPoints)

	demonlist, err := h.leaderboard.PlayerDetail(ctx, u.ID, domain.ListDemonlist)
	require.NoError(t, err)
	assert.Empty(t, demonlist.VerifiedLevels)
	assert.Equal(t, 340, demonlist.TotalPoints)

	_, err = h.leaderboard.PlayerDetail(ctx, "missing", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLeaderboard_Stats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.addUser(t, "player")
	h.addUser(t, "other")
	h.addDemon(t, "a", domain.ListDemonlist, 1, 300, nil)
	h.addDemon(t, "b", domain.ListDemonlist, 2, 298, &u.ID)
	h.approve(t, u.ID, "a")
	_, err := h.records.Submit(ctx, u.ID, domain.RecordSubmission{DemonID: "b", VideoURL: "https://youtu.be/b"})
	require.NoError(t, err)

	stats, err := h.leaderboard.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{TotalDemons: 2, VerifiedRecords: 2, ActivePlayers: 2}, stats)
}
