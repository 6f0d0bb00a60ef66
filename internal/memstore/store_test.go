package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/service"
)

func addDemon(t *testing.T, s *Store, id string, listType domain.ListType, position, points int) {
	t.Helper()
	require.NoError(t, s.CreateDemon(context.Background(), &domain.Demon{
		ID:       id,
		Name:     id,
		ListType: listType,
		Position: position,
		Points:   points,
	}))
}

func positions(t *testing.T, s *Store, listType domain.ListType) map[string]int {
	t.Helper()
	demons, err := s.ListDemons(context.Background(), listType)
	require.NoError(t, err)
	out := make(map[string]int, len(demons))
	for _, d := range demons {
		out[d.ID] = d.Position
	}
	return out
}

func TestCreateUser_FirstIsAdmin(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := &domain.User{ID: "u1", Username: "alice"}
	second := &domain.User{ID: "u2", Username: "bob"}
	require.NoError(t, s.CreateUser(ctx, first))
	require.NoError(t, s.CreateUser(ctx, second))

	assert.True(t, first.IsAdmin)
	assert.False(t, second.IsAdmin)

	err := s.CreateUser(ctx, &domain.User{ID: "u3", Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestCreateDemon_ShiftsPartition(t *testing.T) {
	s := New()
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	addDemon(t, s, "b", domain.ListDemonlist, 2, 298)
	addDemon(t, s, "c", domain.ListChallenge, 1, 300)

	addDemon(t, s, "new", domain.ListDemonlist, 1, 300)

	assert.Equal(t, map[string]int{"new": 1, "a": 2, "b": 3}, positions(t, s, domain.ListDemonlist))
	assert.Equal(t, map[string]int{"c": 1}, positions(t, s, domain.ListChallenge))
}

func TestUpdateDemon_PositionTaken(t *testing.T) {
	ctx := context.Background()
	s := New()
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	addDemon(t, s, "b", domain.ListDemonlist, 2, 298)

	b, err := s.GetDemon(ctx, "b")
	require.NoError(t, err)
	b.Position = 1
	assert.ErrorIs(t, s.UpdateDemon(ctx, b), domain.ErrPositionTaken)
}

func TestReorderTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	addDemon(t, s, "b", domain.ListDemonlist, 2, 298)

	boom := errors.New("boom")
	err := s.ReorderTx(ctx, domain.ListDemonlist, func(w service.PositionWriter) error {
		pts := 5
		require.NoError(t, w.SetPosition(ctx, "a", 10, &pts))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := s.GetDemon(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 300, a.Points)
}

func TestReorderTx_RejectsCollisionAndForeignDemon(t *testing.T) {
	ctx := context.Background()
	s := New()
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	addDemon(t, s, "b", domain.ListDemonlist, 2, 298)
	addDemon(t, s, "c", domain.ListChallenge, 1, 300)

	err := s.ReorderTx(ctx, domain.ListDemonlist, func(w service.PositionWriter) error {
		return w.SetPosition(ctx, "a", 2, nil)
	})
	assert.ErrorIs(t, err, domain.ErrPositionTaken)

	err = s.ReorderTx(ctx, domain.ListDemonlist, func(w service.PositionWriter) error {
		return w.SetPosition(ctx, "c", 5, nil)
	})
	assert.ErrorIs(t, err, domain.ErrDemonNotFound)
}

func TestRecordCounters(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice"}))
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)

	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "r1", UserID: "u1", DemonID: "a", Status: domain.RecordPending, SubmittedAt: time.Now(),
	}))

	_, err := s.ReviewRecord(ctx, "r1", domain.RecordApproved, "u1", time.Now())
	require.NoError(t, err)
	_, err = s.ReviewRecord(ctx, "r1", domain.RecordRejected, "u1", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	d, _ := s.GetDemon(ctx, "a")
	assert.Equal(t, 1, d.CompletionCount)

	deleted, err := s.DeleteRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RecordApproved, deleted.Status)

	d, _ = s.GetDemon(ctx, "a")
	assert.Equal(t, 0, d.CompletionCount)

	_, err = s.DeleteRecord(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestDeleteRecord_ClampsCounter(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice"}))
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "r1", UserID: "u1", DemonID: "a", Status: domain.RecordApproved, SubmittedAt: time.Now(),
	}))

	_, err := s.DeleteRecord(ctx, "r1")
	require.NoError(t, err)

	d, _ := s.GetDemon(ctx, "a")
	assert.Equal(t, 0, d.CompletionCount)
}

func TestDeleteDemon_Cascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice"}))
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)
	addDemon(t, s, "b", domain.ListDemonlist, 2, 298)
	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "r1", UserID: "u1", DemonID: "a", Status: domain.RecordPending, SubmittedAt: time.Now(),
	}))
	require.NoError(t, s.CreatePack(ctx, &domain.Pack{ID: "p1", Name: "Pack", Points: 10, ListType: domain.ListDemonlist}))
	require.NoError(t, s.AddPackLevel(ctx, "p1", "a"))
	require.NoError(t, s.AddPackLevel(ctx, "p1", "b"))
	require.NoError(t, s.AddPackLevel(ctx, "p1", "b"))

	require.NoError(t, s.DeleteDemon(ctx, "a"))

	_, err := s.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	members, err := s.PackMembers(ctx, domain.ListDemonlist)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members["p1"])
}

func TestListRecords_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice"}))
	addDemon(t, s, "a", domain.ListDemonlist, 1, 300)

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.CreateRecord(ctx, &domain.Record{
			ID: id, UserID: "u1", DemonID: "a", Status: domain.RecordPending,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := s.ListRecords(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "old", records[2].ID)
	assert.Equal(t, "alice", records[0].User.Username)
	require.NotNil(t, records[0].Demon)
	assert.Equal(t, "a", records[0].Demon.ID)
}
