package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/memstore"
	"github.com/demonlist-ranking/internal/service"
	"github.com/demonlist-ranking/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	store       *memstore.Store
	publisher   *recordingPublisher
	demons      *service.DemonService
	records     *service.RecordService
	packs       *service.PackService
	leaderboard *service.LeaderboardService
	users       *service.UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, memstore.New())
}

func newHarnessWithStore(t *testing.T, store service.Store) *harness {
	t.Helper()
	mem, _ := store.(*memstore.Store)
	logger := testLogger()
	pub := &recordingPublisher{}
	cfg := config.DefaultConfig()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	return &harness{
		store:       mem,
		publisher:   pub,
		demons:      service.NewDemonService(store, pub, logger),
		records:     service.NewRecordService(store, pub, logger),
		packs:       service.NewPackService(store, logger),
		leaderboard: service.NewLeaderboardService(store, &cfg.Leaderboard, logger),
		users:       service.NewUserService(store, session.NewMemoryStore(), &cfg.Auth, logger),
	}
}

// addUser stores an account directly. Users are created one millisecond apart
// so creation order is deterministic.
func (h *harness) addUser(t *testing.T, id string) *domain.User {
	t.Helper()
	users, err := h.store.ListUsers(context.Background())
	require.NoError(t, err)
	u := &domain.User{
		ID:        id,
		Username:  id,
		CreatedAt: time.Unix(1700000000, 0).Add(time.Duration(len(users)) * time.Millisecond),
	}
	require.NoError(t, h.store.CreateUser(context.Background(), u))
	return u
}

// addDemon stores a demon with explicit points, bypassing the formula.
func (h *harness) addDemon(t *testing.T, id string, listType domain.ListType, position, points int, verifierID *string) *domain.Demon {
	t.Helper()
	d := &domain.Demon{
		ID:         id,
		Name:       id,
		Creator:    "creator",
		Difficulty: domain.DifficultyExtreme,
		Position:   position,
		Points:     points,
		ListType:   listType,
		VerifierID: verifierID,
		Categories: []string{},
	}
	require.NoError(t, h.store.CreateDemon(context.Background(), d))
	return d
}

// approve submits and approves a record for user on demon.
func (h *harness) approve(t *testing.T, userID, demonID string) *domain.Record {
	t.Helper()
	ctx := context.Background()
	rec, err := h.records.Submit(ctx, userID, domain.RecordSubmission{
		DemonID:  demonID,
		VideoURL: "https://youtu.be/" + demonID,
	})
	require.NoError(t, err)
	approved, err := h.records.Approve(ctx, "moderator", rec.ID)
	require.NoError(t, err)
	return approved
}

func (h *harness) demon(t *testing.T, id string) *domain.Demon {
	t.Helper()
	d, err := h.store.GetDemon(context.Background(), id)
	require.NoError(t, err)
	return d
}

func strPtr(s string) *string { return &s }
