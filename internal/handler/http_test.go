package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/memstore"
	"github.com/demonlist-ranking/internal/service"
	"github.com/demonlist-ranking/internal/session"
)

type testServer struct {
	router http.Handler
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Server.AllowedOrigins = []string{"https://demonlist.example"}

	store := memstore.New()
	svc := Services{
		Demons:      service.NewDemonService(store, nil, logger),
		Records:     service.NewRecordService(store, nil, logger),
		Packs:       service.NewPackService(store, logger),
		Leaderboard: service.NewLeaderboardService(store, &cfg.Leaderboard, logger),
		Users:       service.NewUserService(store, session.NewMemoryStore(), &cfg.Auth, logger),
	}
	h := NewHandler(svc, checks, &cfg.Server, &cfg.Auth, logger)
	return &testServer{router: h.Router()}
}

// do sends a request and decodes the envelope. data is decoded into out when non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) (int, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return rec.Code, APIResponse{Success: envelope.Success, Error: envelope.Error}
}

func (s *testServer) signup(t *testing.T, username string) (string, domain.User) {
	t.Helper()
	var resp struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	status, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", domain.Credentials{
		Username: username,
		Password: "correct horse",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func (s *testServer) createDemon(t *testing.T, token, name string, listType domain.ListType, position int) domain.Demon {
	t.Helper()
	var demon domain.Demon
	status, resp := s.do(t, http.MethodPost, "/api/v1/admin/demons", token, domain.DemonInput{
		Name:       name,
		Creator:    "creator",
		Difficulty: domain.DifficultyExtreme,
		Position:   position,
		Points:     100,
		ListType:   listType,
	}, &demon)
	require.Equal(t, http.StatusCreated, status, resp.Error)
	return demon
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{"store": memstore.New()})
	status, resp := s.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status, _ = s.do(t, http.MethodGet, "/ready", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	down := newTestServer(t, map[string]Pinger{"postgres": failingPinger{}})
	status, resp = down.do(t, http.MethodGet, "/ready", "", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "postgres unavailable", resp.Error)
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	player, _ := s.signup(t, "player")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous submit", http.MethodPost, "/api/v1/records", "", http.StatusUnauthorized},
		{"anonymous me", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/auth/me", "garbage", http.StatusUnauthorized},
		{"player review queue", http.MethodGet, "/api/v1/admin/records", player, http.StatusForbidden},
		{"player reorder", http.MethodPost, "/api/v1/admin/demons/reorder", player, http.StatusForbidden},
		{"player users", http.MethodGet, "/api/v1/admin/users", player, http.StatusForbidden},
		{"anonymous admin", http.MethodGet, "/api/v1/admin/users", "", http.StatusUnauthorized},
		{"admin users", http.MethodGet, "/api/v1/admin/users", admin, http.StatusOK},
		{"public leaderboard", http.MethodGet, "/api/v1/leaderboard", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, tt.method, tt.path, tt.token, nil, nil)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.want == http.StatusOK, resp.Success)
		})
	}
}

func TestModeratorCanReviewButNotManageDemons(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	modToken, mod := s.signup(t, "moderator")

	status, _ := s.do(t, http.MethodPatch, "/api/v1/admin/users/"+mod.ID+"/roles", admin,
		map[string]bool{"is_moderator": true}, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/records?status=pending", modToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/demons", modToken, domain.DemonInput{}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var mods []domain.UserSummary
	status, _ = s.do(t, http.MethodGet, "/api/v1/moderators", "", nil, &mods)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mods, 1)
	assert.Equal(t, "moderator", mods[0].Username)
}

func TestRecordFlow(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	player, user := s.signup(t, "player")
	demon := s.createDemon(t, admin, "Tartarus", domain.ListDemonlist, 1)
	assert.Equal(t, 1, demon.Position)

	var record domain.Record
	status, resp := s.do(t, http.MethodPost, "/api/v1/records", player, domain.RecordSubmission{
		DemonID:  demon.ID,
		VideoURL: "https://youtu.be/tartarus",
	}, &record)
	require.Equal(t, http.StatusCreated, status, resp.Error)
	assert.Equal(t, domain.RecordPending, record.Status)

	var queue []domain.RecordDetail
	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/records?status=pending", admin, nil, &queue)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, queue, 1)
	assert.Equal(t, "player", queue[0].User.Username)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/records/"+record.ID+"/approve", admin, nil, &record)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.RecordApproved, record.Status)

	status, resp = s.do(t, http.MethodPost, "/api/v1/admin/records/"+record.ID+"/reject", admin, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.ErrInvalidTransition.Error(), resp.Error)

	var got domain.Demon
	status, _ = s.do(t, http.MethodGet, "/api/v1/demons/"+demon.ID, "", nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, got.CompletionCount)

	var page leaderboardPage
	status, _ = s.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil, &page)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, user.ID, page.Entries[0].User.ID)
	assert.Equal(t, 100, page.Entries[0].TotalPoints)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/admin/records/"+record.ID, admin, nil, nil)
	require.Equal(t, http.StatusOK, status)
	s.do(t, http.MethodGet, "/api/v1/demons/"+demon.ID, "", nil, &got)
	assert.Equal(t, 0, got.CompletionCount)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	player, _ := s.signup(t, "player")
	closed := s.createDemon(t, admin, "Far Away", domain.ListChallenge, 101)

	status, _ := s.do(t, http.MethodGet, "/api/v1/demons/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, resp := s.do(t, http.MethodPost, "/api/v1/records", player, domain.RecordSubmission{
		DemonID:  closed.ID,
		VideoURL: "https://youtu.be/x",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, domain.ErrSubmissionClosed.Error(), resp.Error)

	status, _ = s.do(t, http.MethodPost, "/api/v1/records", player, domain.RecordSubmission{
		DemonID:  closed.ID,
		VideoURL: "not a url",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", domain.Credentials{
		Username: "player",
		Password: "another password",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.Credentials{
		Username: "player",
		Password: "wrong password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/demons?list_type=classic", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=-1", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReorderEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	a := s.createDemon(t, admin, "A", domain.ListDemonlist, 1)
	b := s.createDemon(t, admin, "B", domain.ListDemonlist, 2)

	status, resp := s.do(t, http.MethodPost, "/api/v1/admin/demons/reorder", admin, reorderRequest{
		Demons: []domain.Placement{{DemonID: b.ID, Position: 1}, {DemonID: a.ID, Position: 2}},
	}, nil)
	require.Equal(t, http.StatusOK, status, resp.Error)

	var demons []domain.Demon
	status, _ = s.do(t, http.MethodGet, "/api/v1/demons?list_type=demonlist", "", nil, &demons)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, demons, 2)
	assert.Equal(t, b.ID, demons[0].ID)
	assert.Equal(t, 300, demons[0].Points)
	assert.Equal(t, a.ID, demons[1].ID)
	assert.Equal(t, 298, demons[1].Points)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/demons/reorder", admin, reorderRequest{
		Demons: []domain.Placement{{DemonID: a.ID, Position: 1}, {DemonID: b.ID, Position: 1}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLeaderboardPaging(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, "founder")
	demon := s.createDemon(t, admin, "A", domain.ListDemonlist, 1)
	for _, name := range []string{"one", "two", "three"} {
		token, _ := s.signup(t, name)
		var record domain.Record
		status, _ := s.do(t, http.MethodPost, "/api/v1/records", token, domain.RecordSubmission{
			DemonID: demon.ID, VideoURL: "https://youtu.be/" + name,
		}, &record)
		require.Equal(t, http.StatusCreated, status)
		status, _ = s.do(t, http.MethodPost, "/api/v1/admin/records/"+record.ID+"/approve", admin, nil, nil)
		require.Equal(t, http.StatusOK, status)
	}

	var page leaderboardPage
	status, _ := s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=2&offset=1", "", nil, &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 2, page.Entries[0].Rank)
	assert.Equal(t, "two", page.Entries[0].User.Username)

	status, _ = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=5000", "", nil, &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1000, page.Limit)
}

func TestPackEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	admin, founder := s.signup(t, "founder")
	demon := s.createDemon(t, admin, "A", domain.ListDemonlist, 1)

	var pack domain.Pack
	status, resp := s.do(t, http.MethodPost, "/api/v1/admin/packs", admin, map[string]interface{}{
		"name": "Starter", "points": 25,
	}, &pack)
	require.Equal(t, http.StatusCreated, status, resp.Error)
	assert.Equal(t, domain.ListDemonlist, pack.ListType)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/packs/"+pack.ID+"/levels", admin,
		map[string]string{"demon_id": demon.ID}, nil)
	require.Equal(t, http.StatusOK, status)

	var completion struct {
		Completed bool `json:"completed"`
	}
	status, _ = s.do(t, http.MethodGet, "/api/v1/players/"+founder.ID+"/packs/"+pack.ID, "", nil, &completion)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, completion.Completed)

	var record domain.Record
	s.do(t, http.MethodPost, "/api/v1/records", admin, domain.RecordSubmission{
		DemonID: demon.ID, VideoURL: "https://youtu.be/a",
	}, &record)
	s.do(t, http.MethodPost, "/api/v1/admin/records/"+record.ID+"/approve", admin, nil, nil)

	s.do(t, http.MethodGet, "/api/v1/players/"+founder.ID+"/packs/"+pack.ID, "", nil, &completion)
	assert.True(t, completion.Completed)

	var packs []domain.PackSummary
	status, _ = s.do(t, http.MethodGet, "/api/v1/players/"+founder.ID+"/packs", "", nil, &packs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, packs, 1)
	assert.Equal(t, 25, packs[0].Points)

	status, _ = s.do(t, http.MethodGet, "/api/v1/players/missing/packs", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionCookieAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.signup(t, "player")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	status, _ := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	req.Header.Set("Origin", "https://demonlist.example")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://demonlist.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("name", "is required"), http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrPackLevelNotFound, http.StatusNotFound},
		{domain.ErrPositionTaken, http.StatusConflict},
		{domain.ErrSubmissionClosed, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
