package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// leaderboardPage is a window of the ranked leaderboard
type leaderboardPage struct {
	Entries []domain.RankEntry `json:"entries"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// GetLeaderboard returns ranked players, optionally for one list
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	listType, err := listTypeParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := h.leaderboard.Leaderboard(r.Context(), listType)
	if err != nil {
		h.respondError(w, r, "failed to build leaderboard", err)
		return
	}

	page := h.leaderboard.Page(entries, limit, offset)
	h.writeSuccess(w, leaderboardPage{
		Entries: page,
		Total:   len(entries),
		Limit:   h.leaderboard.EffectiveLimit(limit),
		Offset:  offset,
	})
}

// GetPlayer returns a player's point breakdown
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	listType, err := listTypeParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	detail, err := h.leaderboard.PlayerDetail(r.Context(), chi.URLParam(r, "userID"), listType)
	if err != nil {
		h.respondError(w, r, "failed to get player", err)
		return
	}
	h.writeSuccess(w, detail)
}

// GetStats returns site-wide counters
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leaderboard.Stats(r.Context())
	if err != nil {
		h.respondError(w, r, "failed to get stats", err)
		return
	}
	h.writeSuccess(w, stats)
}
