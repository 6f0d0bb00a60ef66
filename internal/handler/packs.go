package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// ListPacks returns packs with their levels
func (h *Handler) ListPacks(w http.ResponseWriter, r *http.Request) {
	listType, err := listTypeParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	packs, err := h.packs.List(r.Context(), listType)
	if err != nil {
		h.respondError(w, r, "failed to list packs", err)
		return
	}
	h.writeSuccess(w, packs)
}

// GetPack returns one pack with its levels
func (h *Handler) GetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := h.packs.Get(r.Context(), chi.URLParam(r, "packID"))
	if err != nil {
		h.respondError(w, r, "failed to get pack", err)
		return
	}
	h.writeSuccess(w, pack)
}

// CreatePack adds a pack
func (h *Handler) CreatePack(w http.ResponseWriter, r *http.Request) {
	var in domain.PackInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if in.ListType == "" {
		in.ListType = domain.ListDemonlist
	}

	pack, err := h.packs.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "failed to create pack", err)
		return
	}
	h.writeCreated(w, pack)
}

// UpdatePack renames a pack and changes its bonus
func (h *Handler) UpdatePack(w http.ResponseWriter, r *http.Request) {
	var in domain.PackUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	pack, err := h.packs.Update(r.Context(), chi.URLParam(r, "packID"), in)
	if err != nil {
		h.respondError(w, r, "failed to update pack", err)
		return
	}
	h.writeSuccess(w, pack)
}

// DeletePack removes a pack
func (h *Handler) DeletePack(w http.ResponseWriter, r *http.Request) {
	if err := h.packs.Delete(r.Context(), chi.URLParam(r, "packID")); err != nil {
		h.respondError(w, r, "failed to delete pack", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// AddPackLevel adds a demon to a pack
func (h *Handler) AddPackLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DemonID string `json:"demon_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.packs.AddLevel(r.Context(), chi.URLParam(r, "packID"), req.DemonID); err != nil {
		h.respondError(w, r, "failed to add pack level", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "added"})
}

// RemovePackLevel removes a demon from a pack
func (h *Handler) RemovePackLevel(w http.ResponseWriter, r *http.Request) {
	err := h.packs.RemoveLevel(r.Context(), chi.URLParam(r, "packID"), chi.URLParam(r, "demonID"))
	if err != nil {
		h.respondError(w, r, "failed to remove pack level", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "removed"})
}

// ListCompletedPacks returns the packs a player has completed
func (h *Handler) ListCompletedPacks(w http.ResponseWriter, r *http.Request) {
	listType, err := listTypeParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if _, err := h.users.Get(r.Context(), userID); err != nil {
		h.respondError(w, r, "failed to get player", err)
		return
	}

	packs, err := h.packs.CompletedPacks(r.Context(), userID, listType)
	if err != nil {
		h.respondError(w, r, "failed to list completed packs", err)
		return
	}
	h.writeSuccess(w, packs)
}

// GetPackCompletion reports whether a player has completed a pack
func (h *Handler) GetPackCompletion(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	packID := chi.URLParam(r, "packID")

	if _, err := h.users.Get(r.Context(), userID); err != nil {
		h.respondError(w, r, "failed to get player", err)
		return
	}

	completed, err := h.packs.IsPackCompleted(r.Context(), userID, packID)
	if err != nil {
		h.respondError(w, r, "failed to evaluate pack", err)
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"user_id":   userID,
		"pack_id":   packID,
		"completed": completed,
	})
}
