package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// ListDemons returns demons ordered by position
func (h *Handler) ListDemons(w http.ResponseWriter, r *http.Request) {
	listType, err := listTypeParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	demons, err := h.demons.List(r.Context(), listType)
	if err != nil {
		h.respondError(w, r, "failed to list demons", err)
		return
	}
	h.writeSuccess(w, demons)
}

// GetDemon returns a demon by ID
func (h *Handler) GetDemon(w http.ResponseWriter, r *http.Request) {
	demon, err := h.demons.Get(r.Context(), chi.URLParam(r, "demonID"))
	if err != nil {
		h.respondError(w, r, "failed to get demon", err)
		return
	}
	h.writeSuccess(w, demon)
}

// ListDemonRecords returns the approved records of a demon
func (h *Handler) ListDemonRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.ListApprovedForDemon(r.Context(), chi.URLParam(r, "demonID"))
	if err != nil {
		h.respondError(w, r, "failed to list demon records", err)
		return
	}
	h.writeSuccess(w, records)
}

// CreateDemon adds a demon to a list
func (h *Handler) CreateDemon(w http.ResponseWriter, r *http.Request) {
	var in domain.DemonInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	demon, err := h.demons.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "failed to create demon", err)
		return
	}
	h.writeCreated(w, demon)
}

// UpdateDemon replaces a demon's editable fields
func (h *Handler) UpdateDemon(w http.ResponseWriter, r *http.Request) {
	var in domain.DemonInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	demon, err := h.demons.Update(r.Context(), chi.URLParam(r, "demonID"), in)
	if err != nil {
		h.respondError(w, r, "failed to update demon", err)
		return
	}
	h.writeSuccess(w, demon)
}

// DeleteDemon removes a demon
func (h *Handler) DeleteDemon(w http.ResponseWriter, r *http.Request) {
	if err := h.demons.Delete(r.Context(), chi.URLParam(r, "demonID")); err != nil {
		h.respondError(w, r, "failed to delete demon", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// reorderRequest is the body of a reorder call
type reorderRequest struct {
	Demons   []domain.Placement `json:"demons"`
	ListType domain.ListType    `json:"list_type"`
}

// ReorderDemons assigns new positions within a list and recomputes points
func (h *Handler) ReorderDemons(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ListType == "" {
		req.ListType = domain.ListDemonlist
	}

	if err := h.demons.Reorder(r.Context(), currentUser(r).ID, req.ListType, req.Demons); err != nil {
		h.respondError(w, r, "failed to reorder demons", err)
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"status":    "reordered",
		"list_type": req.ListType,
		"count":     len(req.Demons),
	})
}

// RecalculatePoints rewrites the points of a list from current positions
func (h *Handler) RecalculatePoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListType domain.ListType `json:"list_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ListType == "" {
		req.ListType = domain.ListDemonlist
	}

	changed, err := h.demons.Recalculate(r.Context(), req.ListType)
	if err != nil {
		h.respondError(w, r, "failed to recalculate points", err)
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"list_type": req.ListType,
		"changed":   changed,
	})
}
