package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// SubmitRecord creates a pending record for the current user
func (h *Handler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	var submission domain.RecordSubmission
	if err := decodeJSON(r, &submission); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	record, err := h.records.Submit(r.Context(), currentUser(r).ID, submission)
	if err != nil {
		h.respondError(w, r, "failed to submit record", err)
		return
	}
	h.writeCreated(w, record)
}

// ListMyRecords returns the current user's submissions
func (h *Handler) ListMyRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.ListByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		h.respondError(w, r, "failed to list records", err)
		return
	}
	h.writeSuccess(w, records)
}

// ListRecords returns the review queue, optionally filtered by status
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	status := domain.RecordStatus(r.URL.Query().Get("status"))
	records, err := h.records.List(r.Context(), status)
	if err != nil {
		h.respondError(w, r, "failed to list records", err)
		return
	}
	h.writeSuccess(w, records)
}

// ApproveRecord approves a pending record
func (h *Handler) ApproveRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.records.Approve(r.Context(), currentUser(r).ID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.respondError(w, r, "failed to approve record", err)
		return
	}
	h.writeSuccess(w, record)
}

// RejectRecord rejects a pending record
func (h *Handler) RejectRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.records.Reject(r.Context(), currentUser(r).ID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.respondError(w, r, "failed to reject record", err)
		return
	}
	h.writeSuccess(w, record)
}

// DeleteRecord removes a record in any state
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "recordID")); err != nil {
		h.respondError(w, r, "failed to delete record", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}
