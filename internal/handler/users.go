package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demonlist-ranking/internal/domain"
)

// sessionResponse is returned by signup and login
type sessionResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Signup creates an account and opens a session
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, token, err := h.users.Signup(r.Context(), creds)
	if err != nil {
		h.respondError(w, r, "failed to sign up", err)
		return
	}

	h.setSessionCookie(w, token)
	h.writeCreated(w, sessionResponse{Token: token, User: user})
}

// Login opens a session for valid credentials
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, token, err := h.users.Login(r.Context(), creds)
	if err != nil {
		h.respondError(w, r, "failed to log in", err)
		return
	}

	h.setSessionCookie(w, token)
	h.writeSuccess(w, sessionResponse{Token: token, User: user})
}

// Logout drops the current session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(r.Context(), currentToken(r)); err != nil {
		h.respondError(w, r, "failed to log out", err)
		return
	}
	h.clearSessionCookie(w)
	h.writeSuccess(w, map[string]string{"status": "logged_out"})
}

// LogoutAll drops every session of the current user
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.users.LogoutAll(r.Context(), currentUser(r).ID); err != nil {
		h.respondError(w, r, "failed to log out everywhere", err)
		return
	}
	h.clearSessionCookie(w)
	h.writeSuccess(w, map[string]string{"status": "logged_out"})
}

// Me returns the current user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, currentUser(r))
}

// UpdateProfile changes the current user's username
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), currentUser(r).ID, req.Username)
	if err != nil {
		h.respondError(w, r, "failed to update profile", err)
		return
	}
	h.writeSuccess(w, user)
}

// UpdateSettings changes the current user's profile image and country
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.UpdateSettings(r.Context(), currentUser(r).ID, req)
	if err != nil {
		h.respondError(w, r, "failed to update settings", err)
		return
	}
	h.writeSuccess(w, user)
}

// ListModerators returns every moderator
func (h *Handler) ListModerators(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Moderators(r.Context())
	if err != nil {
		h.respondError(w, r, "failed to list moderators", err)
		return
	}
	summaries := make([]domain.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	h.writeSuccess(w, summaries)
}

// ListUsers returns every account with role flags
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.respondError(w, r, "failed to list users", err)
		return
	}
	h.writeSuccess(w, users)
}

// SetUserRoles changes a user's admin and moderator flags
func (h *Handler) SetUserRoles(w http.ResponseWriter, r *http.Request) {
	var req domain.RoleUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.SetRoles(r.Context(), currentUser(r).ID, chi.URLParam(r, "userID"), req)
	if err != nil {
		h.respondError(w, r, "failed to set roles", err)
		return
	}
	h.writeSuccess(w, user)
}
