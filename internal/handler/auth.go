package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/demonlist-ranking/internal/domain"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "session_token"
)

// sessionToken reads the bearer token, falling back to the session cookie
func (h *Handler) sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(h.auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// authenticate attaches the session's user to the request context when the
// request carries a valid token. Anonymous requests pass through.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.users.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthenticated) {
				h.respondError(w, r, "failed to authenticate", err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user, if any
func currentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userContextKey).(*domain.User)
	return user
}

func currentToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}

// requireUser rejects anonymous requests with 401
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireModerator allows moderators and administrators
func (h *Handler) requireModerator(next http.Handler) http.Handler {
	return h.requireRole(next, (*domain.User).CanModerate)
}

// requireAdmin allows administrators only
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return h.requireRole(next, func(u *domain.User) bool { return u.IsAdmin })
}

func (h *Handler) requireRole(next http.Handler, allowed func(*domain.User) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
			return
		}
		if !allowed(user) {
			h.writeError(w, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setSessionCookie mirrors the token into an HTTP-only cookie
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
