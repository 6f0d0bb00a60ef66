package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
	"github.com/demonlist-ranking/internal/service"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the application services behind the HTTP API
type Services struct {
	Demons      *service.DemonService
	Records     *service.RecordService
	Packs       *service.PackService
	Leaderboard *service.LeaderboardService
	Users       *service.UserService
}

// Handler provides HTTP handlers for the demonlist API
type Handler struct {
	demons      *service.DemonService
	records     *service.RecordService
	packs       *service.PackService
	leaderboard *service.LeaderboardService
	users       *service.UserService
	checks      map[string]Pinger
	server      *config.ServerConfig
	auth        *config.AuthConfig
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler. checks are pinged by the readiness probe.
func NewHandler(svc Services, checks map[string]Pinger, serverCfg *config.ServerConfig, authCfg *config.AuthConfig, logger *slog.Logger) *Handler {
	return &Handler{
		demons:      svc.Demons,
		records:     svc.Records,
		packs:       svc.Packs,
		leaderboard: svc.Leaderboard,
		users:       svc.Users,
		checks:      checks,
		server:      serverCfg,
		auth:        authCfg,
		logger:      logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(h.corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.requireUser)
				r.Post("/logout", h.Logout)
				r.Post("/logout-all", h.LogoutAll)
				r.Get("/me", h.Me)
				r.Patch("/profile", h.UpdateProfile)
				r.Patch("/settings", h.UpdateSettings)
			})
		})

		// Public reads
		r.Get("/demons", h.ListDemons)
		r.Get("/demons/{demonID}", h.GetDemon)
		r.Get("/demons/{demonID}/records", h.ListDemonRecords)
		r.Get("/players/{userID}", h.GetPlayer)
		r.Get("/players/{userID}/packs", h.ListCompletedPacks)
		r.Get("/players/{userID}/packs/{packID}", h.GetPackCompletion)
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/packs", h.ListPacks)
		r.Get("/packs/{packID}", h.GetPack)
		r.Get("/stats", h.GetStats)
		r.Get("/moderators", h.ListModerators)

		// Player submissions
		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)
			r.Post("/records", h.SubmitRecord)
			r.Get("/records/mine", h.ListMyRecords)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireUser)

			// Review queue and list ordering
			r.Group(func(r chi.Router) {
				r.Use(h.requireModerator)
				r.Get("/records", h.ListRecords)
				r.Post("/records/{recordID}/approve", h.ApproveRecord)
				r.Post("/records/{recordID}/reject", h.RejectRecord)
				r.Post("/demons/reorder", h.ReorderDemons)
				r.Post("/demons/recalculate", h.RecalculatePoints)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Delete("/records/{recordID}", h.DeleteRecord)

				r.Post("/demons", h.CreateDemon)
				r.Put("/demons/{demonID}", h.UpdateDemon)
				r.Delete("/demons/{demonID}", h.DeleteDemon)

				r.Post("/packs", h.CreatePack)
				r.Put("/packs/{packID}", h.UpdatePack)
				r.Delete("/packs/{packID}", h.DeletePack)
				r.Post("/packs/{packID}/levels", h.AddPackLevel)
				r.Delete("/packs/{packID}/levels/{demonID}", h.RemovePackLevel)

				r.Get("/users", h.ListUsers)
				r.Patch("/users/{userID}/roles", h.SetUserRoles)
			})
		})
	})

	return r
}

// corsMiddleware adds CORS headers for the configured origins
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := h.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) allowedOrigin(origin string) string {
	for _, allowed := range h.server.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeCreated writes a 201 JSON response
func (h *Handler) writeCreated(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConflictError(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSubmissionClosed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Unexpected errors are
// logged and replaced by the generic internal error.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		h.writeError(w, status, domain.ErrInternalError)
		return
	}
	h.writeError(w, status, err)
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("", "malformed JSON body")
	}
	return nil
}

// listTypeParam reads the optional list_type query parameter
func listTypeParam(r *http.Request) (domain.ListType, error) {
	return domain.ParseListFilter(r.URL.Query().Get("list_type"))
}

// intParam reads a non-negative integer query parameter, returning def when absent
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.Invalid(name, "must be a non-negative integer")
	}
	return v, nil
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck pings every dependency and reports 503 when one is down
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	for name, check := range h.checks {
		if err := check.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Error:   name + " unavailable",
			})
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}
