package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// SessionStore maps opaque bearer tokens to user IDs.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	// Get returns ErrUnauthenticated for unknown or expired tokens.
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
	// DeleteUser drops every session of a user.
	DeleteUser(ctx context.Context, userID string) error
}

// UserService handles accounts, sessions and role flags
type UserService struct {
	store    Store
	sessions SessionStore
	config   *config.AuthConfig
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(store Store, sessions SessionStore, cfg *config.AuthConfig, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
}

// Signup creates an account and opens a session for it. The very first
// account becomes an administrator.
func (s *UserService) Signup(ctx context.Context, creds domain.Credentials) (*domain.User, string, error) {
	if err := creds.ValidateSignup(); err != nil {
		return nil, "", err
	}

	if _, err := s.store.GetUserByUsername(ctx, creds.Username); err == nil {
		return nil, "", domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, "", fmt.Errorf("checking username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     creds.Username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	token, err := s.sessions.Create(ctx, user.ID, s.config.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("user signed up", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, token, nil
}

// Login checks credentials and opens a session
func (s *UserService) Login(ctx context.Context, creds domain.Credentials) (*domain.User, string, error) {
	if err := creds.ValidateLogin(); err != nil {
		return nil, "", err
	}

	user, err := s.store.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("loading user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID, s.config.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}
	return user, token, nil
}

// Logout drops a session
func (s *UserService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// LogoutAll drops every session of the user
func (s *UserService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its user. Role flags are always
// read fresh from the store.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns every account
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Moderators returns every account with the moderator flag
func (s *UserService) Moderators(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListModerators(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing moderators: %w", err)
	}
	return users, nil
}

// UpdateProfile renames a user
func (s *UserService) UpdateProfile(ctx context.Context, userID, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(u *domain.User) {
		u.Username = username
	})
}

// UpdateSettings changes the profile image and country
func (s *UserService) UpdateSettings(ctx context.Context, userID string, in domain.SettingsUpdate) (*domain.User, error) {
	return s.update(ctx, userID, func(u *domain.User) {
		if in.ProfileImageURL != nil {
			u.ProfileImageURL = optional(*in.ProfileImageURL)
		}
		if in.Country != nil {
			u.Country = optional(strings.ToUpper(*in.Country))
		}
	})
}

// SetRoles changes the admin and moderator flags of a user
func (s *UserService) SetRoles(ctx context.Context, actorID, userID string, in domain.RoleUpdate) (*domain.User, error) {
	user, err := s.update(ctx, userID, func(u *domain.User) {
		if in.IsAdmin != nil {
			u.IsAdmin = *in.IsAdmin
		}
		if in.IsModerator != nil {
			u.IsModerator = *in.IsModerator
		}
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user roles changed",
		"user_id", userID,
		"actor_id", actorID,
		"is_admin", user.IsAdmin,
		"is_moderator", user.IsModerator,
	)
	return user, nil
}

func (s *UserService) update(ctx context.Context, userID string, mutate func(*domain.User)) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	mutate(user)
	user.UpdatedAt = time.Now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

// optional turns an empty string into nil.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
