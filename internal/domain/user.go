package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// User represents an account in the system
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	Country         *string   `json:"country,omitempty"`
	IsAdmin         bool      `json:"is_admin"`
	IsModerator     bool      `json:"is_moderator"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanModerate reports whether the user may review records and reorder lists.
func (u *User) CanModerate() bool {
	return u.IsAdmin || u.IsModerator
}

// Summary returns the public shape of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:              u.ID,
		Username:        u.Username,
		ProfileImageURL: u.ProfileImageURL,
		Country:         u.Country,
	}
}

// UserSummary is the public user shape embedded in rankings and records.
type UserSummary struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	Country         *string `json:"country,omitempty"`
}

// Credentials is a username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateSignup checks the rules for new accounts.
func (c *Credentials) ValidateSignup() error {
	c.Username = strings.TrimSpace(c.Username)
	if err := ValidateUsername(c.Username); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.Password) < 8 {
		return Invalid("password", "must be at least 8 characters")
	}
	return nil
}

// ValidateLogin checks the minimal shape of a login attempt.
func (c *Credentials) ValidateLogin() error {
	c.Username = strings.TrimSpace(c.Username)
	if utf8.RuneCountInString(c.Username) < 3 {
		return Invalid("username", "must be at least 3 characters")
	}
	if utf8.RuneCountInString(c.Password) < 6 {
		return Invalid("password", "must be at least 6 characters")
	}
	return nil
}

// ValidateUsername enforces the username length bounds.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 {
		return Invalid("username", "must be at least 3 characters")
	}
	if n > 30 {
		return Invalid("username", "must be at most 30 characters")
	}
	return nil
}

// SettingsUpdate changes optional profile fields. A nil field is left as is,
// an empty string clears it.
type SettingsUpdate struct {
	ProfileImageURL *string `json:"profile_image_url"`
	Country         *string `json:"country"`
}

// RoleUpdate changes a user's role flags.
type RoleUpdate struct {
	IsAdmin     *bool `json:"is_admin"`
	IsModerator *bool `json:"is_moderator"`
}
