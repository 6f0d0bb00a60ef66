package domain

import (
	"strings"
	"time"
)

// Pack is a curated bundle of demons worth a flat bonus once all of them are completed.
type Pack struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	ListType  ListType  `json:"list_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackWithLevels is a pack together with its member demons ordered by position.
type PackWithLevels struct {
	Pack
	Levels []Demon `json:"levels"`
}

// PackSummary is the shape reported for completed packs.
type PackSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// PackInput is the admin-supplied shape for creating a pack.
type PackInput struct {
	Name     string   `json:"name"`
	Points   int      `json:"points"`
	ListType ListType `json:"list_type"`
}

// Validate checks the pack shape.
func (in *PackInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Invalid("name", "pack name required")
	}
	if in.Points <= 0 {
		return Invalid("points", "points must be positive")
	}
	if !in.ListType.Valid() {
		return Invalid("list_type", "unknown list type %q", in.ListType)
	}
	return nil
}

// PackUpdate changes a pack's name and bonus.
type PackUpdate struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Validate checks the update shape.
func (in *PackUpdate) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Invalid("name", "pack name required")
	}
	if in.Points <= 0 {
		return Invalid("points", "points must be positive")
	}
	return nil
}

// PackCompleted reports whether every member demon is credited. A pack with
// no members is never completed.
func PackCompleted(memberIDs []string, credited map[string]struct{}) bool {
	if len(memberIDs) == 0 {
		return false
	}
	for _, id := range memberIDs {
		if _, ok := credited[id]; !ok {
			return false
		}
	}
	return true
}
