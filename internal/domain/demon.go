package domain

import (
	"strings"
	"time"
)

// ListType names a partition of the list. Each partition has its own
// position sequence and point curve.
type ListType string

const (
	ListDemonlist  ListType = "demonlist"
	ListChallenge  ListType = "challenge"
	ListUnrated    ListType = "unrated"
	ListUpcoming   ListType = "upcoming"
	ListPlatformer ListType = "platformer"
)

// ListTypes returns every known partition.
func ListTypes() []ListType {
	return []ListType{ListDemonlist, ListChallenge, ListUnrated, ListUpcoming, ListPlatformer}
}

// Valid reports whether l is a known partition.
func (l ListType) Valid() bool {
	switch l {
	case ListDemonlist, ListChallenge, ListUnrated, ListUpcoming, ListPlatformer:
		return true
	}
	return false
}

// ParseListFilter turns an optional query value into a partition filter.
// Empty and "all" mean no filter.
func ParseListFilter(raw string) (ListType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return "", nil
	}
	l := ListType(raw)
	if !l.Valid() {
		return "", Invalid("list_type", "unknown list type %q", raw)
	}
	return l, nil
}

// Difficulty is the demon difficulty tier.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "Easy"
	DifficultyMedium  Difficulty = "Medium"
	DifficultyHard    Difficulty = "Hard"
	DifficultyInsane  Difficulty = "Insane"
	DifficultyExtreme Difficulty = "Extreme"
)

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyInsane, DifficultyExtreme:
		return true
	}
	return false
}

// Demon is a ranked level.
type Demon struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Creator         string     `json:"creator"`
	Verifier        *string    `json:"verifier,omitempty"`
	VerifierID      *string    `json:"verifier_id,omitempty"`
	Difficulty      Difficulty `json:"difficulty"`
	Position        int        `json:"position"`
	Points          int        `json:"points"`
	VideoURL        *string    `json:"video_url,omitempty"`
	CompletionCount int        `json:"completion_count"`
	ListType        ListType   `json:"list_type"`
	EnjoymentRating *int       `json:"enjoyment_rating,omitempty"`
	Categories      []string   `json:"categories"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DemonSummary is the reduced demon shape embedded in record listings.
type DemonSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Position   int        `json:"position"`
	Difficulty Difficulty `json:"difficulty"`
	Points     int        `json:"points"`
	ListType   ListType   `json:"list_type"`
}

// Summary returns the reduced shape of d.
func (d Demon) Summary() DemonSummary {
	return DemonSummary{
		ID:         d.ID,
		Name:       d.Name,
		Position:   d.Position,
		Difficulty: d.Difficulty,
		Points:     d.Points,
		ListType:   d.ListType,
	}
}

// DemonInput is the admin-supplied shape for creating or replacing a demon.
type DemonInput struct {
	Name            string     `json:"name"`
	Creator         string     `json:"creator"`
	Verifier        *string    `json:"verifier,omitempty"`
	Difficulty      Difficulty `json:"difficulty"`
	Position        int        `json:"position"`
	Points          int        `json:"points"`
	VideoURL        *string    `json:"video_url,omitempty"`
	ListType        ListType   `json:"list_type,omitempty"`
	EnjoymentRating *int       `json:"enjoyment_rating,omitempty"`
	Categories      []string   `json:"categories,omitempty"`
}

// Normalize trims strings and applies defaults.
func (in *DemonInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Creator = strings.TrimSpace(in.Creator)
	if in.Verifier != nil {
		v := strings.TrimSpace(*in.Verifier)
		if v == "" {
			in.Verifier = nil
		} else {
			in.Verifier = &v
		}
	}
	if in.VideoURL != nil && strings.TrimSpace(*in.VideoURL) == "" {
		in.VideoURL = nil
	}
	if in.ListType == "" {
		in.ListType = ListDemonlist
	}
	if in.Categories == nil {
		in.Categories = []string{}
	}
}

// Validate checks the input shape. Call Normalize first.
func (in *DemonInput) Validate() error {
	if in.Name == "" {
		return Invalid("name", "is required")
	}
	if in.Creator == "" {
		return Invalid("creator", "is required")
	}
	if !in.Difficulty.Valid() {
		return Invalid("difficulty", "must be one of Easy, Medium, Hard, Insane, Extreme")
	}
	if in.Position <= 0 {
		return Invalid("position", "must be a positive integer")
	}
	if in.Points <= 0 {
		return Invalid("points", "must be a positive integer")
	}
	if !in.ListType.Valid() {
		return Invalid("list_type", "unknown list type %q", in.ListType)
	}
	if in.EnjoymentRating != nil && (*in.EnjoymentRating < 1 || *in.EnjoymentRating > 5) {
		return Invalid("enjoyment_rating", "must be between 1 and 5")
	}
	return nil
}

// Apply copies the input onto d. Verifier resolution is done by the caller.
func (in *DemonInput) Apply(d *Demon) {
	d.Name = in.Name
	d.Creator = in.Creator
	d.Verifier = in.Verifier
	d.Difficulty = in.Difficulty
	d.Position = in.Position
	d.Points = in.Points
	d.VideoURL = in.VideoURL
	d.ListType = in.ListType
	d.EnjoymentRating = in.EnjoymentRating
	d.Categories = in.Categories
}

// Placement assigns a demon to a 1-based position during a reorder.
type Placement struct {
	DemonID  string `json:"id"`
	Position int    `json:"position"`
}

// ValidatePlacements checks a reorder request for shape errors.
func ValidatePlacements(order []Placement) error {
	ids := make(map[string]struct{}, len(order))
	positions := make(map[int]struct{}, len(order))
	for _, p := range order {
		if p.DemonID == "" {
			return Invalid("demons", "every entry needs an id")
		}
		if p.Position <= 0 {
			return Invalid("demons", "position for %s must be a positive integer", p.DemonID)
		}
		if _, dup := ids[p.DemonID]; dup {
			return Invalid("demons", "demon %s appears more than once", p.DemonID)
		}
		if _, dup := positions[p.Position]; dup {
			return Invalid("demons", "position %d is assigned more than once", p.Position)
		}
		ids[p.DemonID] = struct{}{}
		positions[p.Position] = struct{}{}
	}
	return nil
}
