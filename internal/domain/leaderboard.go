package domain

import (
	"sort"
)

// PointTally is a per-user sum of demon points and the number of demons it covers.
type PointTally struct {
	Points int `json:"points"`
	Count  int `json:"count"`
}

// RankEntry is a single row of the player leaderboard
type RankEntry struct {
	Rank             int         `json:"rank"`
	User             UserSummary `json:"user"`
	CompletionPoints int         `json:"completion_points"`
	VerifierPoints   int         `json:"verifier_points"`
	PackBonusPoints  int         `json:"pack_bonus_points"`
	TotalPoints      int         `json:"total_points"`
	Completions      int         `json:"completions"`
	VerifiedCount    int         `json:"verified_count"`
}

// NewRankEntry combines the three point sources for one user. Verified
// levels count as completions.
func NewRankEntry(user UserSummary, completed, verified PointTally, packBonus int) RankEntry {
	return RankEntry{
		User:             user,
		CompletionPoints: completed.Points,
		VerifierPoints:   verified.Points,
		PackBonusPoints:  packBonus,
		TotalPoints:      completed.Points + verified.Points + packBonus,
		Completions:      completed.Count + verified.Count,
		VerifiedCount:    verified.Count,
	}
}

// RankEntries drops entries without points, orders the rest by total points
// descending and assigns 1-based ranks. Ties keep their input order.
func RankEntries(entries []RankEntry) []RankEntry {
	ranked := make([]RankEntry, 0, len(entries))
	for _, e := range entries {
		if e.TotalPoints > 0 {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalPoints > ranked[j].TotalPoints
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// PlayerDetail is the point breakdown shown on a player's page
type PlayerDetail struct {
	User             UserSummary   `json:"user"`
	CompletedLevels  []Demon       `json:"completed_levels"`
	VerifiedLevels   []Demon       `json:"verified_levels"`
	CompletedPacks   []PackSummary `json:"completed_packs"`
	CompletionPoints int           `json:"completion_points"`
	VerifierPoints   int           `json:"verifier_points"`
	PackBonusPoints  int           `json:"pack_bonus_points"`
	TotalPoints      int           `json:"total_points"`
}

// Stats contains site-wide counters
type Stats struct {
	TotalDemons     int64 `json:"total_demons"`
	VerifiedRecords int64 `json:"verified_records"`
	ActivePlayers   int64 `json:"active_players"`
}
