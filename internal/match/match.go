package match

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the upstream APIs (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Status is the canonical lifecycle state of a match.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinal      Status = "final"
)

// Team identifies one side of a match.
type Team struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Side says which bench a player dressed for.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// PlayerLine is one player's scoring line for a single match.
type PlayerLine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Goals   int    `json:"goals"`
	Assists int    `json:"assists"`
	Side    Side   `json:"side,omitempty"`
}

// PeriodScore is the score of a single period (or OT/SO).
type PeriodScore struct {
	Number    int    `json:"number"`
	Type      string `json:"type"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
}

// Record is the canonical match shape every upstream provider is normalized into.
type Record struct {
	ID        string        `json:"id"`
	Date      string        `json:"date"`
	StartTime time.Time     `json:"startTime"`
	HomeTeam  Team          `json:"homeTeam"`
	AwayTeam  Team          `json:"awayTeam"`
	HomeScore int           `json:"homeScore"`
	AwayScore int           `json:"awayScore"`
	Status    Status        `json:"status"`
	Overtime  bool          `json:"overtime,omitempty"`
	Periods   []PeriodScore `json:"periods,omitempty"`
	Players   []PlayerLine  `json:"players"`
}

// Final reports whether the match result is settled.
func (r *Record) Final() bool {
	return r.Status == StatusFinal
}

// Day returns the calendar day of the match in UTC, preferring the start time.
func (r *Record) Day() string {
	if !r.StartTime.IsZero() {
		return r.StartTime.UTC().Format(DateLayout)
	}
	return r.Date
}

// Involves reports whether the team with the given id played in the match.
func (r *Record) Involves(teamID string) bool {
	return r.HomeTeam.ID == teamID || r.AwayTeam.ID == teamID
}

// StartFromDate parses a YYYY-MM-DD date as midnight UTC. The zero time is
// returned for unparseable input.
func StartFromDate(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// SortChronological orders records by start time, keeping the upstream listing
// order for equal timestamps.
func SortChronological(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
}

// IdentityPolicy decides which key identifies a player across matches.
type IdentityPolicy int

const (
	// IdentityByID keys players by upstream id, falling back to the display name
	// when no id was exposed.
	IdentityByID IdentityPolicy = iota
	// IdentityByName keys players by display name. Distinct players sharing a
	// name are merged.
	IdentityByName
)

// ParseIdentityPolicy maps a config value ("id" or "name") to a policy.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return IdentityByID, nil
	case "name":
		return IdentityByName, nil
	default:
		return IdentityByID, fmt.Errorf("unknown identity policy %q", s)
	}
}

func (p IdentityPolicy) String() string {
	if p == IdentityByName {
		return "name"
	}
	return "id"
}

// Key returns the identity key for the player line under this policy.
func (p IdentityPolicy) Key(pl PlayerLine) string {
	if p == IdentityByName || pl.ID == "" {
		if p == IdentityByID {
			slog.Debug("player without upstream id, keyed by name", "name", pl.Name)
		}
		return pl.Name
	}
	return pl.ID
}
