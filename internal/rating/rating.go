// Package rating folds settled matches into running team and player ratings.
package rating

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pitr77/extraliga/internal/match"
)

// Config holds the point values of the rating rule.
type Config struct {
	StartRating        int64 `yaml:"start_rating"`
	GoalPoints         int64 `yaml:"goal_points"`
	WinPoints          int64 `yaml:"win_points"`
	LossPoints         int64 `yaml:"loss_points"`
	PlayerGoalPoints   int64 `yaml:"player_goal_points"`
	PlayerAssistPoints int64 `yaml:"player_assist_points"`
}

// DefaultConfig returns the standard point values.
func DefaultConfig() Config {
	return Config{
		StartRating:        1500,
		GoalPoints:         10,
		WinPoints:          10,
		LossPoints:         -10,
		PlayerGoalPoints:   20,
		PlayerAssistPoints: 10,
	}
}

// PlayerDelta is the rating change a single player line earns.
func (c Config) PlayerDelta(pl match.PlayerLine) int64 {
	return int64(pl.Goals)*c.PlayerGoalPoints + int64(pl.Assists)*c.PlayerAssistPoints
}

// Entry is one rated identity.
type Entry struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Rating int64  `json:"rating"`
}

// Table is an identity-keyed rating table that remembers first-seen order.
// Entries are never removed.
type Table struct {
	start   int64
	index   map[string]int
	entries []Entry
}

// NewTable returns an empty table whose entries start at start.
func NewTable(start int64) *Table {
	return &Table{start: start, index: make(map[string]int)}
}

// Ensure creates key at the start rating if it is unseen.
func (t *Table) Ensure(key, name string) {
	if _, ok := t.index[key]; ok {
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: key, Name: name, Rating: t.start})
}

// Add applies delta to key, creating it first if needed.
func (t *Table) Add(key, name string, delta int64) {
	t.Ensure(key, name)
	t.entries[t.index[key]].Rating += delta
}

// Get returns the rating of key.
func (t *Table) Get(key string) (int64, bool) {
	i, ok := t.index[key]
	if !ok {
		return 0, false
	}
	return t.entries[i].Rating, true
}

// Len returns the number of rated identities.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of all entries in first-seen order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Ranked returns entries by rating, highest first. Equal ratings keep
// first-seen order.
func (t *Table) Ranked() []Entry {
	out := t.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

// Top returns at most n entries of Ranked.
func (t *Table) Top(n int) []Entry {
	r := t.Ranked()
	if n < len(r) {
		r = r[:n]
	}
	return r
}

// ByName maps display names to ratings. Distinct identities sharing a display
// name are told apart as "name (key)".
func (t *Table) ByName() map[string]int64 {
	seen := make(map[string]int, len(t.entries))
	for _, e := range t.entries {
		seen[e.Name]++
	}
	out := make(map[string]int64, len(t.entries))
	for _, e := range t.entries {
		name := e.Name
		if seen[name] > 1 && e.Key != name {
			name = fmt.Sprintf("%s (%s)", e.Name, e.Key)
		}
		out[name] = e.Rating
	}
	return out
}

// RankNames orders a name to rating map, as produced by ByName, highest
// first. Maps carry no order, so equal ratings fall back to the name.
func RankNames(m map[string]int64) []Entry {
	out := make([]Entry, 0, len(m))
	for name, v := range m {
		out = append(out, Entry{Key: name, Name: name, Rating: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TeamKey identifies a team, preferring its upstream id.
func TeamKey(t match.Team) string {
	if t.ID != "" {
		return t.ID
	}
	return t.DisplayName
}

// Accumulator folds match records into team and player ratings. Records must
// be applied in chronological order.
type Accumulator struct {
	cfg     Config
	policy  match.IdentityPolicy
	teams   *Table
	players *Table
	// nameIDs tracks the first upstream id seen per name to flag merges.
	nameIDs map[string]string
	applied int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator(cfg Config, policy match.IdentityPolicy) *Accumulator {
	return &Accumulator{
		cfg:     cfg,
		policy:  policy,
		teams:   NewTable(cfg.StartRating),
		players: NewTable(cfg.StartRating),
		nameIDs: make(map[string]string),
	}
}

// Apply folds one record. Only final matches count; Apply reports whether the
// record was used.
func (a *Accumulator) Apply(rec match.Record) bool {
	if !rec.Final() {
		return false
	}
	home, away := TeamKey(rec.HomeTeam), TeamKey(rec.AwayTeam)
	a.teams.Ensure(home, rec.HomeTeam.DisplayName)
	a.teams.Ensure(away, rec.AwayTeam.DisplayName)

	diff := int64(rec.HomeScore - rec.AwayScore)
	homeDelta := diff * a.cfg.GoalPoints
	awayDelta := -diff * a.cfg.GoalPoints
	switch {
	case diff > 0:
		homeDelta += a.cfg.WinPoints
		awayDelta += a.cfg.LossPoints
	case diff < 0:
		awayDelta += a.cfg.WinPoints
		homeDelta += a.cfg.LossPoints
	}
	a.teams.Add(home, rec.HomeTeam.DisplayName, homeDelta)
	a.teams.Add(away, rec.AwayTeam.DisplayName, awayDelta)

	for _, pl := range rec.Players {
		a.notice(pl)
		a.players.Add(a.policy.Key(pl), pl.Name, a.cfg.PlayerDelta(pl))
	}
	a.applied++
	return true
}

// notice logs when name-based identity merges two distinct upstream ids.
func (a *Accumulator) notice(pl match.PlayerLine) {
	if a.policy != match.IdentityByName || pl.ID == "" {
		return
	}
	first, ok := a.nameIDs[pl.Name]
	if !ok {
		a.nameIDs[pl.Name] = pl.ID
		return
	}
	if first != pl.ID {
		slog.Warn("distinct players merged by name", "name", pl.Name, "id", first, "other_id", pl.ID)
		a.nameIDs[pl.Name] = pl.ID
	}
}

// Teams returns the team table.
func (a *Accumulator) Teams() *Table { return a.teams }

// Players returns the player table.
func (a *Accumulator) Players() *Table { return a.players }

// Applied returns how many records were folded in.
func (a *Accumulator) Applied() int { return a.applied }

// Compute folds records, which must already be in chronological order.
func Compute(records []match.Record, cfg Config, policy match.IdentityPolicy) *Accumulator {
	a := NewAccumulator(cfg, policy)
	for i := range records {
		a.Apply(records[i])
	}
	return a
}
