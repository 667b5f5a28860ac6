package nhl

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pitr77/extraliga/internal/match"
)

// gameStates maps upstream gameState values to canonical statuses. Anything
// not listed is treated as not started.
var gameStates = map[string]match.Status{
	"FINAL": match.StatusFinal,
	"OFF":   match.StatusFinal,
	"LIVE":  match.StatusInProgress,
	"CRIT":  match.StatusInProgress,
}

// Status maps an upstream gameState to a canonical status.
func Status(gameState string) match.Status {
	if s, ok := gameStates[strings.ToUpper(strings.TrimSpace(gameState))]; ok {
		return s
	}
	return match.StatusNotStarted
}

// Localized unmarshals a name from either a plain string or {"default": "..."}.
type Localized string

func (l *Localized) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Localized(s)
		return nil
	}
	var o struct {
		Default string `json:"default"`
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*l = Localized(o.Default)
	return nil
}

type periodDescriptor struct {
	Number     int    `json:"number"`
	PeriodType string `json:"periodType"`
}

type team struct {
	ID         int64     `json:"id"`
	Abbrev     Localized `json:"abbrev"`
	Name       Localized `json:"name"`
	CommonName Localized `json:"commonName"`
	PlaceName  Localized `json:"placeName"`
	Score      *int      `json:"score"`
}

// displayName prefers the full name, then place plus common name, then the
// common name, then the abbreviation.
func (t *team) displayName(fallback string) string {
	switch {
	case t.Name != "":
		return string(t.Name)
	case t.PlaceName != "" && t.CommonName != "":
		return string(t.PlaceName) + " " + string(t.CommonName)
	case t.CommonName != "":
		return string(t.CommonName)
	case t.Abbrev != "":
		return string(t.Abbrev)
	}
	return fallback
}

func (t *team) canonical(fallback string) match.Team {
	out := match.Team{DisplayName: t.displayName(fallback)}
	if t.ID != 0 {
		out.ID = strconv.FormatInt(t.ID, 10)
	} else {
		out.ID = string(t.Abbrev)
	}
	return out
}

func (t *team) score() int {
	if t.Score == nil {
		return 0
	}
	return *t.Score
}

type game struct {
	ID               int64            `json:"id"`
	GameDate         string           `json:"gameDate"`
	StartTimeUTC     string           `json:"startTimeUTC"`
	GameState        string           `json:"gameState"`
	HomeTeam         team             `json:"homeTeam"`
	AwayTeam         team             `json:"awayTeam"`
	PeriodDescriptor periodDescriptor `json:"periodDescriptor"`
	GameOutcome      struct {
		LastPeriodType string `json:"lastPeriodType"`
	} `json:"gameOutcome"`
}

func (g *game) record(date string) match.Record {
	if g.GameDate != "" {
		date = g.GameDate
	}
	start := parseStart(g.StartTimeUTC)
	if start.IsZero() {
		start = match.StartFromDate(date)
	}
	last := g.GameOutcome.LastPeriodType
	if last == "" {
		last = g.PeriodDescriptor.PeriodType
	}
	return match.Record{
		ID:        strconv.FormatInt(g.ID, 10),
		Date:      date,
		StartTime: start,
		HomeTeam:  g.HomeTeam.canonical("Home"),
		AwayTeam:  g.AwayTeam.canonical("Away"),
		HomeScore: g.HomeTeam.score(),
		AwayScore: g.AwayTeam.score(),
		Status:    Status(g.GameState),
		Overtime:  last == "OT" || last == "SO",
		Players:   []match.PlayerLine{},
	}
}

func parseStart(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// ParseScore normalizes the games of a score/{date} page. date is used when a
// game carries no gameDate of its own.
func ParseScore(body []byte, date string) ([]match.Record, error) {
	var page struct {
		Games []game `json:"games"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode score %s: %w", date, err)
	}
	out := make([]match.Record, 0, len(page.Games))
	for i := range page.Games {
		out = append(out, page.Games[i].record(date))
	}
	return out, nil
}

type skater struct {
	PlayerID  int64     `json:"playerId"`
	Name      Localized `json:"name"`
	FirstName Localized `json:"firstName"`
	LastName  Localized `json:"lastName"`
	Goals     int       `json:"goals"`
	Assists   int       `json:"assists"`
}

func (s *skater) line(side match.Side) match.PlayerLine {
	name := string(s.Name)
	if name == "" {
		name = strings.TrimSpace(string(s.FirstName) + " " + string(s.LastName))
	}
	pl := match.PlayerLine{Name: name, Goals: s.Goals, Assists: s.Assists, Side: side}
	if s.PlayerID != 0 {
		pl.ID = strconv.FormatInt(s.PlayerID, 10)
	}
	return pl
}

type roster struct {
	Forwards []skater `json:"forwards"`
	Defense  []skater `json:"defense"`
	Goalies  []skater `json:"goalies"`
}

func (r *roster) lines(side match.Side) []match.PlayerLine {
	out := make([]match.PlayerLine, 0, len(r.Forwards)+len(r.Defense)+len(r.Goalies))
	for _, group := range [][]skater{r.Forwards, r.Defense, r.Goalies} {
		for i := range group {
			out = append(out, group[i].line(side))
		}
	}
	return out
}

// legacyPlayer is the older gamecenter shape keyed by "ID1234".
type legacyPlayer struct {
	FirstName   Localized `json:"firstName"`
	LastName    Localized `json:"lastName"`
	SkaterStats *struct {
		Goals   int `json:"goals"`
		Assists int `json:"assists"`
	} `json:"skaterStats"`
	GoalieStats *struct {
		Goals   int `json:"goals"`
		Assists int `json:"assists"`
	} `json:"goalieStats"`
}

type boxTeam struct {
	team
	Players map[string]legacyPlayer `json:"players"`
}

type boxscore struct {
	ID                int64            `json:"id"`
	GameState         string           `json:"gameState"`
	HomeTeam          boxTeam          `json:"homeTeam"`
	AwayTeam          boxTeam          `json:"awayTeam"`
	PeriodDescriptor  periodDescriptor `json:"periodDescriptor"`
	PlayerByGameStats struct {
		HomeTeam roster `json:"homeTeam"`
		AwayTeam roster `json:"awayTeam"`
	} `json:"playerByGameStats"`
	Summary struct {
		Linescore linescore `json:"linescore"`
	} `json:"summary"`
	Linescore linescore `json:"linescore"`
}

func decodeBoxscore(body []byte) (*boxscore, error) {
	var b boxscore
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decode boxscore: %w", err)
	}
	return &b, nil
}

func (b *boxscore) players() []match.PlayerLine {
	out := b.PlayerByGameStats.HomeTeam.lines(match.SideHome)
	out = append(out, b.PlayerByGameStats.AwayTeam.lines(match.SideAway)...)
	if len(out) > 0 {
		return out
	}
	out = append(out, legacyLines(b.HomeTeam.Players, match.SideHome)...)
	return append(out, legacyLines(b.AwayTeam.Players, match.SideAway)...)
}

func legacyLines(players map[string]legacyPlayer, side match.Side) []match.PlayerLine {
	if len(players) == 0 {
		return nil
	}
	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	// Map order is random; keep rosters deterministic.
	sort.Strings(ids)
	out := make([]match.PlayerLine, 0, len(ids))
	for _, id := range ids {
		p := players[id]
		pl := match.PlayerLine{
			ID:   strings.TrimPrefix(id, "ID"),
			Name: strings.TrimSpace(string(p.FirstName) + " " + string(p.LastName)),
			Side: side,
		}
		switch {
		case p.SkaterStats != nil:
			pl.Goals, pl.Assists = p.SkaterStats.Goals, p.SkaterStats.Assists
		case p.GoalieStats != nil:
			pl.Goals, pl.Assists = p.GoalieStats.Goals, p.GoalieStats.Assists
		}
		out = append(out, pl)
	}
	return out
}

// ParseBoxscore returns every dressed player of both teams, zero-stat lines
// included.
func ParseBoxscore(body []byte) ([]match.PlayerLine, error) {
	b, err := decodeBoxscore(body)
	if err != nil {
		return nil, err
	}
	return b.players(), nil
}

// AttachBoxscore fills rec.Players from a boxscore payload. A missing or
// malformed boxscore leaves the match with an empty roster.
func AttachBoxscore(rec *match.Record, body []byte) {
	rec.Players = []match.PlayerLine{}
	if len(body) == 0 {
		return
	}
	b, err := decodeBoxscore(body)
	if err != nil {
		slog.Warn("boxscore unreadable, match kept without players", "game_id", rec.ID, "error", err)
		return
	}
	rec.Players = b.players()
	if b.HomeTeam.Score != nil && b.AwayTeam.Score != nil {
		rec.HomeScore, rec.AwayScore = *b.HomeTeam.Score, *b.AwayTeam.Score
	}
}
