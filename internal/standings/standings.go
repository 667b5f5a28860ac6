// Package standings extracts league table rows from the known NHL standings
// documents.
package standings

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/pitr77/extraliga/internal/nhl"
)

// Version names the schema a document was parsed with.
type Version string

const (
	VersionV1       Version = "v1"
	VersionLegacy   Version = "legacy"
	VersionDeepScan Version = "deep-scan"
)

// ErrNoStandings is returned when no table could be located.
var ErrNoStandings = errors.New("no standings rows found")

// Row is one team's line in the table.
type Row struct {
	Team        string `json:"team"`
	Abbrev      string `json:"abbrev,omitempty"`
	GamesPlayed int    `json:"gamesPlayed"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	OTLosses    int    `json:"otLosses"`
	Points      int    `json:"points"`
}

// Table is a parsed standings document.
type Table struct {
	Version Version `json:"version"`
	Rows    []Row   `json:"rows"`
}

// Parse tries the v1 and legacy schemas and falls back to a deep scan of the
// document only when both find nothing. Rows are ordered by points, highest
// first.
func Parse(body []byte) (*Table, error) {
	rows, version, err := parseKnown(body)
	if err != nil {
		slog.Debug("known standings schemas did not match", "error", err)
	}
	if len(rows) == 0 {
		rows, err = deepScan(body)
		if err != nil {
			return nil, err
		}
		version = VersionDeepScan
	}
	if len(rows) == 0 {
		return nil, ErrNoStandings
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Points > rows[j].Points })
	return &Table{Version: version, Rows: rows}, nil
}

// parseKnown picks the legacy parser when the first section carries
// teamRecords and the v1 parser otherwise.
func parseKnown(body []byte) ([]Row, Version, error) {
	var shape struct {
		Standings []struct {
			TeamRecords json.RawMessage `json:"teamRecords"`
		} `json:"standings"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return nil, "", fmt.Errorf("detect standings shape: %w", err)
	}
	if len(shape.Standings) > 0 && len(shape.Standings[0].TeamRecords) > 0 {
		rows, err := parseLegacy(body)
		return rows, VersionLegacy, err
	}
	rows, err := parseV1(body)
	return rows, VersionV1, err
}

func parseV1(body []byte) ([]Row, error) {
	var doc struct {
		Standings []struct {
			TeamName       nhl.Localized `json:"teamName"`
			TeamCommonName nhl.Localized `json:"teamCommonName"`
			TeamAbbrev     nhl.Localized `json:"teamAbbrev"`
			GamesPlayed    int           `json:"gamesPlayed"`
			Wins           int           `json:"wins"`
			Losses         int           `json:"losses"`
			OTLosses       int           `json:"otLosses"`
			Points         int           `json:"points"`
		} `json:"standings"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode v1 standings: %w", err)
	}
	rows := make([]Row, 0, len(doc.Standings))
	for _, s := range doc.Standings {
		name := firstNonEmpty(string(s.TeamName), string(s.TeamCommonName), string(s.TeamAbbrev))
		if name == "" {
			continue
		}
		rows = append(rows, Row{
			Team:        name,
			Abbrev:      string(s.TeamAbbrev),
			GamesPlayed: s.GamesPlayed,
			Wins:        s.Wins,
			Losses:      s.Losses,
			OTLosses:    s.OTLosses,
			Points:      s.Points,
		})
	}
	return rows, nil
}

var overallSection = regexp.MustCompile(`(?i)overall|league`)

type legacyRecord struct {
	TeamName       nhl.Localized `json:"teamName"`
	TeamCommonName nhl.Localized `json:"teamCommonName"`
	Team           struct {
		Name   string `json:"name"`
		Abbrev string `json:"abbrev"`
	} `json:"team"`
	GamesPlayed *int `json:"gamesPlayed"`
	GP          *int `json:"gp"`
	Wins        *int `json:"wins"`
	W           *int `json:"w"`
	Losses      *int `json:"losses"`
	L           *int `json:"l"`
	OT          *int `json:"ot"`
	Points      *int `json:"points"`
	Pts         *int `json:"pts"`
}

// parseLegacy reads sectioned standings, preferring the overall/league
// section and otherwise the first section with rows.
func parseLegacy(body []byte) ([]Row, error) {
	var doc struct {
		Standings []struct {
			StandingsType string         `json:"standingsType"`
			Type          string         `json:"type"`
			Label         string         `json:"label"`
			TeamRecords   []legacyRecord `json:"teamRecords"`
		} `json:"standings"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode legacy standings: %w", err)
	}
	pick := -1
	for i, s := range doc.Standings {
		if overallSection.MatchString(firstNonEmpty(s.StandingsType, s.Type, s.Label)) {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i, s := range doc.Standings {
			if len(s.TeamRecords) > 0 {
				pick = i
				break
			}
		}
	}
	if pick < 0 {
		return nil, nil
	}
	recs := doc.Standings[pick].TeamRecords
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, Row{
			Team:        firstNonEmpty(string(r.TeamName), string(r.TeamCommonName), r.Team.Name, r.Team.Abbrev, "-"),
			Abbrev:      r.Team.Abbrev,
			GamesPlayed: firstInt(r.GamesPlayed, r.GP),
			Wins:        firstInt(r.Wins, r.W),
			Losses:      firstInt(r.Losses, r.L),
			OTLosses:    firstInt(r.OT),
			Points:      firstInt(r.Points, r.Pts),
		})
	}
	return rows, nil
}

// deepScan walks an arbitrary document for arrays whose first element looks
// like a team record and keeps the longest one.
func deepScan(body []byte) ([]Row, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode standings for scan: %w", err)
	}
	var best []any
	var visit func(n any)
	visit = func(n any) {
		switch v := n.(type) {
		case []any:
			if len(v) > 0 && looksLikeTeamRecord(v[0]) && len(v) > len(best) {
				best = v
			}
			for _, e := range v {
				visit(e)
			}
		case map[string]any:
			for _, e := range v {
				visit(e)
			}
		}
	}
	visit(root)

	if len(best) == 0 {
		slog.Warn("standings deep scan found nothing", "keys", topKeys(root))
		return nil, nil
	}
	slog.Warn("standings parsed by deep scan; upstream schema unknown", "rows", len(best), "keys", topKeys(root))
	rows := make([]Row, 0, len(best))
	for _, e := range best {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Team:        teamName(m),
			GamesPlayed: number(m, "gamesPlayed", "gp", "games"),
			Wins:        number(m, "wins", "w"),
			Losses:      number(m, "losses", "l"),
			OTLosses:    number(m, "otLosses", "ot"),
			Points:      number(m, "points", "pts", "pointTotal"),
		})
	}
	return rows, nil
}

func looksLikeTeamRecord(n any) bool {
	m, ok := n.(map[string]any)
	if !ok {
		return false
	}
	if teamName(m) == "-" {
		return false
	}
	return hasNumber(m, "points", "pts", "pointTotal") || hasNumber(m, "gamesPlayed", "gp", "games")
}

func teamName(m map[string]any) string {
	if s := text(m["teamName"]); s != "" {
		return s
	}
	if s := text(m["teamCommonName"]); s != "" {
		return s
	}
	if t, ok := m["team"].(map[string]any); ok {
		if s := firstNonEmpty(text(t["name"]), text(t["commonName"]), text(t["abbrev"])); s != "" {
			return s
		}
	}
	if s := firstNonEmpty(text(m["abbrev"]), text(m["teamAbbrev"])); s != "" {
		return s
	}
	return "-"
}

// text reads a string or a {"default": "..."} object.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["default"].(string)
		return s
	}
	return ""
}

func hasNumber(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k].(float64); ok {
			return true
		}
	}
	return false
}

func number(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return int(f)
		}
	}
	return 0
}

func topKeys(root any) []string {
	m, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func firstInt(ps ...*int) int {
	for _, p := range ps {
		if p != nil {
			return *p
		}
	}
	return 0
}
