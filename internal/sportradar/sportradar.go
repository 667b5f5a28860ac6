// Package sportradar normalizes Sportradar ice hockey v2 season summaries.
package sportradar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/match"
)

const SummariesURLFmt = "https://api.sportradar.com/icehockey/trial/v2/en/seasons/%s/summaries.json"

// statuses maps sport_event_status.status (or match_status) to canonical
// statuses. Unknown values are not started.
var statuses = map[string]match.Status{
	"closed":   match.StatusFinal,
	"ended":    match.StatusFinal,
	"complete": match.StatusFinal,
	"ap":       match.StatusFinal,
	"aet":      match.StatusFinal,
	"live":     match.StatusInProgress,
}

// Status maps a Sportradar status to a canonical status.
func Status(s string) match.Status {
	if st, ok := statuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return match.StatusNotStarted
}

// Client fetches season summaries.
type Client struct {
	fetcher  *fetch.Fetcher
	apiKey   string
	seasonID string
}

// NewClient returns a client for one season.
func NewClient(f *fetch.Fetcher, apiKey, seasonID string) *Client {
	return &Client{fetcher: f, apiKey: apiKey, seasonID: seasonID}
}

// SeasonID returns the configured season.
func (c *Client) SeasonID() string {
	return c.seasonID
}

// Summaries returns every match of the season.
func (c *Client) Summaries(ctx context.Context) ([]match.Record, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("sportradar api key not configured")
	}
	h := http.Header{}
	h.Set("x-api-key", c.apiKey)
	body, err := c.fetcher.Get(ctx, fetch.Request{URL: fmt.Sprintf(SummariesURLFmt, c.seasonID), Header: h})
	if err != nil {
		return nil, err
	}
	return ParseSummaries(body)
}

type competitor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Qualifier string `json:"qualifier"`
}

type summary struct {
	SportEvent struct {
		ID          string       `json:"id"`
		StartTime   string       `json:"start_time"`
		Competitors []competitor `json:"competitors"`
	} `json:"sport_event"`
	SportEventStatus struct {
		Status       string `json:"status"`
		MatchStatus  string `json:"match_status"`
		HomeScore    *int   `json:"home_score"`
		AwayScore    *int   `json:"away_score"`
		Overtime     bool   `json:"overtime"`
		PeriodScores []struct {
			HomeScore int    `json:"home_score"`
			AwayScore int    `json:"away_score"`
			Type      string `json:"type"`
			Number    int    `json:"number"`
		} `json:"period_scores"`
	} `json:"sport_event_status"`
	Statistics struct {
		Totals struct {
			Competitors []struct {
				Qualifier string `json:"qualifier"`
				Players   []struct {
					ID         string `json:"id"`
					Name       string `json:"name"`
					Statistics struct {
						Goals   int `json:"goals"`
						Assists int `json:"assists"`
					} `json:"statistics"`
				} `json:"players"`
			} `json:"competitors"`
		} `json:"totals"`
	} `json:"statistics"`
}

func (s *summary) record() match.Record {
	ev, st := &s.SportEvent, &s.SportEventStatus
	rec := match.Record{
		ID:       ev.ID,
		Status:   Status(st.Status),
		Overtime: st.Overtime || strings.EqualFold(st.MatchStatus, "ap"),
		Players:  []match.PlayerLine{},
	}
	if rec.Status == match.StatusNotStarted && st.MatchStatus != "" {
		rec.Status = Status(st.MatchStatus)
	}
	if t, err := time.Parse(time.RFC3339, ev.StartTime); err == nil {
		rec.StartTime = t.UTC()
		rec.Date = rec.StartTime.Format(match.DateLayout)
	}

	home, away := sides(ev.Competitors)
	rec.HomeTeam = match.Team{ID: home.ID, DisplayName: orDefault(home.Name, "Home")}
	rec.AwayTeam = match.Team{ID: away.ID, DisplayName: orDefault(away.Name, "Away")}
	if st.HomeScore != nil {
		rec.HomeScore = *st.HomeScore
	}
	if st.AwayScore != nil {
		rec.AwayScore = *st.AwayScore
	}
	for _, p := range st.PeriodScores {
		rec.Periods = append(rec.Periods, match.PeriodScore{
			Number: p.Number, Type: p.Type, HomeScore: p.HomeScore, AwayScore: p.AwayScore,
		})
	}
	for _, c := range s.Statistics.Totals.Competitors {
		side := match.SideAway
		if c.Qualifier == "home" {
			side = match.SideHome
		}
		for _, p := range c.Players {
			rec.Players = append(rec.Players, match.PlayerLine{
				ID:      p.ID,
				Name:    displayName(p.Name),
				Goals:   p.Statistics.Goals,
				Assists: p.Statistics.Assists,
				Side:    side,
			})
		}
	}
	return rec
}

// sides picks competitors by qualifier, falling back to list position.
func sides(cs []competitor) (home, away competitor) {
	for _, c := range cs {
		switch c.Qualifier {
		case "home":
			home = c
		case "away":
			away = c
		}
	}
	if home.ID == "" && len(cs) > 0 {
		home = cs[0]
	}
	if away.ID == "" && len(cs) > 1 {
		away = cs[1]
	}
	return home, away
}

// displayName turns "Last, First" into "First Last".
func displayName(s string) string {
	last, first, ok := strings.Cut(s, ", ")
	if !ok {
		return s
	}
	return first + " " + last
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ParseSummaries normalizes a summaries.json document. Matches without a
// start time get no StartTime and sort first.
func ParseSummaries(body []byte) ([]match.Record, error) {
	var doc struct {
		Summaries []summary `json:"summaries"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	out := make([]match.Record, 0, len(doc.Summaries))
	for i := range doc.Summaries {
		out = append(out, doc.Summaries[i].record())
	}
	return out, nil
}
