package season

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/nhl"
	"github.com/pitr77/extraliga/internal/sportradar"
)

// Provider lists the matches played between two calendar days, inclusive.
type Provider interface {
	Matches(ctx context.Context, from, to time.Time) ([]match.Record, error)
	SeasonID() string
}

// Days returns every calendar day from..to inclusive as YYYY-MM-DD.
func Days(from, to time.Time) []string {
	from = truncateDay(from)
	to = truncateDay(to)
	var out []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(match.DateLayout))
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NHLProvider reads daily score pages and per-game boxscores from the NHL
// web API.
type NHLProvider struct {
	fetcher *fetch.Fetcher
	season  string
}

// NewNHLProvider returns a provider for the season starting at start.
func NewNHLProvider(f *fetch.Fetcher, start time.Time) *NHLProvider {
	y := start.UTC().Year()
	return &NHLProvider{fetcher: f, season: fmt.Sprintf("%d%d", y, y+1)}
}

func (p *NHLProvider) SeasonID() string { return p.season }

// Matches fetches one score page per day, then the boxscores of games that
// have started. A failed day or boxscore only loses that piece; the call
// fails when no day could be read at all.
func (p *NHLProvider) Matches(ctx context.Context, from, to time.Time) ([]match.Record, error) {
	days := Days(from, to)
	if len(days) == 0 {
		return []match.Record{}, nil
	}
	reqs := make([]fetch.Request, len(days))
	for i, d := range days {
		reqs[i] = fetch.Request{URL: nhl.ScoreURL(d)}
	}

	var (
		records []match.Record
		okDays  int
		lastErr error
	)
	seen := make(map[string]bool)
	for i, res := range p.fetcher.FetchAll(ctx, reqs) {
		if res.Err != nil {
			lastErr = res.Err
			continue
		}
		recs, err := nhl.ParseScore(res.Body, days[i])
		if err != nil {
			slog.Warn("score page unreadable", "date", days[i], "error", err)
			lastErr = err
			continue
		}
		okDays++
		for _, r := range recs {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			records = append(records, r)
		}
	}
	if okDays == 0 {
		return nil, fmt.Errorf("no score page could be read for %s..%s: %w", days[0], days[len(days)-1], lastErr)
	}

	var boxIdx []int
	var boxReqs []fetch.Request
	for i := range records {
		if records[i].Status == match.StatusNotStarted {
			continue
		}
		boxIdx = append(boxIdx, i)
		boxReqs = append(boxReqs, fetch.Request{URL: nhl.BoxscoreURL(records[i].ID)})
	}
	for j, res := range p.fetcher.FetchAll(ctx, boxReqs) {
		nhl.AttachBoxscore(&records[boxIdx[j]], res.Body)
	}
	slog.Debug("nhl season window loaded", "days", len(days), "matches", len(records), "boxscores", len(boxReqs))
	if records == nil {
		records = []match.Record{}
	}
	return records, nil
}

// SportradarProvider reads the season summaries document.
type SportradarProvider struct {
	client *sportradar.Client
}

// NewSportradarProvider wraps a Sportradar client.
func NewSportradarProvider(c *sportradar.Client) *SportradarProvider {
	return &SportradarProvider{client: c}
}

func (p *SportradarProvider) SeasonID() string { return p.client.SeasonID() }

// Matches returns the summaries whose day falls within from..to. Matches
// without a start time are always kept.
func (p *SportradarProvider) Matches(ctx context.Context, from, to time.Time) ([]match.Record, error) {
	all, err := p.client.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	lo, hi := truncateDay(from).Format(match.DateLayout), truncateDay(to).Format(match.DateLayout)
	out := make([]match.Record, 0, len(all))
	for _, r := range all {
		if d := r.Day(); d != "" && (d < lo || d > hi) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
