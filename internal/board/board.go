// Package board renders the season report as console tables.
package board

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/pitr77/extraliga/internal/martingale"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/rating"
	"github.com/pitr77/extraliga/internal/season"
)

// TopPlayers is how many player ratings the board lists.
const TopPlayers = 20

// Renderer writes report tables to out.
type Renderer struct {
	out io.Writer
}

// NewRenderer writes to stdout.
func NewRenderer() *Renderer {
	return &Renderer{out: os.Stdout}
}

// NewRendererWriter writes to w.
func NewRendererWriter(w io.Writer) *Renderer {
	return &Renderer{out: w}
}

// StatusGlyph marks a match row: a check for final games, "PP" appended
// after overtime, an hourglass before the start.
func StatusGlyph(r match.Record) string {
	switch r.Status {
	case match.StatusFinal:
		if r.Overtime {
			return "✅ PP"
		}
		return "✅"
	case match.StatusInProgress:
		return "🔴"
	}
	return "⏳"
}

// Render prints every section of the report.
func (r *Renderer) Render(rep *season.Report) {
	r.Matches(rep.Matches)
	r.TeamRatings(rep.TeamRatings)
	r.PlayerRatings(rep.PlayerRatings, TopPlayers)
	r.Martingale(rep.Martingale)
}

// Matches prints one row per match.
func (r *Renderer) Matches(recs []match.Record) {
	fmt.Fprintf(r.out, "\nMatches (%d)\n", len(recs))
	table := tablewriter.NewWriter(r.out)
	table.Header("Date", "Home", "Away", "Score", "Status")
	for _, m := range recs {
		score := "- : -"
		if m.Status != match.StatusNotStarted {
			score = fmt.Sprintf("%d : %d", m.HomeScore, m.AwayScore)
		}
		table.Append(m.Day(), m.HomeTeam.DisplayName, m.AwayTeam.DisplayName, score, StatusGlyph(m))
	}
	table.Render()
}

// TeamRatings prints every team, highest rating first.
func (r *Renderer) TeamRatings(ratings map[string]int64) {
	fmt.Fprintln(r.out, "\nTeam ratings")
	table := tablewriter.NewWriter(r.out)
	table.Header("#", "Team", "Rating")
	for i, e := range rating.RankNames(ratings) {
		table.Append(fmt.Sprintf("%d", i+1), e.Name, fmt.Sprintf("%d", e.Rating))
	}
	table.Render()
}

// PlayerRatings prints the n best players.
func (r *Renderer) PlayerRatings(ratings map[string]int64, n int) {
	rows := rating.RankNames(ratings)
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	fmt.Fprintf(r.out, "\nTop %d players\n", len(rows))
	table := tablewriter.NewWriter(r.out)
	table.Header("#", "Player", "Rating")
	for i, e := range rows {
		table.Append(fmt.Sprintf("%d", i+1), e.Name, fmt.Sprintf("%d", e.Rating))
	}
	table.Render()
}

func outcomeLabel(o martingale.Outcome) string {
	switch o {
	case martingale.OutcomeWon:
		return "✅ won"
	case martingale.OutcomeLost:
		return "❌ lost"
	}
	return "—"
}

// Martingale prints the picks, each pick's diary and the overall summary.
func (r *Renderer) Martingale(res martingale.Result) {
	fmt.Fprintf(r.out, "\nMartingale top %d (odds %s)\n", len(res.Top3), res.Summary.Odds.String())
	table := tablewriter.NewWriter(r.out)
	table.Header("Player", "Rating", "Odds", "Stake", "Last result")
	for _, p := range res.Top3 {
		table.Append(p.Name, fmt.Sprintf("%d", p.Rating), p.Odds.String(), p.Stake.StringFixed(2), outcomeLabel(p.LastOutcome))
	}
	table.Render()

	for _, p := range res.Top3 {
		fmt.Fprintf(r.out, "\nDiary: %s\n", p.Name)
		if len(p.Log) == 0 {
			fmt.Fprintln(r.out, "  no bets yet")
			continue
		}
		for _, e := range p.Log {
			fmt.Fprintf(r.out, "  %s  stake %s  goals %d  %s  returned %s  next stake %s\n",
				e.Date, e.StakeBefore.StringFixed(2), e.Goals, e.Outcome,
				e.AmountReturned.StringFixed(2), e.NewStake.StringFixed(2))
		}
	}

	s := res.Summary
	fmt.Fprintf(r.out, "\nTotal staked:   %s\n", s.TotalStaked.StringFixed(2))
	fmt.Fprintf(r.out, "Total returned: %s\n", s.TotalReturned.StringFixed(2))
	fmt.Fprintf(r.out, "Profit:         %s\n", s.Profit.StringFixed(2))
}
