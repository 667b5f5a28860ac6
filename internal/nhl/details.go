package nhl

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/pitr77/extraliga/internal/match"
)

// Details is the match-details view of one game.
type Details struct {
	ID           string              `json:"id"`
	HomeTeam     match.Team          `json:"homeTeam"`
	AwayTeam     match.Team          `json:"awayTeam"`
	HomeScore    int                 `json:"homeScore"`
	AwayScore    int                 `json:"awayScore"`
	Status       match.Status        `json:"status"`
	Overtime     bool                `json:"overtime,omitempty"`
	PeriodScores []match.PeriodScore `json:"periodScores"`
	HomePlayers  []match.PlayerLine  `json:"homePlayers"`
	AwayPlayers  []match.PlayerLine  `json:"awayPlayers"`
}

type linescore struct {
	ByPeriod []struct {
		PeriodDescriptor periodDescriptor `json:"periodDescriptor"`
		Home             int              `json:"home"`
		Away             int              `json:"away"`
	} `json:"byPeriod"`
}

func (l *linescore) periods() []match.PeriodScore {
	if len(l.ByPeriod) == 0 {
		return nil
	}
	out := make([]match.PeriodScore, 0, len(l.ByPeriod))
	for _, p := range l.ByPeriod {
		out = append(out, match.PeriodScore{
			Number:    p.PeriodDescriptor.Number,
			Type:      p.PeriodDescriptor.PeriodType,
			HomeScore: p.Home,
			AwayScore: p.Away,
		})
	}
	return out
}

type landingDoc struct {
	ID               int64            `json:"id"`
	GameState        string           `json:"gameState"`
	HomeTeam         team             `json:"homeTeam"`
	AwayTeam         team             `json:"awayTeam"`
	PeriodDescriptor periodDescriptor `json:"periodDescriptor"`
	Summary          struct {
		Linescore linescore `json:"linescore"`
		Scoring   []struct {
			PeriodDescriptor periodDescriptor `json:"periodDescriptor"`
			Goals            []struct {
				HomeScore int `json:"homeScore"`
				AwayScore int `json:"awayScore"`
			} `json:"goals"`
		} `json:"scoring"`
	} `json:"summary"`
}

// scoringPeriods derives per-period scores from the running score after each
// goal.
func (l *landingDoc) scoringPeriods() []match.PeriodScore {
	if len(l.Summary.Scoring) == 0 {
		return nil
	}
	out := make([]match.PeriodScore, 0, len(l.Summary.Scoring))
	home, away := 0, 0
	for _, p := range l.Summary.Scoring {
		ps := match.PeriodScore{Number: p.PeriodDescriptor.Number, Type: p.PeriodDescriptor.PeriodType}
		if n := len(p.Goals); n > 0 {
			last := p.Goals[n-1]
			ps.HomeScore, ps.AwayScore = last.HomeScore-home, last.AwayScore-away
			home, away = last.HomeScore, last.AwayScore
		}
		out = append(out, ps)
	}
	return out
}

// ParseDetails merges a landing and a boxscore document. Either may be nil;
// teams and scores come from the boxscore when available, players only from
// the boxscore.
func ParseDetails(gameID string, landingBody, boxBody []byte) (*Details, error) {
	if len(landingBody) == 0 && len(boxBody) == 0 {
		return nil, errors.New("no game documents")
	}
	var land *landingDoc
	if len(landingBody) > 0 {
		land = &landingDoc{}
		if err := json.Unmarshal(landingBody, land); err != nil {
			land = nil
			if len(boxBody) == 0 {
				return nil, fmt.Errorf("decode landing: %w", err)
			}
		}
	}
	var box *boxscore
	if len(boxBody) > 0 {
		b, err := decodeBoxscore(boxBody)
		if err != nil && land == nil {
			return nil, err
		}
		box = b
	}

	d := &Details{
		ID:           gameID,
		PeriodScores: []match.PeriodScore{},
		HomePlayers:  []match.PlayerLine{},
		AwayPlayers:  []match.PlayerLine{},
	}
	var home, away *team
	var state string
	var pd periodDescriptor
	if land != nil {
		home, away, state, pd = &land.HomeTeam, &land.AwayTeam, land.GameState, land.PeriodDescriptor
	}
	if box != nil {
		if box.HomeTeam.displayName("") != "" {
			home, away = &box.HomeTeam.team, &box.AwayTeam.team
		}
		if box.GameState != "" {
			state = box.GameState
		}
		if box.PeriodDescriptor.PeriodType != "" {
			pd = box.PeriodDescriptor
		}
	}
	if home != nil {
		d.HomeTeam, d.AwayTeam = home.canonical("Home"), away.canonical("Away")
		d.HomeScore, d.AwayScore = home.score(), away.score()
	}
	d.Status = Status(state)
	d.Overtime = pd.PeriodType == "OT" || pd.PeriodType == "SO"

	switch {
	case box != nil && len(box.Summary.Linescore.ByPeriod) > 0:
		d.PeriodScores = box.Summary.Linescore.periods()
	case box != nil && len(box.Linescore.ByPeriod) > 0:
		d.PeriodScores = box.Linescore.periods()
	case land != nil && len(land.Summary.Linescore.ByPeriod) > 0:
		d.PeriodScores = land.Summary.Linescore.periods()
	case land != nil && len(land.Summary.Scoring) > 0:
		d.PeriodScores = land.scoringPeriods()
	}

	if box != nil {
		for _, pl := range box.players() {
			if pl.Goals == 0 && pl.Assists == 0 {
				continue
			}
			if pl.Side == match.SideHome {
				d.HomePlayers = append(d.HomePlayers, pl)
			} else {
				d.AwayPlayers = append(d.AwayPlayers, pl)
			}
		}
	}
	return d, nil
}
