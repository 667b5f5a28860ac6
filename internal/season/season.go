// Package season assembles the per-request season report: matches, ratings
// and the martingale replay.
package season

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitr77/extraliga/internal/martingale"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/rating"
)

var (
	// ErrInvalidRange is returned for a window that ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrTeamNotFound is returned when a team played no match in the season.
	ErrTeamNotFound = errors.New("team not found")
	// ErrNoMeetings is returned when two teams have not met.
	ErrNoMeetings = errors.New("no meetings between teams")
)

// Report is the /api/matches payload.
type Report struct {
	Matches       []match.Record    `json:"matches"`
	TeamRatings   map[string]int64  `json:"teamRatings"`
	PlayerRatings map[string]int64  `json:"playerRatings"`
	Martingale    martingale.Result `json:"martingale"`
}

// TeamSummary aggregates a team's settled matches.
type TeamSummary struct {
	TeamID       string `json:"teamId"`
	TeamName     string `json:"teamName"`
	SeasonID     string `json:"seasonId"`
	TotalGames   int    `json:"totalGames"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
}

// HeadToHead lists the meetings of two teams.
type HeadToHead struct {
	TeamA    string         `json:"teamA"`
	TeamB    string         `json:"teamB"`
	WinsA    int            `json:"winsA"`
	WinsB    int            `json:"winsB"`
	Meetings []match.Record `json:"meetings"`
}

// Options configure a Service.
type Options struct {
	Start      time.Time
	Rating     rating.Config
	Martingale martingale.Config
	Policy     match.IdentityPolicy
}

// Service builds season views from a provider. All derived state is rebuilt
// per call; only raw upstream payloads are cached, below the provider.
type Service struct {
	provider Provider
	opts     Options
	now      func() time.Time
}

// NewService returns a Service.
func NewService(p Provider, opts Options) *Service {
	return &Service{provider: p, opts: opts, now: time.Now}
}

// Window resolves optional from/to days. Zero values default to the season
// start and today.
func (s *Service) Window(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() {
		from = s.opts.Start
	}
	if to.IsZero() {
		to = s.now()
	}
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		return from, to, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to.Format(match.DateLayout), from.Format(match.DateLayout))
	}
	return from, to, nil
}

// Matches returns the window's matches in chronological order.
func (s *Service) Matches(ctx context.Context, from, to time.Time) ([]match.Record, error) {
	from, to, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	recs, err := s.provider.Matches(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	match.SortChronological(recs)
	return recs, nil
}

// Report loads the window and runs the rating and martingale passes over it.
func (s *Service) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	recs, err := s.Matches(ctx, from, to)
	if err != nil {
		return nil, err
	}
	acc := rating.Compute(recs, s.opts.Rating, s.opts.Policy)
	sim := martingale.Simulate(recs, s.opts.Martingale, s.opts.Rating, s.opts.Policy)
	slog.Info("season report built",
		"matches", len(recs),
		"rated", acc.Applied(),
		"teams", acc.Teams().Len(),
		"players", acc.Players().Len(),
		"betting_days", sim.Days,
	)
	return &Report{
		Matches:       recs,
		TeamRatings:   acc.Teams().ByName(),
		PlayerRatings: acc.Players().ByName(),
		Martingale:    sim,
	}, nil
}

// sameTeam matches a team by id or, case-insensitively, by display name.
func sameTeam(t match.Team, ref string) bool {
	return t.ID == ref || strings.EqualFold(t.DisplayName, ref)
}

// Team aggregates the settled matches of one team over the season so far.
// TotalGames counts final games only; scheduled or live fixtures are skipped.
func (s *Service) Team(ctx context.Context, teamID string) (*TeamSummary, error) {
	recs, err := s.Matches(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	sum := &TeamSummary{TeamID: teamID, SeasonID: s.provider.SeasonID()}
	found := false
	for _, r := range recs {
		var us, them int
		switch {
		case sameTeam(r.HomeTeam, teamID):
			us, them = r.HomeScore, r.AwayScore
			sum.TeamName = r.HomeTeam.DisplayName
		case sameTeam(r.AwayTeam, teamID):
			us, them = r.AwayScore, r.HomeScore
			sum.TeamName = r.AwayTeam.DisplayName
		default:
			continue
		}
		found = true
		if !r.Final() {
			continue
		}
		sum.TotalGames++
		sum.GoalsFor += us
		sum.GoalsAgainst += them
		switch {
		case us > them:
			sum.Wins++
		case us < them:
			sum.Losses++
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return sum, nil
}

// HeadToHead returns the settled meetings of two teams, in either venue.
func (s *Service) HeadToHead(ctx context.Context, a, b string) (*HeadToHead, error) {
	recs, err := s.Matches(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	h := &HeadToHead{TeamA: a, TeamB: b, Meetings: []match.Record{}}
	for _, r := range recs {
		if !r.Final() {
			continue
		}
		var aScore, bScore int
		switch {
		case sameTeam(r.HomeTeam, a) && sameTeam(r.AwayTeam, b):
			aScore, bScore = r.HomeScore, r.AwayScore
		case sameTeam(r.HomeTeam, b) && sameTeam(r.AwayTeam, a):
			aScore, bScore = r.AwayScore, r.HomeScore
		default:
			continue
		}
		h.Meetings = append(h.Meetings, r)
		switch {
		case aScore > bScore:
			h.WinsA++
		case bScore > aScore:
			h.WinsB++
		}
	}
	if len(h.Meetings) == 0 {
		return nil, fmt.Errorf("%w: %s vs %s", ErrNoMeetings, a, b)
	}
	return h, nil
}
