// Package martingale replays settled matches day by day, staking on the
// current top-rated players with a doubling-on-loss strategy.
package martingale

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/rating"
)

// Outcome is the result of a player's last settled bet.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Config holds the staking parameters.
type Config struct {
	Odds      decimal.Decimal
	BaseStake decimal.Decimal
	// MaxStake caps the stake after a loss. Zero means no cap.
	MaxStake decimal.Decimal
	TopN     int
}

// DefaultConfig returns odds 2.5, a base stake of 1, no cap and the top 3.
func DefaultConfig() Config {
	return Config{
		Odds:      decimal.RequireFromString("2.5"),
		BaseStake: decimal.NewFromInt(1),
		MaxStake:  decimal.Zero,
		TopN:      3,
	}
}

// LogEntry is one day's settlement for one player.
type LogEntry struct {
	Date           string          `json:"date"`
	StakeBefore    decimal.Decimal `json:"stakeBefore"`
	Goals          int             `json:"goals"`
	Outcome        Outcome         `json:"outcome"`
	AmountReturned decimal.Decimal `json:"amountReturned"`
	NewStake       decimal.Decimal `json:"newStake"`
}

// Account is the staking state of one player.
type Account struct {
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	Stake         decimal.Decimal `json:"stake"`
	TotalStaked   decimal.Decimal `json:"totalStaked"`
	TotalReturned decimal.Decimal `json:"totalReturned"`
	LastOutcome   Outcome         `json:"lastOutcome"`
	Log           []LogEntry      `json:"log"`
}

func newAccount(key, name string, base decimal.Decimal) *Account {
	return &Account{
		Key:           key,
		Name:          name,
		Stake:         base,
		TotalStaked:   decimal.Zero,
		TotalReturned: decimal.Zero,
		Log:           []LogEntry{},
	}
}

// Pick is a top-rated player with the state of their account.
type Pick struct {
	Rating int64           `json:"rating"`
	Odds   decimal.Decimal `json:"odds"`
	Account
}

// Summary aggregates every account that ever staked.
type Summary struct {
	TotalStaked   decimal.Decimal `json:"totalStaked"`
	TotalReturned decimal.Decimal `json:"totalReturned"`
	Profit        decimal.Decimal `json:"profit"`
	Odds          decimal.Decimal `json:"odds"`
}

// Result is the outcome of a simulation.
type Result struct {
	Top3    []Pick  `json:"top3"`
	Summary Summary `json:"summary"`
	Days    int     `json:"days"`
}

// Simulator runs the day-by-day replay.
type Simulator struct {
	cfg      Config
	ratings  rating.Config
	policy   match.IdentityPolicy
	accounts map[string]*Account
	order    []string
}

// NewSimulator returns a simulator. Player ratings used for selection follow
// rcfg and policy.
func NewSimulator(cfg Config, rcfg rating.Config, policy match.IdentityPolicy) *Simulator {
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	return &Simulator{
		cfg:      cfg,
		ratings:  rcfg,
		policy:   policy,
		accounts: make(map[string]*Account),
	}
}

type day struct {
	date    string
	matches []match.Record
}

// byDay groups final matches with a roster by UTC calendar day, days
// ascending. Matches without player data cannot settle a bet and are left out,
// as are matches with neither a start time nor a date.
func byDay(records []match.Record) []day {
	index := make(map[string]int)
	var days []day
	for _, r := range records {
		if !r.Final() || len(r.Players) == 0 {
			continue
		}
		d := r.Day()
		if d == "" {
			slog.Warn("match without date left out of replay", "game_id", r.ID)
			continue
		}
		i, ok := index[d]
		if !ok {
			i = len(days)
			index[d] = i
			days = append(days, day{date: d})
		}
		days[i].matches = append(days[i].matches, r)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].date < days[j].date })
	return days
}

// Run replays records, which must be in chronological order. The top-N is
// chosen before each day from ratings built on prior days only; equal ratings
// rank in first-seen order.
func (s *Simulator) Run(records []match.Record) Result {
	running := rating.NewTable(s.ratings.StartRating)
	days := byDay(records)
	for _, d := range days {
		for _, e := range running.Top(s.cfg.TopN) {
			acct := s.account(e.Key, e.Name)
			if goals, played := s.goalsOn(d, e.Key); played {
				s.settle(acct, d.date, goals)
			}
		}
		for _, m := range d.matches {
			for _, pl := range m.Players {
				running.Add(s.policy.Key(pl), pl.Name, s.ratings.PlayerDelta(pl))
			}
		}
	}

	res := Result{Top3: []Pick{}, Days: len(days), Summary: s.summary()}
	for _, e := range running.Top(s.cfg.TopN) {
		acct, ok := s.accounts[e.Key]
		if !ok {
			acct = newAccount(e.Key, e.Name, s.cfg.BaseStake)
		}
		res.Top3 = append(res.Top3, Pick{Rating: e.Rating, Odds: s.cfg.Odds, Account: *acct})
	}
	return res
}

func (s *Simulator) account(key, name string) *Account {
	if a, ok := s.accounts[key]; ok {
		return a
	}
	a := newAccount(key, name, s.cfg.BaseStake)
	s.accounts[key] = a
	s.order = append(s.order, key)
	return a
}

// goalsOn sums the player's goals over the day and reports whether they
// dressed at all.
func (s *Simulator) goalsOn(d day, key string) (int, bool) {
	goals, played := 0, false
	for _, m := range d.matches {
		for _, pl := range m.Players {
			if s.policy.Key(pl) == key {
				played = true
				goals += pl.Goals
			}
		}
	}
	return goals, played
}

func (s *Simulator) settle(a *Account, date string, goals int) {
	before := a.Stake
	a.TotalStaked = a.TotalStaked.Add(before)
	entry := LogEntry{Date: date, StakeBefore: before, Goals: goals, AmountReturned: decimal.Zero}
	if goals > 0 {
		won := before.Mul(s.cfg.Odds)
		a.TotalReturned = a.TotalReturned.Add(won)
		a.Stake = s.cfg.BaseStake
		a.LastOutcome = OutcomeWon
		entry.AmountReturned = won
	} else {
		next := before.Add(before)
		if s.cfg.MaxStake.IsPositive() && next.GreaterThan(s.cfg.MaxStake) {
			next = s.cfg.MaxStake
		}
		a.Stake = next
		a.LastOutcome = OutcomeLost
	}
	entry.Outcome = a.LastOutcome
	entry.NewStake = a.Stake
	a.Log = append(a.Log, entry)
}

func (s *Simulator) summary() Summary {
	staked, returned := decimal.Zero, decimal.Zero
	for _, k := range s.order {
		staked = staked.Add(s.accounts[k].TotalStaked)
		returned = returned.Add(s.accounts[k].TotalReturned)
	}
	return Summary{
		TotalStaked:   staked,
		TotalReturned: returned,
		Profit:        returned.Sub(staked),
		Odds:          s.cfg.Odds,
	}
}

// Account returns a copy of the account for key, if one was opened.
func (s *Simulator) Account(key string) (Account, bool) {
	a, ok := s.accounts[key]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Simulate runs a fresh simulator over records.
func Simulate(records []match.Record, cfg Config, rcfg rating.Config, policy match.IdentityPolicy) Result {
	return NewSimulator(cfg, rcfg, policy).Run(records)
}
