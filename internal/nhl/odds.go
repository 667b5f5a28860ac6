package nhl

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Line is one bookmaker's moneyline for a game, in decimal odds.
type Line struct {
	Provider       string          `json:"provider"`
	HomeOdds       decimal.Decimal `json:"homeOdds"`
	AwayOdds       decimal.Decimal `json:"awayOdds"`
	HomeImpliedPct decimal.Decimal `json:"homeImpliedPct"`
	AwayImpliedPct decimal.Decimal `json:"awayImpliedPct"`
}

// OddsGame is a game with its partner lines.
type OddsGame struct {
	ID         string `json:"id"`
	StartTime  string `json:"startTime"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	Bookmakers []Line `json:"bookmakers"`
}

// price decodes a quoted or bare odds value.
type price string

func (p *price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*p = price(s)
	return nil
}

// ToDecimal converts an odds string to decimal odds. Values with an explicit
// sign or a magnitude of at least 100 are read as American odds.
func ToDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty odds")
	}
	v, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse odds %q: %w", s, err)
	}
	signed := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	if !signed && v.Abs().LessThan(hundred) {
		return v, nil
	}
	if v.IsPositive() {
		return one.Add(v.Div(hundred)), nil
	}
	if v.IsNegative() {
		return one.Add(hundred.Div(v.Abs())), nil
	}
	return decimal.Zero, fmt.Errorf("odds %q out of range", s)
}

// ImpliedPct returns the implied probability (0-100, one decimal place) of
// decimal odds. Odds of 1 or less yield zero.
func ImpliedPct(odds decimal.Decimal) decimal.Decimal {
	if !odds.GreaterThan(one) {
		return decimal.Zero
	}
	return hundred.Div(odds).Round(1)
}

func newLine(provider, home, away string) (Line, bool) {
	h, err := ToDecimal(home)
	if err != nil {
		return Line{}, false
	}
	a, err := ToDecimal(away)
	if err != nil {
		return Line{}, false
	}
	return Line{
		Provider:       provider,
		HomeOdds:       h,
		AwayOdds:       a,
		HomeImpliedPct: ImpliedPct(h),
		AwayImpliedPct: ImpliedPct(a),
	}, true
}

type oddsTeam struct {
	team
	Odds []struct {
		ProviderID int   `json:"providerId"`
		Value      price `json:"value"`
	} `json:"odds"`
}

// ParseOdds reads the partner-game document. Explicit partnerLines win; the
// per-team odds arrays are paired by provider otherwise. Unparseable lines are
// skipped.
func ParseOdds(body []byte) ([]OddsGame, error) {
	var doc struct {
		Games []struct {
			ID           int64    `json:"id"`
			StartTimeUTC string   `json:"startTimeUTC"`
			HomeTeam     oddsTeam `json:"homeTeam"`
			AwayTeam     oddsTeam `json:"awayTeam"`
			PartnerLines []struct {
				ProviderName string `json:"providerName"`
				Home         price  `json:"home"`
				Away         price  `json:"away"`
			} `json:"partnerLines"`
		} `json:"games"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode odds: %w", err)
	}
	out := make([]OddsGame, 0, len(doc.Games))
	for _, g := range doc.Games {
		og := OddsGame{
			ID:         strconv.FormatInt(g.ID, 10),
			StartTime:  g.StartTimeUTC,
			HomeTeam:   g.HomeTeam.displayName(""),
			AwayTeam:   g.AwayTeam.displayName(""),
			Bookmakers: []Line{},
		}
		for _, pl := range g.PartnerLines {
			if l, ok := newLine(pl.ProviderName, string(pl.Home), string(pl.Away)); ok {
				og.Bookmakers = append(og.Bookmakers, l)
			}
		}
		if len(g.PartnerLines) == 0 {
			away := make(map[int]string, len(g.AwayTeam.Odds))
			for _, o := range g.AwayTeam.Odds {
				away[o.ProviderID] = string(o.Value)
			}
			for _, o := range g.HomeTeam.Odds {
				a, ok := away[o.ProviderID]
				if !ok {
					continue
				}
				if l, ok := newLine("provider "+strconv.Itoa(o.ProviderID), string(o.Value), a); ok {
					og.Bookmakers = append(og.Bookmakers, l)
				}
			}
		}
		out = append(out, og)
	}
	return out, nil
}
