package standings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teams(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Team)
	}
	return out
}

func TestParse_V1(t *testing.T) {
	doc := `{"wildCardIndicator": true, "standings": [
	  {"teamName": {"default": "Toronto Maple Leafs"}, "teamAbbrev": {"default": "TOR"}, "gamesPlayed": 10, "wins": 6, "losses": 3, "otLosses": 1, "points": 13},
	  {"teamName": {"default": "Florida Panthers"}, "teamAbbrev": {"default": "FLA"}, "gamesPlayed": 10, "wins": 7, "losses": 2, "otLosses": 1, "points": 15},
	  {"teamAbbrev": {"default": "UTA"}, "gamesPlayed": 9, "points": 13}
	]}`
	tbl, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, VersionV1, tbl.Version)
	assert.Equal(t, []string{"Florida Panthers", "Toronto Maple Leafs", "UTA"}, teams(tbl.Rows))
	assert.Equal(t, Row{Team: "Florida Panthers", Abbrev: "FLA", GamesPlayed: 10, Wins: 7, Losses: 2, OTLosses: 1, Points: 15}, tbl.Rows[0])
}

func TestParse_LegacyPrefersOverallSection(t *testing.T) {
	doc := `{"standings": [
	  {"standingsType": "divisionLeaders", "teamRecords": [{"teamName": {"default": "Only Division"}, "points": 99}]},
	  {"standingsType": "byLeague", "teamRecords": [
	    {"team": {"name": "Boston Bruins", "abbrev": "BOS"}, "gp": 5, "w": 3, "l": 2, "pts": 6},
	    {"teamCommonName": {"default": "Rangers"}, "gamesPlayed": 5, "wins": 4, "losses": 1, "points": 8}
	  ]}
	]}`
	tbl, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, VersionLegacy, tbl.Version)
	assert.Equal(t, []string{"Rangers", "Boston Bruins"}, teams(tbl.Rows))
	assert.Equal(t, Row{Team: "Boston Bruins", Abbrev: "BOS", GamesPlayed: 5, Wins: 3, Losses: 2, Points: 6}, tbl.Rows[1])
}

func TestParse_LegacyFirstNonEmptySection(t *testing.T) {
	doc := `{"standings": [
	  {"type": "conference", "teamRecords": [{"teamName": "Oilers", "points": 4}, {"teamName": "Flames", "points": 6}]}
	]}`
	tbl, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, VersionLegacy, tbl.Version)
	assert.Equal(t, []string{"Flames", "Oilers"}, teams(tbl.Rows))
}

func TestParse_DeepScanFallback(t *testing.T) {
	doc := `{"data": {"groups": [
	  {"label": "x", "rows": [{"abbrev": "SEA", "pointTotal": 3, "games": 4}]},
	  {"label": "y", "rows": [
	    {"team": {"commonName": "Kraken"}, "pts": 7, "gp": 6, "w": 3, "l": 2},
	    {"team": {"commonName": "Canucks"}, "pts": 9, "gp": 6, "w": 4, "l": 1}
	  ]}
	]}}`
	tbl, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, VersionDeepScan, tbl.Version)
	assert.Equal(t, []string{"Canucks", "Kraken"}, teams(tbl.Rows))
	assert.Equal(t, Row{Team: "Canucks", GamesPlayed: 6, Wins: 4, Losses: 1, Points: 9}, tbl.Rows[0])
}

func TestParse_NothingFound(t *testing.T) {
	_, err := Parse([]byte(`{"standings": [], "meta": {"season": 20252026}}`))
	assert.ErrorIs(t, err, ErrNoStandings)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.Error(t, err)
}
