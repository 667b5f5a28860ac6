package rating

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitr77/extraliga/internal/match"
)

func final(id, date, home, away string, hs, as int, players ...match.PlayerLine) match.Record {
	return match.Record{
		ID:        id,
		Date:      date,
		StartTime: match.StartFromDate(date),
		HomeTeam:  match.Team{DisplayName: home},
		AwayTeam:  match.Team{DisplayName: away},
		HomeScore: hs,
		AwayScore: as,
		Status:    match.StatusFinal,
		Players:   players,
	}
}

func TestScenario_SingleWin(t *testing.T) {
	a := Compute([]match.Record{final("1", "2025-10-08", "A", "B", 3, 1)}, DefaultConfig(), match.IdentityByID)
	assert.Equal(t, map[string]int64{"A": 1530, "B": 1470}, a.Teams().ByName())
}

func TestScenario_PlayerLine(t *testing.T) {
	x := match.PlayerLine{Name: "X", Goals: 2, Assists: 1}
	a := Compute([]match.Record{final("1", "2025-10-08", "A", "B", 3, 1, x)}, DefaultConfig(), match.IdentityByID)
	got, ok := a.Players().Get("X")
	require.True(t, ok)
	assert.Equal(t, int64(1550), got)
}

func TestTieAppliesNoBonus(t *testing.T) {
	a := Compute([]match.Record{final("1", "2025-10-08", "A", "B", 2, 2)}, DefaultConfig(), match.IdentityByID)
	assert.Equal(t, map[string]int64{"A": 1500, "B": 1500}, a.Teams().ByName())
}

func TestZeroStatPlayerInitialized(t *testing.T) {
	z := match.PlayerLine{ID: "99", Name: "Zero"}
	a := Compute([]match.Record{final("1", "2025-10-08", "A", "B", 1, 0, z)}, DefaultConfig(), match.IdentityByID)
	got, ok := a.Players().Get("99")
	require.True(t, ok, "zero-stat player must be initialized")
	assert.Equal(t, int64(1500), got)
}

func TestOnlyFinalMatchesCount(t *testing.T) {
	live := final("2", "2025-10-09", "A", "B", 5, 0)
	live.Status = match.StatusInProgress
	a := NewAccumulator(DefaultConfig(), match.IdentityByID)

	assert.False(t, a.Apply(live))
	assert.Equal(t, 0, a.Teams().Len())
	assert.True(t, a.Apply(final("1", "2025-10-08", "A", "B", 0, 1)))
	assert.Equal(t, 1, a.Applied())
	assert.Equal(t, map[string]int64{"A": 1480, "B": 1520}, a.Teams().ByName())
}

func TestCustomConstants(t *testing.T) {
	cfg := Config{StartRating: 1000, GoalPoints: 5, WinPoints: 3, LossPoints: -2, PlayerGoalPoints: 7, PlayerAssistPoints: 1}
	p := match.PlayerLine{Name: "P", Goals: 1, Assists: 2}
	a := Compute([]match.Record{final("1", "2025-10-08", "A", "B", 2, 1, p)}, cfg, match.IdentityByName)
	assert.Equal(t, map[string]int64{"A": 1008, "B": 993}, a.Teams().ByName())
	got, _ := a.Players().Get("P")
	assert.Equal(t, int64(1009), got)
}

func TestSortedInputIsOrderIndependent(t *testing.T) {
	p := func(name string, g, as int) match.PlayerLine { return match.PlayerLine{Name: name, Goals: g, Assists: as} }
	recs := []match.Record{
		final("1", "2025-10-08", "A", "B", 3, 1, p("X", 1, 0)),
		final("2", "2025-10-09", "B", "C", 2, 2, p("Y", 0, 2)),
		final("3", "2025-10-10", "C", "A", 4, 0, p("X", 0, 1), p("Z", 2, 0)),
		final("4", "2025-10-11", "A", "B", 1, 5),
		final("5", "2025-10-12", "B", "C", 0, 3, p("Y", 1, 1)),
	}
	want := Compute(recs, DefaultConfig(), match.IdentityByName)

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		shuffled := append([]match.Record(nil), recs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		match.SortChronological(shuffled)
		got := Compute(shuffled, DefaultConfig(), match.IdentityByName)
		assert.Equal(t, want.Teams().ByName(), got.Teams().ByName())
		assert.Equal(t, want.Players().ByName(), got.Players().ByName())
	}
}

func TestRankedTiesKeepFirstSeenOrder(t *testing.T) {
	tb := NewTable(1500)
	tb.Add("b", "B", 10)
	tb.Add("a", "A", 10)
	tb.Add("c", "C", 30)
	tb.Ensure("d", "D")

	var keys []string
	for _, e := range tb.Ranked() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, keys)
	assert.Len(t, tb.Top(2), 2)
	assert.Len(t, tb.Top(10), 4)
}

func TestByNameDisambiguatesSharedNames(t *testing.T) {
	tb := NewTable(1500)
	tb.Add("1", "Sebastian Aho", 20)
	tb.Add("2", "Sebastian Aho", 10)
	got := tb.ByName()
	assert.Equal(t, int64(1520), got["Sebastian Aho (1)"])
	assert.Equal(t, int64(1510), got["Sebastian Aho (2)"])
}

func TestIdentityByNameMergesPlayers(t *testing.T) {
	recs := []match.Record{
		final("1", "2025-10-08", "CAR", "NYI", 2, 1, match.PlayerLine{ID: "8478427", Name: "Sebastian Aho", Goals: 1}),
		final("2", "2025-10-09", "NYI", "CAR", 2, 1, match.PlayerLine{ID: "8480222", Name: "Sebastian Aho", Goals: 1}),
	}
	byName := Compute(recs, DefaultConfig(), match.IdentityByName)
	assert.Equal(t, 1, byName.Players().Len())
	got, _ := byName.Players().Get("Sebastian Aho")
	assert.Equal(t, int64(1540), got)

	byID := Compute(recs, DefaultConfig(), match.IdentityByID)
	assert.Equal(t, 2, byID.Players().Len())
}

func TestTeamKeyPrefersID(t *testing.T) {
	assert.Equal(t, "13", TeamKey(match.Team{ID: "13", DisplayName: "Panthers"}))
	assert.Equal(t, "Panthers", TeamKey(match.Team{DisplayName: "Panthers"}))
}

func TestRankNames(t *testing.T) {
	got := RankNames(map[string]int64{"Sabres": 1480, "Bruins": 1520, "Canadiens": 1480})
	require.Len(t, got, 3)
	assert.Equal(t, "Bruins", got[0].Name)
	assert.Equal(t, "Canadiens", got[1].Name)
	assert.Equal(t, "Sabres", got[2].Name)
	assert.Empty(t, RankNames(nil))
}
