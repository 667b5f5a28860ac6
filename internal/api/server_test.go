package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/nhl"
	"github.com/pitr77/extraliga/internal/season"
)

type fakeSeason struct {
	from, to time.Time
	err      error
	panics   bool
}

func (f *fakeSeason) Report(_ context.Context, from, to time.Time) (*season.Report, error) {
	if f.panics {
		panic("boom")
	}
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	return &season.Report{
		Matches:       []match.Record{{ID: "1", Status: match.StatusFinal}},
		TeamRatings:   map[string]int64{"Bruins": 1530},
		PlayerRatings: map[string]int64{},
	}, nil
}

func (f *fakeSeason) Team(_ context.Context, id string) (*season.TeamSummary, error) {
	if id != "6" {
		return nil, season.ErrTeamNotFound
	}
	return &season.TeamSummary{TeamID: "6", SeasonID: "20252026", TotalGames: 2, Wins: 1}, nil
}

func (f *fakeSeason) HeadToHead(_ context.Context, a, b string) (*season.HeadToHead, error) {
	return nil, season.ErrNoMeetings
}

type fakeUpstream struct {
	urls []string
	raw  map[string]string
}

func (f *fakeUpstream) Raw(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	body, ok := f.raw[url]
	if !ok {
		return nil, errors.New("upstream unavailable")
	}
	return []byte(body), nil
}

func (f *fakeUpstream) Details(_ context.Context, id string) (*nhl.Details, error) {
	return &nhl.Details{ID: id, HomeScore: 3, PeriodScores: []match.PeriodScore{}}, nil
}

func (f *fakeUpstream) Odds(context.Context) ([]nhl.OddsGame, error) {
	return []nhl.OddsGame{{ID: "7", HomeTeam: "Rangers", AwayTeam: "Devils", Bookmakers: []nhl.Line{}}}, nil
}

func do(t *testing.T, srv *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	rec := do(t, New(&fakeSeason{}, &fakeUpstream{}), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id")
	}
}

func TestMatches(t *testing.T) {
	fs := &fakeSeason{}
	rec := do(t, New(fs, &fakeUpstream{}), "/api/matches?from=2025-10-08&to=2025-10-10", "Origin", "https://example.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != CacheControl {
		t.Errorf("Cache-Control = %q; want %q", got, CacheControl)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q; want *", got)
	}
	if fs.from.Format(match.DateLayout) != "2025-10-08" || fs.to.Format(match.DateLayout) != "2025-10-10" {
		t.Errorf("window = %v..%v", fs.from, fs.to)
	}
	var body struct {
		Matches     []match.Record   `json:"matches"`
		TeamRatings map[string]int64 `json:"teamRatings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Matches) != 1 || body.TeamRatings["Bruins"] != 1530 {
		t.Errorf("body = %+v", body)
	}
}

func TestMatches_BadDate(t *testing.T) {
	rec := do(t, New(&fakeSeason{}, &fakeUpstream{}), "/api/matches?from=10/08/2025")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
	if got := errorBody(t, rec); got != "from must be YYYY-MM-DD" {
		t.Errorf("error = %q", got)
	}
}

func TestMatches_InvalidRange(t *testing.T) {
	rec := do(t, New(&fakeSeason{err: season.ErrInvalidRange}, &fakeUpstream{}), "/api/matches")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMatches_UpstreamFailure(t *testing.T) {
	rec := do(t, New(&fakeSeason{err: errors.New("no score page could be read")}, &fakeUpstream{}), "/api/matches")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := errorBody(t, rec); got != "no score page could be read" {
		t.Errorf("error = %q", got)
	}
}

func TestRecoversFromPanic(t *testing.T) {
	rec := do(t, New(&fakeSeason{panics: true}, &fakeUpstream{}), "/api/matches")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestMatchDetails(t *testing.T) {
	srv := New(&fakeSeason{}, &fakeUpstream{})
	if rec := do(t, srv, "/api/match-details"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing gameId status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
	rec := do(t, srv, "/api/match-details?gameId=2025020001")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"id":"2025020001"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

type roundTripperFunc struct {
	fn func(*http.Request) (*http.Response, error)
}

func (r *roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return r.fn(req)
}

func TestMatchDetails_UnknownGame(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Game not found"}`))
	}))
	defer upstream.Close()

	httpClient := &http.Client{
		Transport: &roundTripperFunc{fn: func(req *http.Request) (*http.Response, error) {
			req.URL.Host = upstream.Listener.Addr().String()
			req.URL.Scheme = "http"
			return http.DefaultTransport.RoundTrip(req)
		}},
	}
	client := nhl.NewClient(fetch.New(httpClient, fetch.Options{MaxAttempts: 1}, nil))

	rec := do(t, New(&fakeSeason{}, client), "/api/match-details?gameId=999999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
	if got := errorBody(t, rec); got != "game not found: 999999" {
		t.Errorf("error = %q", got)
	}
}

func TestProxy(t *testing.T) {
	up := &fakeUpstream{raw: map[string]string{
		nhl.ScoreboardNowURL: `{"gamesByDate":[]}`,
		nhl.StandingsNowURL:  `{"standings":[]}`,
	}}
	srv := New(&fakeSeason{}, up)

	rec := do(t, srv, "/api/nhl-proxy")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != `{"gamesByDate":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != CacheControl {
		t.Errorf("Cache-Control = %q; want %q", got, CacheControl)
	}

	rec = do(t, srv, "/api/nhl-proxy?type=standings")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"standings":[]}` {
		t.Errorf("standings proxy = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, "/api/nhl-proxy?type=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
	if got := errorBody(t, rec); got != "Unknown type" {
		t.Errorf("error = %q; want Unknown type", got)
	}

	rec = do(t, srv, "/api/nhl-proxy?type=odds")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestTeam(t *testing.T) {
	srv := New(&fakeSeason{}, &fakeUpstream{})
	rec := do(t, srv, "/api/team/6")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"totalGames":2`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := do(t, srv, "/api/team/99"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown team status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStandings(t *testing.T) {
	up := &fakeUpstream{raw: map[string]string{nhl.StandingsNowURL: `{"standings":[
	  {"teamName": {"default": "Sabres"}, "gamesPlayed": 3, "wins": 1, "losses": 2, "points": 2},
	  {"teamName": {"default": "Bruins"}, "gamesPlayed": 3, "wins": 3, "losses": 0, "points": 6}
	]}`}}
	rec := do(t, New(&fakeSeason{}, up), "/api/standings")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var table struct {
		Rows []struct {
			Team   string `json:"team"`
			Points int    `json:"points"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &table); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(table.Rows) != 2 || table.Rows[0].Team != "Bruins" {
		t.Errorf("rows = %+v", table.Rows)
	}
}

func TestPredictions(t *testing.T) {
	rec := do(t, New(&fakeSeason{}, &fakeUpstream{}), "/api/predictions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"games":[{"id":"7"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHeadToHead(t *testing.T) {
	srv := New(&fakeSeason{}, &fakeUpstream{})
	if rec := do(t, srv, "/api/head-to-head?home=6"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing away status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := do(t, srv, "/api/head-to-head?home=6&away=7"); rec.Code != http.StatusNotFound {
		t.Errorf("no meetings status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, New(&fakeSeason{}, &fakeUpstream{}), "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}
