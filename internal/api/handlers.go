package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/nhl"
	"github.com/pitr77/extraliga/internal/standings"
)

func cacheable(c echo.Context) {
	c.Response().Header().Set("Cache-Control", CacheControl)
}

// parseDay reads an optional YYYY-MM-DD query parameter.
func parseDay(c echo.Context, name string) (time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(match.DateLayout, v)
	if err != nil {
		return time.Time{}, invalid("%s must be YYYY-MM-DD", name)
	}
	return t, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) matches(c echo.Context) error {
	from, err := parseDay(c, "from")
	if err != nil {
		return err
	}
	to, err := parseDay(c, "to")
	if err != nil {
		return err
	}
	report, err := s.season.Report(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	cacheable(c)
	return c.JSON(http.StatusOK, report)
}

func (s *Server) matchDetails(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("gameId"))
	if id == "" {
		return invalid("gameId is required")
	}
	d, err := s.upstream.Details(c.Request().Context(), id)
	if err != nil {
		return err
	}
	cacheable(c)
	return c.JSON(http.StatusOK, d)
}

func (s *Server) proxy(c echo.Context) error {
	url, ok := nhl.ProxyURL(c.QueryParam("type"))
	if !ok {
		return invalid("Unknown type")
	}
	body, err := s.upstream.Raw(c.Request().Context(), url)
	if err != nil {
		return err
	}
	cacheable(c)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// team reports a club's season record. TotalGames counts settled games only;
// scheduled fixtures are left out.
func (s *Server) team(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return invalid("team id is required")
	}
	sum, err := s.season.Team(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) standings(c echo.Context) error {
	body, err := s.upstream.Raw(c.Request().Context(), nhl.StandingsNowURL)
	if err != nil {
		return err
	}
	table, err := standings.Parse(body)
	if err != nil {
		return err
	}
	cacheable(c)
	return c.JSON(http.StatusOK, table)
}

func (s *Server) predictions(c echo.Context) error {
	games, err := s.upstream.Odds(c.Request().Context())
	if err != nil {
		return err
	}
	cacheable(c)
	return c.JSON(http.StatusOK, map[string][]nhl.OddsGame{"games": games})
}

func (s *Server) headToHead(c echo.Context) error {
	home := strings.TrimSpace(c.QueryParam("home"))
	away := strings.TrimSpace(c.QueryParam("away"))
	if home == "" || away == "" {
		return invalid("home and away are required")
	}
	h, err := s.season.HeadToHead(c.Request().Context(), home, away)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h)
}
