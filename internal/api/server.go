// Package api serves the board's JSON endpoints over echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pitr77/extraliga/internal/nhl"
	"github.com/pitr77/extraliga/internal/season"
)

// CacheControl is sent on every cacheable upstream-derived response.
const CacheControl = "s-maxage=60, stale-while-revalidate=30"

var (
	// ErrInvalidRequest marks client errors, answered with 400.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks unknown resources, answered with 404.
	ErrNotFound = errors.New("not found")
)

// requestError carries a client-facing message and the sentinel it maps to.
type requestError struct {
	kind error
	msg  string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.kind }

func invalid(format string, args ...any) error {
	return &requestError{kind: ErrInvalidRequest, msg: fmt.Sprintf(format, args...)}
}

// Season is the season-level data the API reads.
type Season interface {
	Report(ctx context.Context, from, to time.Time) (*season.Report, error)
	Team(ctx context.Context, id string) (*season.TeamSummary, error)
	HeadToHead(ctx context.Context, a, b string) (*season.HeadToHead, error)
}

// Upstream is the NHL web API as seen by the handlers.
type Upstream interface {
	Raw(ctx context.Context, url string) ([]byte, error)
	Details(ctx context.Context, gameID string) (*nhl.Details, error)
	Odds(ctx context.Context) ([]nhl.OddsGame, error)
}

// Server wires the handlers into an echo instance.
type Server struct {
	echo     *echo.Echo
	season   Season
	upstream Upstream
}

// New builds the router with its middleware.
func New(s Season, u Upstream) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))

	srv := &Server{echo: e, season: s, upstream: u}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)

	g := s.echo.Group("/api")
	g.GET("/matches", s.matches)
	g.GET("/match-details", s.matchDetails)
	g.GET("/nhl-proxy", s.proxy)
	g.GET("/team/:id", s.team)
	g.GET("/standings", s.standings)
	g.GET("/predictions", s.predictions)
	g.GET("/head-to-head", s.headToHead)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// statusOf maps an error to its response status.
func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, season.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, nhl.ErrGameNotFound),
		errors.Is(err, season.ErrTeamNotFound), errors.Is(err, season.ErrNoMeetings):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusOf(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		slog.Error("handler error", "path", c.Path(), "error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		slog.Warn("write error response", "error", err)
	}
}

// jsonSerializer swaps echo's encoding/json for goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}
