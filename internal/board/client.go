package board

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/season"
)

// Client reads the season report from a running API server.
type Client struct {
	base    string
	fetcher *fetch.Fetcher
}

// NewClient returns a client for the server at base, e.g. http://localhost:8080.
func NewClient(f *fetch.Fetcher, base string) *Client {
	return &Client{base: strings.TrimRight(base, "/"), fetcher: f}
}

// Report fetches /api/matches. Zero from or to leave the bound to the server.
func (c *Client) Report(ctx context.Context, from, to time.Time) (*season.Report, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Format(match.DateLayout))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(match.DateLayout))
	}
	u := c.base + "/api/matches"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rep season.Report
	if err := c.fetcher.GetJSON(ctx, u, &rep); err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return &rep, nil
}
