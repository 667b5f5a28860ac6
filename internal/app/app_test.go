package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pitr77/extraliga/internal/cache"
	"github.com/pitr77/extraliga/internal/config"
	"github.com/pitr77/extraliga/internal/nhl"
)

type roundTripperFunc struct {
	fn func(*http.Request) (*http.Response, error)
}

func (r *roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return r.fn(req)
}

func redirectTo(server *httptest.Server) *http.Client {
	return &http.Client{
		Transport: &roundTripperFunc{fn: func(req *http.Request) (*http.Response, error) {
			req.URL.Host = server.Listener.Addr().String()
			req.URL.Scheme = "http"
			return http.DefaultTransport.RoundTrip(req)
		}},
	}
}

func TestNew_WithRedisStoresRawPayloads(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/standings/now") {
			w.Write([]byte(`{"standings":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	t.Setenv("REDIS_ADDR", mr.Addr())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	a, err := New(context.Background(), cfg, Options{HTTPClient: redirectTo(server)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Redis == nil {
		t.Fatal("Redis = nil; want external cache")
	}
	if _, err := a.NHL.Raw(context.Background(), nhl.StandingsNowURL); err != nil {
		t.Fatalf("Raw: %v", err)
	}
	got, err := mr.Get(cache.Key(nhl.StandingsNowURL))
	if err != nil {
		t.Fatalf("redis get: %v", err)
	}
	if got != `{"standings":[]}` {
		t.Errorf("stored = %q", got)
	}
	if ttl := mr.TTL(cache.Key(nhl.StandingsNowURL)); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v; want (0, 1m]", ttl)
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	t.Setenv("REDIS_ADDR", addr)
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("New succeeded against a closed redis")
	}
}

func TestNew_MemoryOnly(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	a, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Redis != nil {
		t.Error("Redis != nil without REDIS_ADDR")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
