package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore is an in-memory Store for exercising the second tier.
type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	return d, ok, nil
}

func (s *memStore) Save(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	s.saves++
	return nil
}

func TestCache_CoalescesConcurrentRequests(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`{"standings":[]}`))
	}))
	defer server.Close()

	f := testFetcher(server, Options{}, NewCache(time.Minute, nil))

	const callers = 8
	var wg sync.WaitGroup
	bodies := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bodies[i], errs[i] = f.Get(context.Background(), Request{URL: server.URL + "/v1/standings/now"})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if string(bodies[i]) != `{"standings":[]}` {
			t.Errorf("caller %d body = %s", i, bodies[i])
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream calls = %d; want 1", got)
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := NewCache(time.Minute, nil)
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var fills int
	fill := func(context.Context) ([]byte, error) {
		fills++
		return []byte(`{}`), nil
	}
	ctx := context.Background()

	if _, err := c.Get(ctx, "k", fill); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(30 * time.Second)
	if _, err := c.Get(ctx, "k", fill); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fills != 1 {
		t.Errorf("fills within TTL = %d; want 1", fills)
	}
	now = now.Add(31 * time.Second)
	if _, err := c.Get(ctx, "k", fill); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fills != 2 {
		t.Errorf("fills after TTL = %d; want 2", fills)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache(time.Minute, nil)
	boom := errors.New("boom")
	calls := 0
	fill := func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []byte(`{}`), nil
	}
	if _, err := c.Get(context.Background(), "k", fill); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
	if _, err := c.Get(context.Background(), "k", fill); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d; want 2", calls)
	}
}

func TestCache_SecondTier(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	fills := 0
	fill := func(context.Context) ([]byte, error) {
		fills++
		return []byte(`{"games":[1]}`), nil
	}

	first := NewCache(time.Minute, store)
	if _, err := first.Get(ctx, "score/2025-10-08", fill); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d; want 1", store.saves)
	}

	// A fresh process shares the store and must not go upstream.
	second := NewCache(time.Minute, store)
	got, err := second.Get(ctx, "score/2025-10-08", fill)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"games":[1]}` {
		t.Errorf("got = %s", got)
	}
	if fills != 1 {
		t.Errorf("fills = %d; want 1", fills)
	}
}

func TestCache_FillIsDetachedButBounded(t *testing.T) {
	c := NewCache(time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var deadline time.Time
	var hasDeadline bool
	_, err := c.Get(ctx, "k", func(fillCtx context.Context) ([]byte, error) {
		cancel()
		if fillCtx.Err() != nil {
			t.Errorf("fill ctx err = %v after caller cancel; want nil", fillCtx.Err())
		}
		deadline, hasDeadline = fillCtx.Deadline()
		return []byte(`{}`), nil
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hasDeadline {
		t.Fatal("fill ctx has no deadline")
	}
	if left := time.Until(deadline); left <= 0 || left > DefaultFillTimeout {
		t.Errorf("fill deadline in %v; want within %v", left, DefaultFillTimeout)
	}
}

func TestWarmingCache_AlwaysRefreshesStore(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	fills := 0
	fill := func(context.Context) ([]byte, error) {
		fills++
		return []byte(`{}`), nil
	}

	c := NewWarmingCache(time.Minute, store)
	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, "score/2025-10-08", fill); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if fills != 3 {
		t.Errorf("fills = %d; want 3", fills)
	}
	if store.saves != 3 {
		t.Errorf("saves = %d; want 3", store.saves)
	}
}
