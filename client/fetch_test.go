package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupConcurrentRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{RetryDelay: time.Millisecond}

	const k = 5
	results := make([]string, k)
	errs := make([]error, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := f.Get(context.Background(), srv.URL, cfg)
			results[i], errs[i] = string(data), err
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
	for i := 0; i < k; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
		}
		if results[i] != `{"ok":true}` {
			t.Errorf("caller %d: result = %q", i, results[i])
		}
	}
}

func TestCacheServesFreshEntry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{CacheTime: time.Minute, RetryDelay: time.Millisecond}

	for i := 0; i < 3; i++ {
		if _, err := f.Get(context.Background(), srv.URL, cfg); err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
}

func TestStaleEntryTriggersRefetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{CacheTime: 20 * time.Millisecond, RetryDelay: time.Millisecond}

	f.Get(context.Background(), srv.URL, cfg)
	time.Sleep(30 * time.Millisecond)
	f.Get(context.Background(), srv.URL, cfg)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
}

func TestRetryExhaustion(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}

	if _, err := f.Get(context.Background(), srv.URL, cfg); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("network calls = %d, want exactly 3", got)
	}

	// 失敗後はキャッシュもpendingも残らず、次の呼び出しは最初からやり直す
	if _, err := f.Get(context.Background(), srv.URL, cfg); err == nil {
		t.Fatal("expected error on second call")
	}
	if got := atomic.LoadInt32(&calls); got != 6 {
		t.Errorf("network calls = %d, want 6", got)
	}
}

func TestRetrySucceedsBeforeExhaustion(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}

	data, err := f.Get(context.Background(), srv.URL, cfg)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("result = %q", data)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("network calls = %d, want 3", got)
	}
}

func TestExponentialBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher()
	base := 20 * time.Millisecond
	cfg := FetchConfig{RetryAttempts: 3, RetryDelay: base}

	start := time.Now()
	f.Get(context.Background(), srv.URL, cfg)
	elapsed := time.Since(start)

	// 待ち時間は base*2^0 + base*2^1 = 60ms 以上
	if elapsed < 3*base {
		t.Errorf("elapsed = %v, want at least %v (exponential backoff)", elapsed, 3*base)
	}
}

func TestCancellationAbortsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := f.Get(ctx, srv.URL, cfg); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("network calls = %d, want 1 (no retry after cancel)", got)
	}

	// キャンセルされた結果はキャッシュに残らない
	f.mu.Lock()
	_, cached := f.cache[srv.URL]
	pending := len(f.pending)
	f.mu.Unlock()
	if cached {
		t.Error("cancelled result must not be cached")
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func TestSilentRevalidateReturnsLastGoodValue(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) > 1 {
			<-release
			w.Write([]byte(`"second"`))
			return
		}
		w.Write([]byte(`"first"`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{CacheTime: 10 * time.Millisecond, RetryDelay: time.Millisecond, SilentRevalidate: true}

	data, err := f.Get(context.Background(), srv.URL, cfg)
	if err != nil || string(data) != `"first"` {
		t.Fatalf("first Get = %q, %v", data, err)
	}

	time.Sleep(20 * time.Millisecond)

	// 再取得中でも前回値が返る
	data, err = f.Get(context.Background(), srv.URL, cfg)
	if err != nil {
		t.Fatalf("stale Get failed: %v", err)
	}
	if string(data) != `"first"` {
		t.Errorf("stale Get = %q, want \"first\"", data)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err = f.Get(context.Background(), srv.URL, cfg)
		if err == nil && string(data) == `"second"` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("refreshed value never appeared, last = %q", data)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher()
	cfg := FetchConfig{CacheTime: time.Minute, RetryDelay: time.Millisecond}

	f.Get(context.Background(), srv.URL, cfg)
	f.Refresh(context.Background(), srv.URL, cfg)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"userId":"u1","unread":2}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	var out struct {
		UserID string `json:"userId"`
		Unread int    `json:"unread"`
	}
	if err := f.GetJSON(context.Background(), srv.URL, FetchConfig{}, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.UserID != "u1" || out.Unread != 2 {
		t.Errorf("out = %+v", out)
	}
}
