// Package client はダッシュボード側のコア（リクエストキャッシュ、
// プッシュチャネル、会話キャッシュ）を提供します。
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// FetchConfig はキャッシュとリトライの設定。ゼロ値には既定が入る。
type FetchConfig struct {
	CacheTime        time.Duration // 鮮度の窓。既定1分
	RetryAttempts    int           // 総試行回数。既定3
	RetryDelay       time.Duration // バックオフの基準。既定1秒
	SilentRevalidate bool          // 期限切れでも前回値を返しつつ裏で再取得する
}

func (c FetchConfig) withDefaults() FetchConfig {
	if c.CacheTime == 0 {
		c.CacheTime = time.Minute
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	return c
}

type cacheEntry struct {
	data      json.RawMessage
	timestamp time.Time
}

// pendingRequest は実行中のリクエスト。同じキーの呼び出しは
// 新しいリクエストを発行せずこれに相乗りする。
type pendingRequest struct {
	done chan struct{}
	data json.RawMessage
	err  error
}

// Fetcher はGETリクエストをキャッシュ・重複排除・リトライ付きで実行します
type Fetcher struct {
	http    *resty.Client
	mu      sync.Mutex
	cache   map[string]cacheEntry
	pending map[string]*pendingRequest
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		http:    resty.New(),
		cache:   make(map[string]cacheEntry),
		pending: make(map[string]*pendingRequest),
	}
}

// Get はURLをキーにキャッシュを参照し、必要なら取得します。
// 同じキーのリクエストが実行中なら相乗りし、結果を共有する。
func (f *Fetcher) Get(ctx context.Context, url string, cfg FetchConfig) (json.RawMessage, error) {
	cfg = cfg.withDefaults()

	f.mu.Lock()
	if entry, ok := f.cache[url]; ok && time.Since(entry.timestamp) < cfg.CacheTime {
		f.mu.Unlock()
		return entry.data, nil
	}
	if p, ok := f.pending[url]; ok {
		f.mu.Unlock()
		return waitPending(ctx, p)
	}
	if entry, ok := f.cache[url]; ok && cfg.SilentRevalidate {
		// 期限切れ。前回値を返しつつ裏で再取得する。
		p := f.startLocked(url)
		f.mu.Unlock()
		go f.run(context.Background(), url, cfg, p)
		return entry.data, nil
	}
	p := f.startLocked(url)
	f.mu.Unlock()

	f.run(ctx, url, cfg, p)
	return p.data, p.err
}

// GetJSON はGetの結果をvへデコードします
func (f *Fetcher) GetJSON(ctx context.Context, url string, cfg FetchConfig, v interface{}) error {
	data, err := f.Get(ctx, url, cfg)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Refresh は鮮度に関係なく再取得します（実行中のリクエストには相乗り）
func (f *Fetcher) Refresh(ctx context.Context, url string, cfg FetchConfig) (json.RawMessage, error) {
	cfg = cfg.withDefaults()

	f.mu.Lock()
	if p, ok := f.pending[url]; ok {
		f.mu.Unlock()
		return waitPending(ctx, p)
	}
	p := f.startLocked(url)
	f.mu.Unlock()

	f.run(ctx, url, cfg, p)
	return p.data, p.err
}

// Invalidate は1キーのキャッシュを破棄します
func (f *Fetcher) Invalidate(url string) {
	f.mu.Lock()
	delete(f.cache, url)
	f.mu.Unlock()
}

// ClearCache は全キャッシュを破棄します
func (f *Fetcher) ClearCache() {
	f.mu.Lock()
	f.cache = make(map[string]cacheEntry)
	f.mu.Unlock()
}

func (f *Fetcher) startLocked(url string) *pendingRequest {
	p := &pendingRequest{done: make(chan struct{})}
	f.pending[url] = p
	return p
}

// run はリトライ付きで取得し、結果をキャッシュと相乗り中の呼び出しへ反映します。
// 失敗（キャンセル含む）ならキャッシュは作らず、次の呼び出しが最初からやり直す。
func (f *Fetcher) run(ctx context.Context, url string, cfg FetchConfig, p *pendingRequest) {
	data, err := f.attempt(ctx, url, cfg)

	f.mu.Lock()
	if err == nil {
		f.cache[url] = cacheEntry{data: data, timestamp: time.Now()}
	}
	delete(f.pending, url)
	p.data, p.err = data, err
	f.mu.Unlock()
	close(p.done)
}

// attempt は指数バックオフ（delay = base * 2^(attempt-1)）で
// 最大RetryAttempts回まで試行します。キャンセルされたら即座に打ち切る。
func (f *Fetcher) attempt(ctx context.Context, url string, cfg FetchConfig) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		resp, err := f.http.R().SetContext(ctx).Get(url)
		if err == nil && resp.IsSuccess() {
			return json.RawMessage(resp.Body()), nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP error: status %d", resp.StatusCode())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < cfg.RetryAttempts {
			delay := cfg.RetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func waitPending(ctx context.Context, p *pendingRequest) (json.RawMessage, error) {
	select {
	case <-p.done:
		return p.data, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
