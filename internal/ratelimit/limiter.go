package ratelimit

import (
	"context"
	"time"
)

// Config は固定ウィンドウの設定。
type Config struct {
	Window time.Duration // ウィンドウ長
	Max    int           // ウィンドウあたりの許可回数
}

// DefaultConfig は既定の設定（10分間に5回）を返す。
func DefaultConfig() Config {
	return Config{
		Window: 10 * time.Minute,
		Max:    5,
	}
}

// Decision はAdmitの判定結果。
type Decision struct {
	Allowed bool
	// RetryAfter は拒否時に現在のウィンドウが終わるまでの残り時間。
	RetryAfter time.Duration
}

// Limiter は呼び出し元キーごとの固定ウィンドウ方式のレートリミッター。
// Get→Putの間にロックを取らないため、同時リクエストではウィンドウあたりMax+1回許可されうる。
// また、ウィンドウ境界をまたぐと短時間に最大2×Max回許可される。
type Limiter struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewLimiter はLimiterを生成する。
func NewLimiter(store Store, config Config) *Limiter {
	return &Limiter{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Config は設定を返す。
func (l *Limiter) Config() Config {
	return l.config
}

// Admit はリクエストを許可するかどうかを判定する。
// Storeの読み取りに失敗した場合は許可（fail open）とし、エラーも併せて返す。
func (l *Limiter) Admit(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	b, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, err
	}

	if !ok || now.Sub(b.WindowStart) > l.config.Window {
		b = Bucket{Count: 1, WindowStart: now}
	} else {
		b.Count++
	}

	d := Decision{Allowed: b.Count <= l.config.Max}
	if !d.Allowed {
		d.RetryAfter = b.WindowStart.Add(l.config.Window).Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}

	if err := l.store.Put(ctx, key, b); err != nil {
		return d, err
	}
	return d, nil
}
