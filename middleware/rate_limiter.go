package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/leeforge/fresson/errors"
	"github.com/leeforge/fresson/http/responder"
	"github.com/leeforge/fresson/logging"
	"go.uber.org/zap"
)

// RateLimitConfig configures the fixed window request limiter.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" default:"true"`
	// Backend is "memory" (per process) or "redis" (shared).
	Backend   string        `mapstructure:"backend" yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	Rate      int           `mapstructure:"rate" yaml:"rate" default:"30" validate:"min=1"`
	Window    time.Duration `mapstructure:"window" yaml:"window" default:"1m"`
	KeyPrefix string        `mapstructure:"key-prefix" yaml:"key-prefix" default:"fresson:rate"`
}

// Backend counts hits per key in fixed windows.
type Backend interface {
	// Increment records one hit and returns the hit count of the current
	// window and the time left until it resets.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// RateLimiter rejects clients exceeding Rate requests per Window.
type RateLimiter struct {
	backend Backend
	config  RateLimitConfig
	logger  logging.Logger
}

// NewRateLimiter creates a limiter over backend.
func NewRateLimiter(backend Backend, config RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RateLimiter{
		backend: backend,
		config:  config,
		logger:  logger.Named("ratelimit"),
	}
}

// Middleware enforces the limit. Clients are keyed by X-API-Key, falling
// back to the remote IP. Backend failures let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.key(ClientKey(r))
		count, ttl, err := rl.backend.Increment(r.Context(), key, rl.config.Window)
		if err != nil {
			rl.logger.Warn("rate limit backend failed", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(rl.config.Rate) - count
		if remaining < 0 {
			remaining = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Rate))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.config.Rate) {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			responder.Error(w, r, errors.NewRateLimit("rate limit exceeded").
				WithDetail("limit", rl.config.Rate).
				WithDetail("window", rl.config.Window.String()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ResetKey clears the window of a client key.
func (rl *RateLimiter) ResetKey(ctx context.Context, client string) error {
	return rl.backend.Reset(ctx, rl.key(client))
}

func (rl *RateLimiter) key(client string) string {
	return fmt.Sprintf("%s:%s", rl.config.KeyPrefix, client)
}

// ClientKey identifies the caller of r.
func ClientKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return "key:" + apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// MemoryBackend keeps windows in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	w, ok := b.windows[key]
	if !ok || !now.Before(w.resetAt) {
		b.sweep(now)
		w = &memoryWindow{resetAt: now.Add(window)}
		b.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

func (b *MemoryBackend) Reset(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.windows, key)
	return nil
}

// sweep drops expired windows; caller holds mu.
func (b *MemoryBackend) sweep(now time.Time) {
	for k, w := range b.windows {
		if !now.Before(w.resetAt) {
			delete(b.windows, k)
		}
	}
}

// RedisBackend shares windows between instances through Redis INCR with
// a key expiry.
type RedisBackend struct {
	client redis.UniversalClient
}

func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		// First hit of the window, or a key left without expiry.
		if err := b.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire %s: %w", key, err)
		}
		ttl = window
	}
	return incr.Val(), ttl, nil
}

func (b *RedisBackend) Reset(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// NewBackend returns the backend named by config. client is only used for
// the redis backend.
func NewBackend(config RateLimitConfig, client redis.UniversalClient) (Backend, error) {
	switch config.Backend {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("rate limit backend redis requires a redis client")
		}
		return NewRedisBackend(client), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", config.Backend)
	}
}
