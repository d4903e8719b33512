package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/prodhub/productivity-hub/internal/config"
)

// PreferenceCache caches the GET /api/user/preferences response body per
// user. Every preference write invalidates the user's entry, so the TTL
// only bounds staleness across devices sharing an account. A nil Redis
// client disables caching entirely.
type PreferenceCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewPreferenceCache(cfg config.CacheConfig, rdb *redis.Client) *PreferenceCache {
	return &PreferenceCache{cfg: cfg, rdb: rdb}
}

func (pc *PreferenceCache) enabled() bool { return pc != nil && pc.cfg.Enabled && pc.rdb != nil }

func (pc *PreferenceCache) key(userID string) string { return pc.cfg.Prefix + ":" + userID }

// bodyCapture buffers the response body while forwarding it to the client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware serves a cached preferences body when present and fills the
// cache on a 200 miss. Only GET requests with an authenticated user are
// considered; everything else passes through untouched.
func (pc *PreferenceCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !pc.enabled() || c.Request().Method != http.MethodGet {
				return next(c)
			}
			userID, ok := c.Get("user_id").(string)
			if !ok || userID == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			if body, err := pc.rdb.Get(ctx, pc.key(userID)).Bytes(); err == nil {
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				ttl := pc.cfg.TTL
				if ttl <= 0 {
					ttl = 30 * time.Second
				}
				// Best effort: a failed SET just means the next read misses.
				_ = pc.rdb.Set(ctx, pc.key(userID), cw.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}

// Invalidate drops the cached preferences for a user. Called by every
// write handler before responding so clients never read their own stale
// write back.
func (pc *PreferenceCache) Invalidate(ctx context.Context, userID string) {
	if !pc.enabled() {
		return
	}
	_ = pc.rdb.Del(ctx, pc.key(userID)).Err()
}
