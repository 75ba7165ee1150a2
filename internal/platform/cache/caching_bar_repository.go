// Package cache provides caching decorators for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ashare_store/internal/feature/bars/domain/entity"
	"ashare_store/internal/feature/bars/usecase"
)

// CachingBarRepository decorates a BarRepository with Redis caching of daily ranges.
//
// Range keys embed a per-symbol version. Writes go to the inner repository first and
// then INCR the version of every written symbol, so entries filled from a read that
// raced the write are left behind under a version nobody reads anymore and expire on
// their own. When the INCR fails the symbol bypasses the cache in this process until
// a later INCR succeeds. A nil client bypasses the cache entirely.
type CachingBarRepository struct {
	inner     usecase.BarRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time

	mu    sync.Mutex
	seq   uint64
	dirty map[string]uint64 // symbol -> token of the failed version bump
}

var _ usecase.BarRepository = (*CachingBarRepository)(nil)

// NewCachingBarRepository decorates a BarRepository with Redis caching.
// If ttl is 0, each entry lives until the next daily refresh (see TimeUntilNextRefresh).
// If namespace is empty, it uses "bars".
func NewCachingBarRepository(rdb *redis.Client, ttl time.Duration, inner usecase.BarRepository, namespace string) *CachingBarRepository {
	if ttl < 0 {
		ttl = 0
	}
	if namespace == "" {
		namespace = "bars"
	}
	return &CachingBarRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
		dirty:     map[string]uint64{},
	}
}

// WithClock replaces the clock used to compute refresh-aligned expirations.
func (c *CachingBarRepository) WithClock(now func() time.Time) *CachingBarRepository {
	c.now = now
	return c
}

// UpsertDaily writes daily bars and retires the cached ranges of their symbols.
func (c *CachingBarRepository) UpsertDaily(ctx context.Context, bars []entity.Bar) error {
	if err := c.inner.UpsertDaily(ctx, bars); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}

	seen := map[string]struct{}{}
	for _, b := range bars {
		if _, ok := seen[b.Symbol]; ok {
			continue
		}
		seen[b.Symbol] = struct{}{}
		if err := c.rdb.Incr(ctx, c.versionKey(b.Symbol)).Err(); err != nil {
			slog.WarnContext(ctx, "bar cache invalidation failed, bypassing cache for symbol", "symbol", b.Symbol, "error", err)
			c.markDirty(b.Symbol)
		}
	}
	return nil
}

// RangeDaily retrieves daily bars, checking the cache first then falling back to the database.
func (c *CachingBarRepository) RangeDaily(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error) {
	if c.rdb == nil {
		return c.inner.RangeDaily(ctx, symbol, start, end)
	}

	// 1) Resolve the current version before touching the database
	version, ok := c.currentVersion(ctx, symbol)
	if !ok {
		return c.inner.RangeDaily(ctx, symbol, start, end)
	}
	key := c.cacheKey(symbol, version, start, end)

	// 2) Check cache
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(b) > 0:
		var out []entity.Bar
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	case err != nil && !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "bar cache read failed", "key", key, "error", err)
	}

	// 3) Fallback to database
	out, err := c.inner.RangeDaily(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	// 4) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.expiration()).Err()
	}

	return out, nil
}

func (c *CachingBarRepository) UpsertMinute(ctx context.Context, bars []entity.Bar) error {
	return c.inner.UpsertMinute(ctx, bars)
}

func (c *CachingBarRepository) RangeMinute(ctx context.Context, symbol string, start, end time.Time) ([]entity.Bar, error) {
	return c.inner.RangeMinute(ctx, symbol, start, end)
}

func (c *CachingBarRepository) DailyOn(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	return c.inner.DailyOn(ctx, date)
}

func (c *CachingBarRepository) MinuteOn(ctx context.Context, date time.Time) ([]entity.Bar, error) {
	return c.inner.MinuteOn(ctx, date)
}

// currentVersion returns the version to read and fill under. ok is false when the
// cache must not be used for symbol right now.
func (c *CachingBarRepository) currentVersion(ctx context.Context, symbol string) (int64, bool) {
	if token, dirty := c.dirtyToken(symbol); dirty {
		// retry the bump that failed after the last write
		v, err := c.rdb.Incr(ctx, c.versionKey(symbol)).Result()
		if err != nil {
			return 0, false
		}
		c.clearDirty(symbol, token)
		return v, true
	}

	v, err := c.rdb.Get(ctx, c.versionKey(symbol)).Int64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		slog.WarnContext(ctx, "bar cache version read failed", "symbol", symbol, "error", err)
		return 0, false
	}
}

func (c *CachingBarRepository) markDirty(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.dirty[symbol] = c.seq
}

func (c *CachingBarRepository) dirtyToken(symbol string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.dirty[symbol]
	return token, ok
}

// clearDirty forgets symbol only if no bump failed again since token was read.
func (c *CachingBarRepository) clearDirty(symbol string, token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty[symbol] == token {
		delete(c.dirty, symbol)
	}
}

func (c *CachingBarRepository) expiration() time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return TimeUntilNextRefresh(c.now())
}

// cacheKey generates a cache key for a specific range query.
func (c *CachingBarRepository) cacheKey(symbol string, version int64, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:day:v%d:%s:%s",
		c.namespace,
		safe(symbol),
		version,
		start.Format("20060102"),
		end.Format("20060102"),
	)
}

// versionKey holds the counter bumped by every daily write of symbol.
func (c *CachingBarRepository) versionKey(symbol string) string {
	return fmt.Sprintf("%s:%s:ver", c.namespace, safe(symbol))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
