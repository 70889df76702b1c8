// Package cache stores search results in Redis. Keys embed the engine
// generation, so adding a page implicitly retires every older entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/page-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/resilience"
)

const keyPrefix = "pagesearch:search:"

// Store is the key-value backend; *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. Store calls run through breaker so a failing
// Redis is bypassed instead of slowing every query.
func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for plan at generation, if any.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int, generation uint64) (*indexer.SearchResult, bool) {
	key := buildKey(plan, limit, generation)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if data == nil {
		c.misses.Add(1)
		return nil, false
	}
	var result indexer.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	result.Query = plan.RawQuery
	return &result, true
}

// Set stores result for plan at generation.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, generation uint64, result *indexer.SearchResult) {
	key := buildKey(plan, limit, generation)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs compute, collapsing
// concurrent misses for the same key into one computation. The bool
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	generation uint64,
	compute func() *indexer.SearchResult,
) (*indexer.SearchResult, bool) {
	if result, ok := c.Get(ctx, plan, limit, generation); ok {
		return result, true
	}
	key := buildKey(plan, limit, generation)
	val, _, _ := c.group.Do(key, func() (any, error) {
		result := compute()
		c.Set(ctx, plan, limit, generation, result)
		return result, nil
	})
	result := *val.(*indexer.SearchResult)
	result.Query = plan.RawQuery
	return &result, false
}

// Invalidate deletes every cached search result and returns the count.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the circuit breaker state guarding the store.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

// buildKey hashes the normalized terms and phrase, so queries differing only
// in case or punctuation share an entry.
func buildKey(plan *parser.QueryPlan, limit int, generation uint64) string {
	raw := fmt.Sprintf("g=%d|l=%d|t=%s|p=%s", generation, limit, strings.Join(plan.Terms, " "), plan.Phrase)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
