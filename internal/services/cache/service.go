// Package cache memoizes slow collaborator responses (sector universes, RRG history)
// in a TTL-bounded store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

// Service stores JSON-encoded values with a fixed TTL. Storage failures are logged
// and treated as misses so the cache never fails a request.
type Service struct {
	storage interfaces.CacheStorage
	ttl     time.Duration
	logger  arbor.ILogger
}

// NewService creates a cache service over storage.
func NewService(storage interfaces.CacheStorage, ttl time.Duration, logger arbor.ILogger) *Service {
	return &Service{storage: storage, ttl: ttl, logger: logger}
}

func (s *Service) getJSON(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		_ = s.storage.Delete(ctx, key)
		return false
	}
	return true
}

func (s *Service) putJSON(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := s.storage.Put(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Purge removes expired entries. Its signature fits jobs.Janitor.Register.
func (s *Service) Purge() int {
	removed, err := s.storage.PurgeExpired(context.Background())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Cache purge failed")
		return 0
	}
	return removed
}

// CachedUniverse memoizes GetSectorStocks per sector.
type CachedUniverse struct {
	next  interfaces.UniverseProvider
	cache *Service
}

var _ interfaces.UniverseProvider = (*CachedUniverse)(nil)

// WrapUniverse returns a caching decorator around next.
func (s *Service) WrapUniverse(next interfaces.UniverseProvider) *CachedUniverse {
	return &CachedUniverse{next: next, cache: s}
}

func (c *CachedUniverse) GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error) {
	key := "universe:" + strings.ToLower(strings.TrimSpace(sector))

	var cached models.SectorStocks
	if c.cache.getJSON(ctx, key, &cached) {
		c.cache.logger.Debug().Str("sector", sector).Msg("Sector universe served from cache")
		return &cached, nil
	}

	stocks, err := c.next.GetSectorStocks(ctx, sector)
	if err != nil {
		return nil, err
	}
	c.cache.putJSON(ctx, key, stocks)
	return stocks, nil
}

// CachedRRG memoizes GetRRGHistory per symbol set and lookback.
type CachedRRG struct {
	next  interfaces.RRGProvider
	cache *Service
}

var _ interfaces.RRGProvider = (*CachedRRG)(nil)

// WrapRRG returns a caching decorator around next.
func (s *Service) WrapRRG(next interfaces.RRGProvider) *CachedRRG {
	return &CachedRRG{next: next, cache: s}
}

func (c *CachedRRG) GetRRGHistory(ctx context.Context, symbols []string, lookbackDays int) (*models.RRGHistory, error) {
	key := rrgKey(symbols, lookbackDays)

	var cached models.RRGHistory
	if c.cache.getJSON(ctx, key, &cached) {
		c.cache.logger.Debug().Strs("symbols", symbols).Int("lookback_days", lookbackDays).Msg("RRG history served from cache")
		return &cached, nil
	}

	history, err := c.next.GetRRGHistory(ctx, symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	c.cache.putJSON(ctx, key, history)
	return history, nil
}

// rrgKey is order-insensitive over symbols.
func rrgKey(symbols []string, lookbackDays int) string {
	norm := make([]string, len(symbols))
	for i, s := range symbols {
		norm[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(norm)
	return fmt.Sprintf("rrg:%s:%s", strings.Join(norm, ","), strconv.Itoa(lookbackDays))
}
