package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// cacheEntry is the persisted form of one cached response.
type cacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time `badgerholdIndex:"ExpiresAt"`
}

// CacheStorage implements interfaces.CacheStorage on Badger.
type CacheStorage struct {
	db     *DB
	logger arbor.ILogger
	now    func() time.Time
}

var _ interfaces.CacheStorage = (*CacheStorage)(nil)

// NewCacheStorage creates a CacheStorage over db.
func NewCacheStorage(db *DB, logger arbor.ILogger) *CacheStorage {
	return &CacheStorage{db: db, logger: logger, now: time.Now}
}

// Get returns the value stored under key. Expired entries read as a miss.
func (s *CacheStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry cacheEntry
	err := s.db.Store().Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	if !entry.ExpiresAt.After(s.now()) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Put stores value under key for ttl.
func (s *CacheStorage) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	entry := cacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.Store().Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *CacheStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(key, &cacheEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes every entry whose expiry has passed and returns how many
// were removed.
func (s *CacheStorage) PurgeExpired(ctx context.Context) (int, error) {
	query := badgerhold.Where("ExpiresAt").Le(s.now())

	count, err := s.db.Store().Count(&cacheEntry{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired cache entries: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.db.Store().DeleteMatching(&cacheEntry{}, query); err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}

	s.logger.Debug().Int("removed", int(count)).Msg("Purged expired cache entries")
	return int(count), nil
}
