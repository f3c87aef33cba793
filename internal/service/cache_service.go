package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the Redis repository with metrics and a configured TTL.
// A nil or disabled CacheService degrades to a permanent miss.
type CacheService struct {
	store   cacheStore
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
	ttl     time.Duration
}

func NewCacheService(store cacheStore, metrics *MetricsService, logger *zap.Logger, enabled bool, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		enabled: enabled && store != nil,
		ttl:     ttl,
	}
}

// Get loads key into dest. Returns ErrCacheMiss when absent or disabled.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if s == nil || !s.enabled {
		return errors.ErrCacheMiss
	}
	start := time.Now()
	if err := s.store.Get(ctx, key, dest); err != nil {
		s.metrics.RecordCacheOperation(false, time.Since(start))
		if !errors.Is(err, errors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return errors.ErrCacheMiss
	}
	s.metrics.RecordCacheOperation(true, time.Since(start))
	return nil
}

// Set stores value under key with the configured TTL. Failures are logged
// and swallowed so the cache never breaks a request path.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if s == nil || !s.enabled {
		return
	}
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePattern drops all keys matching pattern.
func (s *CacheService) InvalidatePattern(ctx context.Context, pattern string) {
	if s == nil || !s.enabled {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
