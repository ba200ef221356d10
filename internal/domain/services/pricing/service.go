// Package pricing serves the gold quote used by every trade. Quotes
// are cached briefly so a burst of trades hits the provider once, and
// the last good quote survives a provider outage within a bounded
// staleness window.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	cacheKey      = "goldprice:per_gram"
	staleCacheKey = "goldprice:per_gram:last_good"

	cacheTTL = 30 * time.Second
	// A quote older than this is too stale to trade on.
	staleTTL = 10 * time.Minute
)

var ErrQuoteUnavailable = errors.New("no gold quote available")

// Feed is the upstream market data source
type Feed interface {
	FetchPricePerGram(ctx context.Context) (decimal.Decimal, error)
}

type Service struct {
	feed   Feed
	redis  *redis.Client
	logger *zap.Logger
}

func NewService(feed Feed, redisClient *redis.Client, logger *zap.Logger) *Service {
	return &Service{
		feed:   feed,
		redis:  redisClient,
		logger: logger,
	}
}

// PricePerGram returns the current quote: cache first, then the feed,
// then the last good quote if the feed is down.
func (s *Service) PricePerGram(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	price, err := s.feed.FetchPricePerGram(ctx)
	if err != nil {
		if stale, ok := s.fromCache(ctx, staleCacheKey); ok {
			s.logger.Warn("serving stale gold quote, feed unavailable",
				zap.Error(err),
				zap.String("price", stale.String()),
			)
			return stale, nil
		}
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuoteUnavailable, err.Error())
	}

	s.toCache(ctx, cacheKey, price, cacheTTL)
	s.toCache(ctx, staleCacheKey, price, staleTTL)
	return price, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (decimal.Decimal, bool) {
	if s.redis == nil {
		return decimal.Zero, false
	}
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("gold quote cache read failed", zap.Error(err))
		}
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.Sign() <= 0 {
		return decimal.Zero, false
	}
	return price, true
}

func (s *Service) toCache(ctx context.Context, key string, price decimal.Decimal, ttl time.Duration) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, price.String(), ttl).Err(); err != nil {
		s.logger.Warn("gold quote cache write failed", zap.Error(err))
	}
}
