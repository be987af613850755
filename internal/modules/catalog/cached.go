package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shelfscout/server/internal/models"
	pkgredis "github.com/shelfscout/server/internal/pkg/redis"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "shelfscout:catalog:"

// Cached keeps catalog responses in Redis. Cache errors never fail a lookup.
type Cached struct {
	next   Source
	rc     *pkgredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next Source, rc *pkgredis.Client, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cached{next: next, rc: rc, ttl: ttl, logger: logger.Named("CatalogCache")}
}

func (c *Cached) SearchDescription(ctx context.Context, query string, limit int) ([]models.Book, error) {
	return c.lookup(ctx, "description", query, limit, c.next.SearchDescription)
}

func (c *Cached) SearchQuote(ctx context.Context, quote string, limit int) ([]models.Book, error) {
	return c.lookup(ctx, "quote", quote, limit, c.next.SearchQuote)
}

func (c *Cached) lookup(
	ctx context.Context,
	mode, q string,
	limit int,
	fetch func(context.Context, string, int) ([]models.Book, error),
) ([]models.Book, error) {
	key := cacheKey(mode, q, limit)

	var books []models.Book
	hit, err := c.rc.GetJSON(ctx, key, &books)
	if err != nil {
		c.logger.Debug("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return books, nil
	}

	books, err = fetch(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	if err := c.rc.SetJSON(ctx, key, books, c.ttl); err != nil {
		c.logger.Debug("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return books, nil
}

func cacheKey(mode, q string, limit int) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(q))))
	return fmt.Sprintf("%s%s:%d:%s", cacheKeyPrefix, mode, limit, hex.EncodeToString(sum[:]))
}
