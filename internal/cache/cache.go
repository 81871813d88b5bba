// Package cache puts a Redis read-through cache in front of a board store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
)

// Cache wraps a Remote with Redis-backed caching of FetchBoard. Every write
// passes through to the backing store and evicts the affected board.
type Cache struct {
	base  optimistic.Remote
	redis *redis.Client
	ttl   time.Duration
	log   log.FieldLogger
}

var _ optimistic.Remote = (*Cache)(nil)

// New creates a caching wrapper. A nil client or a zero TTL disables caching.
func New(base optimistic.Remote, client *redis.Client, ttl time.Duration, logger log.FieldLogger) *Cache {
	if base == nil {
		panic("cache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, log: logger}
}

func (c *Cache) FetchBoard(ctx context.Context, boardID string) (domain.Board, error) {
	if b, ok := c.load(ctx, boardID); ok {
		return b, nil
	}

	b, err := c.base.FetchBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}

	c.store(ctx, b)
	return b, nil
}

func (c *Cache) CreateColumn(ctx context.Context, col domain.Column) (domain.Column, error) {
	out, err := c.base.CreateColumn(ctx, col)
	c.Evict(ctx, col.BoardID, out.BoardID)
	return out, err
}

func (c *Cache) CreateCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	out, err := c.base.CreateCard(ctx, card)
	c.Evict(ctx, card.BoardID, out.BoardID)
	return out, err
}

func (c *Cache) UpdateBoard(ctx context.Context, id string, b domain.Board) (domain.Board, error) {
	out, err := c.base.UpdateBoard(ctx, id, b)
	c.Evict(ctx, id)
	return out, err
}

func (c *Cache) UpdateColumn(ctx context.Context, id string, col domain.Column) (domain.Column, error) {
	out, err := c.base.UpdateColumn(ctx, id, col)
	c.Evict(ctx, col.BoardID, out.BoardID)
	return out, err
}

func (c *Cache) UpdateColumns(ctx context.Context, cols []domain.Column) ([]domain.Column, error) {
	out, err := c.base.UpdateColumns(ctx, cols)
	ids := make([]string, 0, len(cols)+len(out))
	for _, col := range cols {
		ids = append(ids, col.BoardID)
	}
	for _, col := range out {
		ids = append(ids, col.BoardID)
	}
	c.Evict(ctx, ids...)
	return out, err
}

func (c *Cache) UpdateCard(ctx context.Context, id string, card domain.Card) (domain.Card, error) {
	out, err := c.base.UpdateCard(ctx, id, card)
	c.Evict(ctx, card.BoardID, out.BoardID)
	return out, err
}

// Evict drops cached copies of the given boards. Empty IDs are ignored.
func (c *Cache) Evict(ctx context.Context, boardIDs ...string) {
	if c.redis == nil {
		return
	}
	keys := make([]string, 0, len(boardIDs))
	seen := make(map[string]bool, len(boardIDs))
	for _, id := range boardIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, boardCacheKey(id))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache eviction failed")
	}
}

func (c *Cache) load(ctx context.Context, boardID string) (domain.Board, bool) {
	if c.redis == nil {
		return domain.Board{}, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(boardID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing store without failing.
			c.log.WithError(err).WithField("board", boardID).Debug("cache read failed")
			_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		}
		return domain.Board{}, false
	}
	var b domain.Board
	if err := json.Unmarshal(data, &b); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		return domain.Board{}, false
	}
	return b, true
}

func (c *Cache) store(ctx context.Context, b domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, boardCacheKey(b.ID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("board", b.ID).Debug("cache write failed")
	}
}

func boardCacheKey(boardID string) string {
	return "boardq:board:" + boardID
}
