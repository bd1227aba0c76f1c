package price

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Store persists prices between runs.
type Store interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Put(ctx context.Context, key string, p decimal.Decimal) error
}

// Cache memoizes a Provider. Historical prices never change, so entries
// do not expire. Only successful lookups are cached.
type Cache struct {
	next         Provider
	defaultVenue string
	mem          *gocache.Cache
	store        Store
	log          *slog.Logger
}

// NewCache wraps next. store may be nil for an in-memory cache only.
func NewCache(next Provider, defaultVenue string, store Store, log *slog.Logger) *Cache {
	if defaultVenue == "" {
		defaultVenue = DefaultVenue
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		next:         next,
		defaultVenue: defaultVenue,
		mem:          gocache.New(gocache.NoExpiration, 0),
		store:        store,
		log:          log,
	}
}

// Price implements Provider.
func (c *Cache) Price(ctx context.Context, from, to string, day time.Time, venue string) (decimal.Decimal, error) {
	if venue == "" {
		venue = c.defaultVenue
	}
	key := Key(from, to, day, venue)

	if v, ok := c.mem.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	if c.store != nil {
		p, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.log.Warn("price store read failed", "key", key, "error", err)
		} else if ok {
			c.mem.Set(key, p, gocache.NoExpiration)
			return p, nil
		}
	}

	p, err := c.next.Price(ctx, from, to, day, venue)
	if err != nil {
		return decimal.Zero, err
	}

	c.mem.Set(key, p, gocache.NoExpiration)
	if c.store != nil {
		if err := c.store.Put(ctx, key, p); err != nil {
			c.log.Warn("price store write failed", "key", key, "error", err)
		}
	}
	return p, nil
}

// Len returns the number of prices held in memory.
func (c *Cache) Len() int {
	return c.mem.ItemCount()
}
