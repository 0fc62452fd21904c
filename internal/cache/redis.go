package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/aircheckin/config"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightTTL  time.Duration
	seatMapTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, seats config.SeatsConfig) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		seats.FlightCacheTTL, seats.SeatMapCacheTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, flightTTL, seatMapTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightTTL: flightTTL, seatMapTTL: seatMapTTL}
}

func (c *RedisCache) Client() *redis.Client { return c.client }

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetFlight returns nil, nil on a miss.
func (c *RedisCache) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	var f domain.Flight
	ok, err := c.get(ctx, flightKey(id), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, f *domain.Flight) error {
	return c.set(ctx, flightKey(f.ID), f, c.flightTTL)
}

// GetSeatMap returns the map cached for the flight's current generation
// together with that generation. The map is nil on a miss.
func (c *RedisCache) GetSeatMap(ctx context.Context, flightID string) (*domain.SeatMap, int64, error) {
	gen, err := c.client.Get(ctx, seatMapGenKey(flightID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}
	var m domain.SeatMap
	ok, err := c.get(ctx, seatMapKey(flightID, gen), &m)
	if err != nil || !ok {
		return nil, gen, err
	}
	return &m, gen, nil
}

// SetSeatMap stores m under generation. A map written for a generation that
// has since been invalidated is never read back.
func (c *RedisCache) SetSeatMap(ctx context.Context, m *domain.SeatMap, generation int64) error {
	return c.set(ctx, seatMapKey(m.FlightID, generation), m, c.seatMapTTL)
}

func (c *RedisCache) InvalidateSeatMap(ctx context.Context, flightID string) error {
	return c.client.Incr(ctx, seatMapGenKey(flightID)).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func flightKey(id string) string {
	return "cache:flight:" + id
}

func seatMapKey(flightID string, generation int64) string {
	return fmt.Sprintf("cache:seatmap:%s:%d", flightID, generation)
}

func seatMapGenKey(flightID string) string {
	return "cache:seatmap:gen:" + flightID
}
