package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zosh-air/airline-reservation/config"
	"github.com/zosh-air/airline-reservation/internal/domain"
)

// RedisCache keeps the flight list and per-flight availability snapshots.
// Availability entries are best-effort: any seat mutation invalidates the
// flight's entry and readers fall back to the ledger.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	seatsTTL   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, seatsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		seatsTTL:   seatsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) GetAvailableSeats(ctx context.Context, flightID int64) ([]string, error) {
	data, err := c.client.Get(ctx, seatsKey(flightID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var seats []string
	if err := json.Unmarshal(data, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

func (c *RedisCache) SetAvailableSeats(ctx context.Context, flightID int64, seats []string) error {
	payload, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, seatsKey(flightID), payload, c.seatsTTL).Err()
}

func (c *RedisCache) InvalidateSeats(ctx context.Context, flightID int64) error {
	return c.client.Del(ctx, seatsKey(flightID)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func seatsKey(flightID int64) string {
	return fmt.Sprintf("cache:flight:%d:seats", flightID)
}
