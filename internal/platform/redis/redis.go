package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sitemapper/internal/logger"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

type Options struct {
	Addr     string
	Password string
}

type Service struct {
	client *redisv8.Client
	log    *logger.Logger
}

func New(opts Options) (*Service, error) {
	c := redisv8.NewClient(&redisv8.Options{Addr: opts.Addr, Password: opts.Password})
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Service{client: c, log: logger.New("Redis")}, nil
}

// NewFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewFromClient(c *redisv8.Client) *Service {
	return &Service{client: c, log: logger.New("Redis")}
}

func (s *Service) Close() error            { return s.client.Close() }
func (s *Service) Client() *redisv8.Client { return s.client }

// HealthCheck pings and round-trips a short-lived key.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.LogErrorf("Redis health check failed: %v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	probe := "sitemapper:health:" + time.Now().Format("20060102150405.000")
	if err := s.client.Set(ctx, probe, "ok", 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write probe failed: %w", err)
	}
	defer s.client.Del(ctx, probe)

	val, err := s.client.Get(ctx, probe).Result()
	if err != nil {
		return fmt.Errorf("redis read probe failed: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("redis probe mismatch: got %q", val)
	}
	return nil
}

func (s *Service) AsynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: s.client.Options().Addr, Password: s.client.Options().Password}
}

// CacheGet decodes the JSON stored at key into dest.
func (s *Service) CacheGet(ctx context.Context, key string, dest interface{}) error {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (s *Service) CacheSet(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool { return err == redisv8.Nil }
