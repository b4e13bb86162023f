// Package snapshot publishes each applied catalog to Redis so other
// services can read the current trending list without calling catalogmix.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gauthierbraillon/catalogmix/internal/storefront"
)

// Config holds the Redis connection and key settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// Publisher writes catalog pages as JSON under a single key.
type Publisher struct {
	client     *redis.Client
	ownsClient bool
	key        string
	ttl        time.Duration
	logger     *zap.Logger
}

type PublisherOption func(*Publisher)

func WithLogger(logger *zap.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher connects to Redis and checks the connection.
func NewPublisher(ctx context.Context, cfg Config, opts ...PublisherOption) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p := NewPublisherWithClient(client, cfg.Key, cfg.TTL, opts...)
	p.ownsClient = true
	return p, nil
}

// NewPublisherWithClient uses an existing client. The caller keeps ownership
// of the client.
func NewPublisherWithClient(client *redis.Client, key string, ttl time.Duration, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish replaces the stored page. A zero TTL stores it without expiry.
func (p *Publisher) Publish(ctx context.Context, page storefront.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode catalog snapshot: %w", err)
	}
	if err := p.client.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write catalog snapshot: %w", err)
	}

	p.logger.Debug("catalog snapshot published",
		zap.String("key", p.key),
		zap.Int("items", len(page.Items)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Close releases the client if the Publisher created it.
func (p *Publisher) Close() error {
	if !p.ownsClient {
		return nil
	}
	return p.client.Close()
}
