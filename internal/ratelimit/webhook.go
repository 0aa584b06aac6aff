package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tinylojas/conversa/internal/config"
)

const keyCommerceWebhook = "webhook:commerce:%s"

// WebhookLimiter throttles inbound commerce webhook deliveries per
// merchant. A nil limiter allows everything, so deployments without
// redis keep working.
type WebhookLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWebhookLimiter(cfg config.Config) *WebhookLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	if cfg.WebhookRatePerSecond <= 0 || cfg.WebhookBurst <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &WebhookLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.WebhookRatePerSecond,
		burst:  cfg.WebhookBurst,
	}
}

func (l *WebhookLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open: a redis error never blocks a delivery.
func (l *WebhookLimiter) Allow(ctx context.Context, merchant string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	key := fmt.Sprintf(keyCommerceWebhook, strings.TrimSpace(merchant))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
