package services

import (
	"context"
	"fmt"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/pkg/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const lastAlertTTL = 10 * time.Minute

// Alert is the message fanned out when a session reports drowsiness.
type Alert struct {
	ClientID  string                    `json:"clientId"`
	SessionID int                       `json:"sessionId,omitempty"`
	Record    drowsiness.DecisionRecord `json:"record"`
}

type AlertPublisher interface {
	Publish(ctx context.Context, a Alert) error
	Close() error
}

// NopPublisher drops alerts; used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Alert) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// redisCmdable is the subset of the go-redis client used here.
type redisCmdable interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisPublisher publishes alerts on a channel and keeps the latest alert of
// each client under "<channel>:last:<clientId>".
type RedisPublisher struct {
	rdb     redisCmdable
	closer  func() error
	channel string
}

func NewRedisPublisher(ctx context.Context, addr, password string, db int, channel string) *RedisPublisher {
	log.Info(log.Fields{"addr": addr}, "connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		log.Error(log.Fields{"error": err.Error()}, "failed to connect to Redis")
	} else {
		log.Info(nil, "connected to Redis")
	}

	return &RedisPublisher{rdb: client, closer: client.Close, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	if err := p.rdb.Set(ctx, p.lastKey(a.ClientID), payload, lastAlertTTL).Err(); err != nil {
		return fmt.Errorf("store last alert: %w", err)
	}
	return nil
}

func (p *RedisPublisher) lastKey(clientID string) string {
	return p.channel + ":last:" + clientID
}

func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
