package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/terraincognita07/medremind/internal/models"
)

const redisChannelPrefix = "medremind:notifications:"

// RedisBroker shares notification events between service replicas through
// redis pub/sub, one channel per user.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(ctx context.Context, addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisBroker{client: client}, nil
}

func redisChannel(userID uuid.UUID) string {
	return redisChannelPrefix + userID.String()
}

func (broker *RedisBroker) Publish(ctx context.Context, notification models.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := broker.client.Publish(ctx, redisChannel(notification.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (broker *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	pubsub := broker.client.Subscribe(ctx, redisChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	events := make(chan models.Notification, subscriptionBuffer)
	done := make(chan struct{})
	go func() {
		defer close(events)
		messages := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case message, ok := <-messages:
				if !ok {
					return
				}
				var notification models.Notification
				if err := json.Unmarshal([]byte(message.Payload), &notification); err != nil {
					log.Printf("realtime: skip malformed payload on %s: %v", message.Channel, err)
					continue
				}
				select {
				case events <- notification:
				case <-done:
					return
				}
			}
		}
	}()

	return newSubscription(events, func() {
		close(done)
		_ = pubsub.Close()
	}), nil
}

func (broker *RedisBroker) Close() error {
	return broker.client.Close()
}
