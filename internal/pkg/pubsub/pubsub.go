package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSubscriptionEvents = "subscription_events"
)

// 事件种类，和 ws 推送的 type 一一对应
const (
	KindSubscriptionUpdated = "subscription_updated"
	KindPaymentFailed       = "payment_failed"
	KindTrialEnding         = "trial_ending"
)

// SubscriptionEvent webhook 落库后广播的订阅变更。多实例部署时每个
// 实例都订阅该频道，由持有对应 ws 连接的实例推送给用户。
type SubscriptionEvent struct {
	Kind           string `json:"kind"`
	UserID         int64  `json:"user_id"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	Status         string `json:"status,omitempty"`
	PlanName       string `json:"plan_name,omitempty"`
	StripeEventID  string `json:"stripe_event_id,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布订阅变更事件
func (p *Publisher) Publish(ctx context.Context, event *SubscriptionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	return p.client.Publish(ctx, ChannelSubscriptionEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅变更事件，阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*SubscriptionEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelSubscriptionEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event SubscriptionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
