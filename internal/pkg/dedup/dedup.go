package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "webhook:event:"
	defaultTTL = 72 * time.Hour
)

// Guard webhook 事件去重。Stripe 会重发事件，事件 id 用 SETNX 占位，
// 已见过的直接跳过。TTL 覆盖 Stripe 的重发窗口即可，不必永久保留。
// Redis 丢数据时最多导致事件重放，落库侧的唯一约束和 upsert 仍然幂等。
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuard(client *redis.Client) *Guard {
	return &Guard{client: client, ttl: defaultTTL}
}

// FirstSeen 返回 true 表示该事件第一次出现，并记下占位。
// Redis 出错时放行而不是拒绝，宁可重放也不丢事件。
func (g *Guard) FirstSeen(ctx context.Context, eventID string) bool {
	ok, err := g.client.SetNX(ctx, keyPrefix+eventID, 1, g.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Forget 移除占位，处理失败时调用，让 Stripe 的重发有机会重试
func (g *Guard) Forget(ctx context.Context, eventID string) error {
	if err := g.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to forget event %s: %w", eventID, err)
	}
	return nil
}
