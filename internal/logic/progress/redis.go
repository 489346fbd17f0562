package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProgressStore 管理 Redis 中的 slot 状态记录（幂等控制）
type RedisProgressStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

const (
	slotKeyPrefix  = "progress:jupiter:slot"
	defaultSlotTTL = 7 * 24 * time.Hour
)

// NewRedisProgressStore 创建 Redis 判重管理器，ttl <= 0 时使用默认 7 天
func NewRedisProgressStore(rdb redis.Cmdable, ttl time.Duration) *RedisProgressStore {
	if ttl <= 0 {
		ttl = defaultSlotTTL
	}
	return &RedisProgressStore{rdb: rdb, ttl: ttl}
}

func slotKey(slot uint64) string {
	return fmt.Sprintf("%s:%d", slotKeyPrefix, slot)
}

// GetSlotStatus 获取 slot 的状态，无法识别的值按 Unknown 处理
func (r *RedisProgressStore) GetSlotStatus(ctx context.Context, slot uint64) (SlotStatus, error) {
	val, err := r.rdb.Get(ctx, slotKey(slot)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return SlotUnknown, nil
	case err != nil:
		return SlotUnknown, fmt.Errorf("redis get error: %w", err)
	}

	switch SlotStatus(val) {
	case SlotProcessed, SlotInvalid, SlotPending, SlotSkipped:
		return SlotStatus(val), nil
	default:
		return SlotUnknown, nil
	}
}

// SetSlotStatus 设置 slot 的状态
func (r *RedisProgressStore) SetSlotStatus(ctx context.Context, slot uint64, status SlotStatus) error {
	if err := r.rdb.Set(ctx, slotKey(slot), int(status), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set slot %d error: %w", slot, err)
	}
	return nil
}

// TryMarkPending 仅当 slot 尚无状态时标记为处理中，返回是否抢占成功。
// 多个实例同时消费同一 slot 时只有一个能继续处理。
func (r *RedisProgressStore) TryMarkPending(ctx context.Context, slot uint64, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, slotKey(slot), int(SlotPending), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx slot %d error: %w", slot, err)
	}
	return ok, nil
}
