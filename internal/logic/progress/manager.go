package progress

import (
	"context"
	"time"

	"jup-indexer-sol/pkg/logger"
)

// HotStore slot 状态的快速存储（Redis）
type HotStore interface {
	GetSlotStatus(ctx context.Context, slot uint64) (SlotStatus, error)
	SetSlotStatus(ctx context.Context, slot uint64, status SlotStatus) error
}

// DurableStore slot 记录的持久化存储（Postgres）
type DurableStore interface {
	GetSlotStatus(ctx context.Context, slot uint64) (SlotStatus, error)
	BatchUpsertSlots(ctx context.Context, slots []*SlotRecord) error
	DeleteOldSlots(ctx context.Context) error
}

// ProgressManager 统一封装 Redis + DB + 缓冲，控制进度判重与写入
type ProgressManager struct {
	hot             HotStore
	durable         DurableStore
	buffer          *slotBuffer
	recentThreshold time.Duration // 新 block 的判断阈值
}

func NewProgressManager(hot HotStore, durable DurableStore, recentThreshold time.Duration) *ProgressManager {
	return &ProgressManager{
		hot:             hot,
		durable:         durable,
		buffer:          newSlotBuffer(),
		recentThreshold: recentThreshold,
	}
}

// ShouldProcessSlot 判断是否需要处理该 slot：
// - 近期 block 直接处理
// - 否则先查 Redis，再回退到 DB；两处都没有记录才处理
func (pm *ProgressManager) ShouldProcessSlot(ctx context.Context, slot uint64, blockTime int64) (bool, error) {
	if time.Since(time.Unix(blockTime, 0)) <= pm.recentThreshold {
		return true, nil
	}

	status, err := pm.hot.GetSlotStatus(ctx, slot)
	if err != nil {
		return false, err
	}
	if status != SlotUnknown {
		return false, nil
	}

	status, err = pm.durable.GetSlotStatus(ctx, slot)
	if err != nil {
		return false, err
	}
	if status.Final() {
		// 回填 Redis，下次不再查库
		if err := pm.hot.SetSlotStatus(ctx, slot, status); err != nil {
			logger.Warnf("[Progress] backfill redis slot=%d failed: %v", slot, err)
		}
		return false, nil
	}
	return true, nil
}

// MarkSlotStatus 标记 slot 的终态，同时写 Redis 并放入缓冲区等待批量落库。
// SlotUnknown / SlotPending 不参与记录。
func (pm *ProgressManager) MarkSlotStatus(ctx context.Context, record *SlotRecord) error {
	if !record.Status.Final() {
		return nil
	}
	if err := pm.hot.SetSlotStatus(ctx, record.Slot, record.Status); err != nil {
		return err
	}
	pm.buffer.Add(record)
	return nil
}

// Pending 缓冲区中尚未落库的记录数
func (pm *ProgressManager) Pending() int {
	return pm.buffer.Len()
}

// Flush 将缓冲区写入 DB，失败时记录放回缓冲区
func (pm *ProgressManager) Flush(ctx context.Context) error {
	list := pm.buffer.Flush()
	if len(list) == 0 {
		return nil
	}
	if err := pm.durable.BatchUpsertSlots(ctx, list); err != nil {
		pm.buffer.Restore(list)
		return err
	}
	return nil
}

// StartFlushLoop 定时 flush，ctx 结束时做最后一次 flush
func (pm *ProgressManager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := pm.Flush(final); err != nil {
				logger.Errorf("[Progress] final flush failed, %d slots lost: %v", pm.Pending(), err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := pm.Flush(ctx); err != nil {
				logger.Errorf("[Progress] flush failed, %d slots kept for retry: %v", pm.Pending(), err)
			}
		}
	}
}

// StartGCLoop 定时清理历史 slot 记录
func (pm *ProgressManager) StartGCLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pm.durable.DeleteOldSlots(ctx); err != nil {
				logger.Warnf("[Progress] gc failed: %v", err)
			}
		}
	}
}
