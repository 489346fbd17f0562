package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"jup-indexer-sol/pkg/logger"
)

// pgExecutor pgxpool.Pool 与 pgx.Tx 的公共子集
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBProgressStore 管理 slot 的 DB 存储。
// 写入用于持久记录进度，服务恢复后可用；不做高频判重，只作为 Redis 的兜底。
type DBProgressStore struct {
	db pgExecutor
}

func NewDBProgressStore(pool *pgxpool.Pool) *DBProgressStore {
	return &DBProgressStore{db: pool}
}

const (
	insertBatchLimit = 1000
	deleteBatchLimit = 1000

	// 保留 7 天，按每秒 2.5 个 slot 估算
	retainSlots = uint64(7 * 24 * 3600 * 5 / 2)
)

// CreateTableSQL 进度表结构
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS progress_slot (
	slot       BIGINT PRIMARY KEY,
	source     SMALLINT NOT NULL,
	block_time BIGINT NOT NULL,
	status     SMALLINT NOT NULL,
	swaps      INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// EnsureSchema 建表（幂等）
func (d *DBProgressStore) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, CreateTableSQL); err != nil {
		return fmt.Errorf("create progress_slot failed: %w", err)
	}
	return nil
}

// GetSlotStatus 查询某 slot 在 DB 中的状态，不存在返回 SlotUnknown
func (d *DBProgressStore) GetSlotStatus(ctx context.Context, slot uint64) (SlotStatus, error) {
	var status int16
	err := d.db.QueryRow(ctx, `SELECT status FROM progress_slot WHERE slot = $1`, int64(slot)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return SlotUnknown, nil
	}
	if err != nil {
		return SlotUnknown, fmt.Errorf("query slot %d error: %w", slot, err)
	}
	return SlotStatus(status), nil
}

// BatchUpsertSlots 批量写入 slot 记录，按 insertBatchLimit 分批。
// slot 冲突时只更新 status / swaps / updated_at。
func (d *DBProgressStore) BatchUpsertSlots(ctx context.Context, slots []*SlotRecord) error {
	for i := 0; i < len(slots); i += insertBatchLimit {
		end := min(i+insertBatchLimit, len(slots))
		query, args := buildUpsertQuery(slots[i:end])
		if _, err := d.db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %d slots failed: %w", end-i, err)
		}
	}
	return nil
}

func buildUpsertQuery(slots []*SlotRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO progress_slot (slot, source, block_time, status, swaps, updated_at) VALUES `)

	args := make([]any, 0, len(slots)*5)
	for i, s := range slots {
		if i > 0 {
			sb.WriteByte(',')
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,CURRENT_TIMESTAMP)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, int64(s.Slot), s.Source, s.BlockTime, int16(s.Status), s.Swaps)
	}
	sb.WriteString(` ON CONFLICT (slot) DO UPDATE SET status = EXCLUDED.status, swaps = EXCLUDED.swaps, updated_at = CURRENT_TIMESTAMP`)
	return sb.String(), args
}

// DeleteOldSlots 删除 7 天前的 slot 记录，分批执行避免长事务
func (d *DBProgressStore) DeleteOldSlots(ctx context.Context) error {
	var latest int64
	if err := d.db.QueryRow(ctx, `SELECT COALESCE(MAX(slot), 0) FROM progress_slot`).Scan(&latest); err != nil {
		return fmt.Errorf("fetch latest slot failed: %w", err)
	}
	if uint64(latest) <= retainSlots {
		return nil
	}
	safeSlot := int64(uint64(latest) - retainSlots)

	for {
		tag, err := d.db.Exec(ctx,
			`DELETE FROM progress_slot WHERE slot IN (SELECT slot FROM progress_slot WHERE slot < $1 ORDER BY slot LIMIT $2)`,
			safeSlot, deleteBatchLimit,
		)
		if err != nil {
			return fmt.Errorf("delete old slots failed: %w", err)
		}
		n := tag.RowsAffected()
		if n == 0 {
			return nil
		}
		logger.Infof("[Progress::GC] deleted %d old progress rows below slot %d", n, safeSlot)
	}
}
