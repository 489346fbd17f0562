package grpc

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/zeromicro/go-zero/core/logx"
	"jup-indexer-sol/internal/logic/progress"
	"jup-indexer-sol/internal/metrics"
)

const (
	gapQueueSize     = 512
	maxQueuedGaps    = 1024
	rpcWindow        = 5000 // 单次 getBlocks 覆盖的最大 slot 数
	rpcAttempts      = 3
	rpcTimeout       = 6 * time.Second
	maxAuditAttempts = 3 // 同一区间 RPC 连续失败的最多核实轮数
	maxLoggedRuns    = 16
)

// blocksGetter 返回 [from, to] 内已确认的区块 slot
type blocksGetter func(ctx context.Context, from, to uint64) ([]uint64, error)

type slotRecorder interface {
	MarkSlotStatus(ctx context.Context, record *progress.SlotRecord) error
}

// slotGap 订阅流中 parent slot 跳过的闭区间
type slotGap struct {
	from, to uint64
	seenAt   time.Time
	attempts int
}

func (g slotGap) size() uint64 {
	return g.to - g.from + 1
}

// GapAuditor 延迟核实 parent slot 跳过的区间。
// RPC 确认未出块的 slot 记为 skipped 写入进度；已出块的 slot 说明订阅流漏推，计数并告警。
type GapAuditor struct {
	getBlocks  blocksGetter
	recorder   slotRecorder // 为空时只统计不落进度
	gapCh      chan slotGap
	settle     time.Duration // 等区块确认后再查，避免把尚未确认的区块当成漏推
	interval   time.Duration
	rpcBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	logx.Logger
}

func NewGapAuditor(endpoint string, pm *progress.ProgressManager) *GapAuditor {
	client := rpc.NewRpcClient(endpoint)
	a := newGapAuditor(func(ctx context.Context, from, to uint64) ([]uint64, error) {
		resp, err := client.GetBlocks(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return resp.Result, nil
	})
	if pm != nil {
		a.recorder = pm
	}
	return a
}

func newGapAuditor(getBlocks blocksGetter) *GapAuditor {
	ctx, cancel := context.WithCancel(context.Background())
	return &GapAuditor{
		getBlocks:  getBlocks,
		gapCh:      make(chan slotGap, gapQueueSize),
		settle:     20 * time.Second,
		interval:   5 * time.Second,
		rpcBackoff: 200 * time.Millisecond,
		ctx:        ctx,
		cancel:     cancel,
		Logger:     logx.WithContext(ctx).WithFields(logx.Field("service", "gap_auditor")),
	}
}

func (a *GapAuditor) Start() {
	a.run()
}

func (a *GapAuditor) Stop() {
	a.cancel()
}

// Submit 提交闭区间 [from, to]，队列满时丢弃
func (a *GapAuditor) Submit(from, to uint64) {
	if from > to {
		a.Errorf("invalid slot gap [%d, %d]", from, to)
		return
	}
	g := slotGap{from: from, to: to, seenAt: time.Now()}
	select {
	case a.gapCh <- g:
	default:
		metrics.SlotGaps.WithLabelValues("dropped").Add(float64(g.size()))
		a.Errorf("gap queue full, dropped [%d, %d]", from, to)
	}
}

func (a *GapAuditor) run() {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var queued []slotGap
	for {
		select {
		case <-a.ctx.Done():
			if len(queued) > 0 {
				a.Infof("stopped with %d gaps unverified", len(queued))
			}
			return

		case g := <-a.gapCh:
			if len(queued) >= maxQueuedGaps {
				metrics.SlotGaps.WithLabelValues("dropped").Add(float64(g.size()))
				a.Errorf("too many queued gaps (%d), dropped [%d, %d]", len(queued), g.from, g.to)
				continue
			}
			queued = append(queued, g)

		case now := <-ticker.C:
			var due []slotGap
			due, queued = splitDue(queued, now.Add(-a.settle))
			if len(due) > 0 {
				queued = append(queued, a.audit(due)...)
			}
		}
	}
}

// splitDue 按提交时间切分出已到核实时间的区间
func splitDue(gaps []slotGap, cutoff time.Time) (due, rest []slotGap) {
	for _, g := range gaps {
		if g.seenAt.After(cutoff) {
			rest = append(rest, g)
		} else {
			due = append(due, g)
		}
	}
	return due, rest
}

// audit 核实一批区间，返回 RPC 失败需要下一轮重查的区间
func (a *GapAuditor) audit(gaps []slotGap) (retry []slotGap) {
	for _, w := range coalesceGaps(gaps, rpcWindow) {
		produced, err := a.fetchBlocks(w.from, w.to)
		if err != nil {
			if a.ctx.Err() != nil {
				return append(retry, w)
			}
			w.attempts++
			if w.attempts < maxAuditAttempts {
				retry = append(retry, w)
				a.Infof("getBlocks [%d, %d] failed (attempt %d), retry next round: %v", w.from, w.to, w.attempts, err)
			} else {
				metrics.SlotGaps.WithLabelValues("unverified").Add(float64(w.size()))
				a.Errorf("getBlocks [%d, %d] failed %d rounds, give up: %v", w.from, w.to, w.attempts, err)
			}
			continue
		}

		skipped, missing := classifyGap(w.from, w.to, produced)
		metrics.SlotGaps.WithLabelValues("skipped").Add(float64(len(skipped)))
		a.recordSkipped(skipped)
		if len(missing) > 0 {
			metrics.SlotGaps.WithLabelValues("missing").Add(float64(len(missing)))
			a.Errorf("gap [%d, %d]: %d blocks produced but not streamed, slots=%s",
				w.from, w.to, len(missing), formatSlotRuns(missing))
		}
	}
	return retry
}

func (a *GapAuditor) recordSkipped(slots []uint64) {
	if a.recorder == nil {
		return
	}
	for _, slot := range slots {
		err := a.recorder.MarkSlotStatus(a.ctx, &progress.SlotRecord{
			Slot:   slot,
			Source: progress.SourceRpc,
			Status: progress.SlotSkipped,
		})
		if err != nil {
			a.Errorf("mark skipped slot=%d failed, %d slots left unrecorded: %v", slot, len(slots), err)
			return
		}
	}
}

// fetchBlocks 带退避重试的 getBlocks，RPC 客户端 panic 转为错误
func (a *GapAuditor) fetchBlocks(from, to uint64) (blocks []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("getBlocks panic: %v", r)
		}
	}()

	backoff := a.rpcBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(a.ctx, rpcTimeout)
		blocks, err = a.getBlocks(ctx, from, to)
		cancel()
		if err == nil || attempt >= rpcAttempts {
			return blocks, err
		}
		select {
		case <-a.ctx.Done():
			return nil, a.ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// coalesceGaps 合并重叠或相邻的区间，再按 window 切分；合并后的重试次数取最大值
func coalesceGaps(gaps []slotGap, window uint64) []slotGap {
	if len(gaps) == 0 {
		return nil
	}
	sorted := slices.Clone(gaps)
	slices.SortFunc(sorted, func(x, y slotGap) int {
		return cmp.Compare(x.from, y.from)
	})

	merged := []slotGap{sorted[0]}
	for _, g := range sorted[1:] {
		last := &merged[len(merged)-1]
		if g.from <= last.to+1 {
			last.to = max(last.to, g.to)
			last.attempts = max(last.attempts, g.attempts)
			if g.seenAt.Before(last.seenAt) {
				last.seenAt = g.seenAt
			}
			continue
		}
		merged = append(merged, g)
	}

	out := make([]slotGap, 0, len(merged))
	for _, g := range merged {
		for from := g.from; from <= g.to; from += window {
			w := g
			w.from = from
			w.to = min(g.to, from+window-1)
			out = append(out, w)
			if w.to == g.to {
				break
			}
		}
	}
	return out
}

// classifyGap 区间内 RPC 返回的 slot 为漏推，其余为空 slot
func classifyGap(from, to uint64, produced []uint64) (skipped, missing []uint64) {
	sorted := slices.Clone(produced)
	slices.Sort(sorted)

	i := 0
	for slot := from; slot <= to; slot++ {
		for i < len(sorted) && sorted[i] < slot {
			i++
		}
		if i < len(sorted) && sorted[i] == slot {
			missing = append(missing, slot)
		} else {
			skipped = append(skipped, slot)
		}
	}
	return skipped, missing
}

// formatSlotRuns 连续 slot 压缩为 a-b，最多输出 maxLoggedRuns 段
func formatSlotRuns(slots []uint64) string {
	var sb strings.Builder
	runs := 0
	for i := 0; i < len(slots); {
		j := i
		for j+1 < len(slots) && slots[j+1] == slots[j]+1 {
			j++
		}
		if runs == maxLoggedRuns {
			sb.WriteString(",...")
			break
		}
		if runs > 0 {
			sb.WriteByte(',')
		}
		if i == j {
			fmt.Fprintf(&sb, "%d", slots[i])
		} else {
			fmt.Fprintf(&sb, "%d-%d", slots[i], slots[j])
		}
		runs++
		i = j + 1
	}
	return sb.String()
}
