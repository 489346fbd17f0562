// Package engine 将单个 Yellowstone 区块转换为 Jupiter swap 及其派生实体。
// 区块内严格按交易顺序处理，不做 I/O，不持有跨区块状态，可对不同区块并发调用。
package engine

import (
	"bytes"
	"errors"
	"fmt"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/enrich"
	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/internal/logic/eventparser"
	"jup-indexer-sol/internal/logic/txadapter"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/types"
)

// Stats 区块处理统计。跳过原因只统计账户表中包含 Jupiter 程序的交易。
type Stats struct {
	Txs             int // 区块内交易总数
	JupiterTxs      int // 涉及 Jupiter 程序并成功适配的交易
	VoteTxs         int
	FailedTxs       int
	VersionedTxs    int
	MalformedTxs    int
	PanickedTxs     int
	MalformedIxs    int
	UnrecognizedIxs int
	Swaps           int
}

// Result 单个区块的处理结果
type Result struct {
	TxCtx   *core.TxContext
	Swaps   []*core.Swap
	Changes *entity.Changes
	Stats   Stats
}

// BuildTxContext 校验区块级字段。blockhash 解析失败只记日志并使用零值。
func BuildTxContext(block *pb.SubscribeUpdateBlock) (*core.TxContext, error) {
	if block == nil {
		return nil, fmt.Errorf("%w: nil block", core.ErrCorruptBlock)
	}
	if block.BlockTime == nil {
		return nil, fmt.Errorf("%w: slot %d missing block time", core.ErrCorruptBlock, block.Slot)
	}

	blockHash, err := types.HashFromBase58(block.Blockhash)
	if err != nil {
		logger.Errorf("[engine] BlockHash 无法解析，将使用零值：slot=%d, blockhash=%s, err=%v",
			block.Slot, block.Blockhash, err)
	}

	txCtx := &core.TxContext{
		BlockTime:  block.BlockTime.Timestamp,
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  blockHash,
	}
	if block.BlockHeight != nil {
		txCtx.BlockHeight = block.BlockHeight.BlockHeight
	}
	return txCtx, nil
}

// ProcessBlock 解析区块内全部交易并生成实体行。
// 单笔交易的异常只计入统计；区块结构损坏返回包装 core.ErrCorruptBlock 的错误，且不返回部分结果。
func ProcessBlock(block *pb.SubscribeUpdateBlock) (*Result, error) {
	txCtx, err := BuildTxContext(block)
	if err != nil {
		return nil, err
	}
	for i, tx := range block.Transactions {
		if tx == nil {
			return nil, fmt.Errorf("%w: slot %d nil transaction at position %d", core.ErrCorruptBlock, block.Slot, i)
		}
	}

	eventparser.Init()

	result := &Result{TxCtx: txCtx}
	result.Stats.Txs = len(block.Transactions)
	collector := enrich.NewCollector(txCtx.BlockTime)

	for _, tx := range block.Transactions {
		if !touchesJupiter(tx) {
			continue
		}

		adaptedTx, err := txadapter.AdaptGrpcTx(txCtx, tx)
		if err != nil {
			result.Stats.countSkip(err)
			if errors.Is(err, core.ErrMalformedTx) {
				logger.Warnf("[engine] slot=%d txIndex=%d skipped: %v", txCtx.Slot, tx.Index, err)
			}
			continue
		}
		result.Stats.JupiterTxs++

		swaps, txStats := eventparser.ExtractSwapsFromTx(adaptedTx)
		result.Stats.MalformedIxs += txStats.MalformedIxs
		result.Stats.UnrecognizedIxs += txStats.UnrecognizedIxs
		if txStats.Panicked {
			result.Stats.PanickedTxs++
		}
		if len(swaps) == 0 {
			continue
		}

		collector.AddTx(adaptedTx, swaps)
		result.Swaps = append(result.Swaps, swaps...)
	}
	result.Stats.Swaps = len(result.Swaps)

	changes, err := entity.Map(txCtx, result.Swaps, collector.Pools(), collector.Tokens(), collector.Routes())
	if err != nil {
		return nil, fmt.Errorf("slot %d: map entities: %w", txCtx.Slot, err)
	}
	result.Changes = changes
	return result, nil
}

func (s *Stats) countSkip(err error) {
	switch {
	case errors.Is(err, core.ErrVoteTx):
		s.VoteTxs++
	case errors.Is(err, core.ErrFailedTx):
		s.FailedTxs++
	case errors.Is(err, core.ErrVersionedTx):
		s.VersionedTxs++
	default:
		s.MalformedTxs++
	}
}

// touchesJupiter 账户表中是否包含任一 Jupiter 程序，未命中的交易无需适配。
// 结构不完整的交易交给 AdaptGrpcTx 统一归类。
func touchesJupiter(tx *pb.SubscribeUpdateTransactionInfo) bool {
	msg := tx.GetTransaction().GetMessage()
	if msg == nil || tx.IsVote {
		return true
	}
	for _, key := range msg.AccountKeys {
		if bytes.Equal(key, consts.JupiterV6Program[:]) ||
			bytes.Equal(key, consts.JupiterV4Program[:]) ||
			bytes.Equal(key, consts.JupiterV3Program[:]) {
			return true
		}
	}
	return false
}
