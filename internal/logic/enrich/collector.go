// Package enrich 从单个区块的 swap 中派生 Pool / Token / Route 汇总，
// 结果只依赖区块内数据，不跨区块保留状态。
package enrich

import (
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

// Collector 区块级汇总器，按交易顺序调用 AddTx，输出顺序为首次出现顺序
type Collector struct {
	blockTime int64

	pools   map[string]*Pool
	poolIDs []string

	tokens map[types.Pubkey]*Token
	mints  []types.Pubkey
	quotes map[pairKey]*pairVolume

	routes   map[string]*routeAcc
	routeIDs []string
}

func NewCollector(blockTime int64) *Collector {
	return &Collector{
		blockTime: blockTime,
		pools:     make(map[string]*Pool),
		tokens:    make(map[types.Pubkey]*Token),
		quotes:    make(map[pairKey]*pairVolume),
		routes:    make(map[string]*routeAcc),
	}
}

// AddTx 记录一笔交易产出的 swap。tx 提供余额表（vault post balance 与 mint 精度）。
func (c *Collector) AddTx(tx *core.AdaptedTx, swaps []*core.Swap) {
	for _, swap := range swaps {
		c.observePools(tx, swap)
		c.observeTokens(tx, swap)
		c.observeRoute(swap)
	}
}
