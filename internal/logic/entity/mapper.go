package entity

import (
	"crypto/sha256"
	"strconv"
	"strings"

	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/enrich"
	"jup-indexer-sol/pkg/types"
)

// Changes 一个区块产出的全部实体行
type Changes struct {
	Slot      uint64
	BlockTime int64
	BlockHash types.Hash
	Rows      []*Row
}

// Map 将区块内的 swap 与派生实体映射为实体行，顺序为 Swap、Pool、Token、Route，
// 各类内部保持输入顺序。重复 id 返回 ErrDuplicateRow。
func Map(
	txCtx *core.TxContext,
	swaps []*core.Swap,
	pools []*enrich.Pool,
	tokens []*enrich.Token,
	routes []*enrich.Route,
) (*Changes, error) {
	tables := NewTables()

	for _, s := range swaps {
		if err := mapSwap(tables, txCtx, s); err != nil {
			return nil, err
		}
	}
	for _, p := range pools {
		if err := mapPool(tables, p); err != nil {
			return nil, err
		}
	}
	for _, t := range tokens {
		if err := mapToken(tables, t); err != nil {
			return nil, err
		}
	}
	for _, r := range routes {
		if err := mapRoute(tables, r); err != nil {
			return nil, err
		}
	}

	return &Changes{
		Slot:      txCtx.Slot,
		BlockTime: txCtx.BlockTime,
		BlockHash: txCtx.BlockHash,
		Rows:      tables.Rows(),
	}, nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func i64(v int64) string {
	return strconv.FormatInt(v, 10)
}

// address 零值地址输出为空串
func address(pk types.Pubkey) string {
	if pk.IsZero() {
		return ""
	}
	return pk.String()
}

func hashKey(id string) []byte {
	sum := sha256.Sum256([]byte(id))
	return sum[:]
}

func joinMints(mints []types.Pubkey) string {
	parts := make([]string, 0, len(mints))
	for _, m := range mints {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, ",")
}

func mapSwap(t *Tables, txCtx *core.TxContext, s *core.Swap) error {
	row, err := t.CreateRow(TypeSwap, s.ID)
	if err != nil {
		return err
	}
	row.Key = s.Signature[:]
	row.Set("id", s.ID).
		Set("transactionHash", s.Signature.String()).
		Set("blockNumber", u64(txCtx.Slot)).
		Set("blockTimestamp", i64(txCtx.BlockTime)).
		Set("inputMint", s.InputMint.String()).
		Set("outputMint", s.OutputMint.String()).
		Set("inputAmount", u64(s.InputAmount)).
		Set("outputAmount", u64(s.OutputAmount)).
		Set("user", s.User.String()).
		Set("route", joinMints(s.Route)).
		Set("feeAmount", u64(s.FeeAmount))
	return nil
}

func mapPool(t *Tables, p *enrich.Pool) error {
	row, err := t.CreateRow(TypePool, p.ID)
	if err != nil {
		return err
	}
	row.Key = hashKey(p.ID)
	row.Set("programId", p.Program.String()).
		Set("tokenAMint", p.MintA.String()).
		Set("tokenBMint", p.MintB.String()).
		Set("tokenAAmount", u64(p.AmountA)).
		Set("tokenBAmount", u64(p.AmountB)).
		Set("feeRate", p.FeeRate).
		Set("creationTimestamp", i64(p.CreatedAt)).
		Set("lastUpdateTimestamp", i64(p.UpdatedAt))
	return nil
}

func mapToken(t *Tables, tok *enrich.Token) error {
	row, err := t.CreateRow(TypeToken, tok.Mint.String())
	if err != nil {
		return err
	}
	row.Key = tok.Mint[:]
	row.Set("symbol", tok.Symbol).
		Set("name", tok.Name).
		Set("decimals", strconv.Itoa(int(tok.Decimals))).
		Set("totalVolume", tok.TotalVolume.String()).
		Set("priceUsd", tok.PriceUSD.String())
	return nil
}

func mapRoute(t *Tables, r *enrich.Route) error {
	row, err := t.CreateRow(TypeRoute, r.ID)
	if err != nil {
		return err
	}
	row.Key = hashKey(r.ID)
	row.Set("inputMint", r.InputMint.String()).
		Set("outputMint", r.OutputMint.String()).
		Set("inAmount", r.InAmount.String()).
		Set("outAmount", r.OutAmount.String()).
		Set("priceImpact", r.PriceImpact.String()).
		Set("marketInfoAddress", address(r.MarketInfo))
	return nil
}
