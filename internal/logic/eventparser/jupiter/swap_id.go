package jupiter

import (
	"fmt"
	"strconv"
	"strings"

	"jup-indexer-sol/pkg/types"
)

// SwapID 交易中第一个 swap 直接使用签名，其后的 swap 追加主指令序号以保持唯一
func SwapID(sig types.Signature, ixIndex uint16, first bool) string {
	if first {
		return sig.String()
	}
	return sig.String() + "-" + strconv.FormatUint(uint64(ixIndex), 10)
}

// ParseSwapID 从 swap id 还原交易签名与主指令序号（第一个 swap 的序号返回 -1）
func ParseSwapID(id string) (types.Signature, int, error) {
	sigPart, ixPart, hasIx := strings.Cut(id, "-")
	sig, err := types.SignatureFromBase58(sigPart)
	if err != nil {
		return types.Signature{}, 0, fmt.Errorf("invalid swap id %q: %w", id, err)
	}
	if !hasIx {
		return sig, -1, nil
	}
	ix, err := strconv.ParseUint(ixPart, 10, 16)
	if err != nil {
		return types.Signature{}, 0, fmt.Errorf("invalid swap id %q: bad instruction index: %w", id, err)
	}
	return sig, int(ix), nil
}
