package txadapter

import (
	"jup-indexer-sol/pkg/types"
)

type ownerKV struct {
	base58 string       // 原始 owner 字符串
	pubkey types.Pubkey // 解码后的公钥
}

// ownerResolver 解析 base58 owner 地址 → types.Pubkey，仅缓存解码结果。
// 单笔交易内 owner 数量很少，切片顺序查找即可。
type ownerResolver struct {
	cached []ownerKV
}

// newOwnerResolver 创建 resolver，容量为预估 owner 数量。
func newOwnerResolver(capacity int) *ownerResolver {
	return &ownerResolver{cached: make([]ownerKV, 0, capacity)}
}

// resolve 解码 base58 owner 字符串，命中则返回缓存值，否则解码后加入缓存。
// 非法地址返回 false。
func (r *ownerResolver) resolve(base58Str string) (types.Pubkey, bool) {
	for _, kv := range r.cached {
		if kv.base58 == base58Str {
			return kv.pubkey, true
		}
	}
	pk, err := types.TryPubkeyFromBase58(base58Str)
	if err != nil {
		return types.Pubkey{}, false
	}
	r.cached = append(r.cached, ownerKV{base58: base58Str, pubkey: pk})
	return pk, true
}
