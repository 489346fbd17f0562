package txadapter

import (
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

// mintKV 表示缓存中的一个条目：mint base58 → Pubkey + decimals。
type mintKV struct {
	base58   string       // 原始 mint 字符串（base58 编码）
	pubkey   types.Pubkey // 解码后的 32 字节公钥
	decimals uint8        // Token 精度
}

// mintResolver 用于将 base58 编码的 mint 字符串解析为 Pubkey，并缓存对应的 decimals。
type mintResolver struct {
	cache []mintKV
}

// 参数 capacity 为预估的 token 数量，用于预分配缓存容量。
func newMintResolver(capacity int) *mintResolver {
	return &mintResolver{cache: make([]mintKV, 0, capacity)}
}

// resolve 返回指定 mintStr 对应的 Pubkey，非法地址返回 false。
func (r *mintResolver) resolve(mintStr string, decimals uint8) (types.Pubkey, bool) {
	for _, item := range r.cache {
		if item.base58 == mintStr {
			return item.pubkey, true
		}
	}

	var pk types.Pubkey
	switch mintStr {
	case consts.WSOLMintStr:
		pk = consts.WSOLMint
	case consts.USDCMintStr:
		pk = consts.USDCMint
	case consts.USDTMintStr:
		pk = consts.USDTMint
	default:
		var err error
		if pk, err = types.TryPubkeyFromBase58(mintStr); err != nil {
			return types.Pubkey{}, false
		}
	}
	r.cache = append(r.cache, mintKV{base58: mintStr, pubkey: pk, decimals: decimals})
	return pk, true
}

// buildTokenDecimals 返回当前交易中涉及的所有 mint → decimals 映射，按首次出现顺序。
func (r *mintResolver) buildTokenDecimals() []core.TokenDecimals {
	list := make([]core.TokenDecimals, 0, len(r.cache))
	for _, kv := range r.cache {
		list = append(list, core.TokenDecimals{
			Token: kv.pubkey, Decimals: kv.decimals,
		})
	}
	return list
}
