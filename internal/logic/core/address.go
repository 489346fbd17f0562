package core

import "jup-indexer-sol/pkg/types"

// ResolveAccount 按索引从交易账户表中取地址，越界返回 false。
// 指令中的索引来自链上数据，不可直接下标访问。
func ResolveAccount(accountKeys []types.Pubkey, index uint32) (types.Pubkey, bool) {
	if uint64(index) >= uint64(len(accountKeys)) {
		return types.Pubkey{}, false
	}
	return accountKeys[index], true
}

// ResolveAccounts 批量解析账户索引，任一越界即整体失败
func ResolveAccounts(accountKeys []types.Pubkey, indexes []byte) ([]types.Pubkey, bool) {
	accounts := make([]types.Pubkey, 0, len(indexes))
	for _, idx := range indexes {
		pk, ok := ResolveAccount(accountKeys, uint32(idx))
		if !ok {
			return nil, false
		}
		accounts = append(accounts, pk)
	}
	return accounts, true
}
