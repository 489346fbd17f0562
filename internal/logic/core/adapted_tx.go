package core

import (
	"jup-indexer-sol/pkg/types"
)

// TxContext 表示交易所属区块的上下文信息，包含时间、高度等元数据。
type TxContext struct {
	BlockTime   int64      // 区块时间戳（Unix 秒）
	Slot        uint64     // 当前 Slot（Solana 高度单位）
	ParentSlot  uint64     // 父 Slot（用于分叉检测和回滚）
	BlockHeight uint64     // 区块高度（辅助比对）
	BlockHash   types.Hash // 区块哈希（辅助去重与 fork 检测）
}

// AdaptedInstruction 表示一条主指令或 inner 指令，来源于 Solana Transaction 中的 message.instructions 或 innerInstructions。
// 所有指令在预处理阶段已展平，并补充了位置信息（IxIndex、InnerIndex），以支持顺序遍历与事件定位。
type AdaptedInstruction struct {
	IxIndex     uint16         // 主指令索引（从 0 开始）
	InnerIndex  uint16         // Inner 指令在主指令中的序号，主指令本身为 0，CPI 调用从 1 开始
	StackHeight uint32         // 调用栈深度，主指令为 1；旧数据缺失时为 0
	ProgramID   types.Pubkey   // 指令对应的程序 ID
	Accounts    []types.Pubkey // 指令涉及的账户列表，保持原始顺序
	Data        []byte         // 指令原始数据，用于 handler 判断指令类型与解析参数

	// Malformed 表示 programIdIndex 或账户索引越界，此时 Accounts 为空，
	// ProgramID 仅在 programIdIndex 合法时有效。只影响本条指令。
	Malformed bool
}

// IsOuter 是否为交易主指令
func (ix *AdaptedInstruction) IsOuter() bool {
	return ix.InnerIndex == 0
}

// TokenBalance 表示某个 SPL Token 账户在交易执行前后的余额信息。
type TokenBalance struct {
	Decimals       uint8
	HasPreOwner    bool
	PreBalance     uint64 // 交易执行前余额（最小单位）
	PostBalance    uint64 // 交易执行后余额
	TokenAccount   types.Pubkey
	Token          types.Pubkey
	PreOwner       types.Pubkey
	PostOwner      types.Pubkey
	TokenProgramID types.Pubkey
}

// OwnedBy 判断 token account 在交易前后是否归属 owner
func (b *TokenBalance) OwnedBy(owner types.Pubkey) bool {
	if b.PostOwner == owner {
		return true
	}
	return b.HasPreOwner && b.PreOwner == owner
}

// TokenDecimals 表示某 mint 的精度信息（通常用于解析金额）。
type TokenDecimals struct {
	Token    types.Pubkey
	Decimals uint8
}

// AdaptedTx 表示已解析的链上交易结构，包含上下文、指令与余额变动信息。
// 是事件解析流程的核心输入结构体。
type AdaptedTx struct {
	TxCtx     *TxContext      // 所属区块上下文
	TxIndex   uint32          // 当前交易在区块中的序号
	Signature types.Signature // 交易签名，同时作为交易 hash
	FeePayer  types.Pubkey    // accountKeys[0]
	Signers   []types.Pubkey  // 交易签名者列表

	// Instructions 表示交易中的所有指令（包括主指令和 inner 指令），已按 Solana 执行顺序展平。
	Instructions []*AdaptedInstruction

	LogMessages []string

	// Balances 记录交易中涉及的 SPL Token 账户余额快照（交易前后余额）。
	Balances map[types.Pubkey]*TokenBalance

	// TokenDecimals 表示本交易中涉及的 mint → decimals 精度映射。
	// 单笔交易涉及的 mint 很少，切片顺序查找即可。
	TokenDecimals []TokenDecimals
}

func (tx *AdaptedTx) GetDecimalsByMint(mint types.Pubkey) (uint8, bool) {
	for _, v := range tx.TokenDecimals {
		if v.Token == mint {
			return v.Decimals, true
		}
	}
	return 0, false
}

// AddTokenDecimals 添加一个 mint 和 decimals，重复则跳过
func (tx *AdaptedTx) AddTokenDecimals(mint types.Pubkey, decimals uint8) {
	for _, v := range tx.TokenDecimals {
		if v.Token == mint {
			return
		}
	}
	tx.TokenDecimals = append(tx.TokenDecimals, TokenDecimals{
		Token:    mint,
		Decimals: decimals,
	})
}

// IsSigner 判断地址是否为交易签名者
func (tx *AdaptedTx) IsSigner(pk types.Pubkey) bool {
	for _, s := range tx.Signers {
		if s == pk {
			return true
		}
	}
	return false
}
