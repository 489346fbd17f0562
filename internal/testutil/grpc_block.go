// Package testutil 构造 Yellowstone gRPC 区块 / 交易测试数据，仅供各包单元测试使用。
package testutil

import (
	"encoding/binary"
	"strconv"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/pkg/types"
)

// Key 按种子生成确定性的测试地址
func Key(seed byte) types.Pubkey {
	var pk types.Pubkey
	for i := range pk {
		pk[i] = seed
	}
	pk[0] = 0xA0
	return pk
}

// Sig 按种子生成确定性的 64 字节签名
func Sig(seed byte) []byte {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = seed ^ byte(i)
	}
	sig[0] = 0x5A
	return sig
}

// TransferData SPL Token Transfer 指令数据
func TransferData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = byte(sdktoken.InstructionTransfer)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

// TransferCheckedData SPL Token TransferChecked 指令数据
func TransferCheckedData(amount uint64, decimals uint8) []byte {
	data := make([]byte, 10)
	data[0] = byte(sdktoken.InstructionTransferChecked)
	binary.LittleEndian.PutUint64(data[1:], amount)
	data[9] = decimals
	return data
}

// TxBuilder 逐步拼装一笔 legacy 交易
type TxBuilder struct {
	sig       []byte
	signers   uint32
	keys      [][]byte
	index     map[types.Pubkey]uint32
	outers    []*pb.CompiledInstruction
	inners    []*pb.InnerInstructions
	pre       []*pb.TokenBalance
	post      []*pb.TokenBalance
	failed    bool
	vote      bool
	versioned bool
}

// NewTx feePayer 固定为 accountKeys[0]，也是唯一签名者
func NewTx(sigSeed byte, feePayer types.Pubkey) *TxBuilder {
	b := &TxBuilder{
		sig:     Sig(sigSeed),
		signers: 1,
		index:   make(map[types.Pubkey]uint32),
	}
	b.Key(feePayer)
	return b
}

// Key 返回地址在账户表中的索引，不存在则追加
func (b *TxBuilder) Key(pk types.Pubkey) uint32 {
	if idx, ok := b.index[pk]; ok {
		return idx
	}
	idx := uint32(len(b.keys))
	raw := make([]byte, 32)
	copy(raw, pk[:])
	b.keys = append(b.keys, raw)
	b.index[pk] = idx
	return idx
}

func (b *TxBuilder) indexes(accounts []types.Pubkey) []byte {
	out := make([]byte, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, byte(b.Key(a)))
	}
	return out
}

// Outer 追加一条主指令，返回主指令序号
func (b *TxBuilder) Outer(program types.Pubkey, data []byte, accounts ...types.Pubkey) uint32 {
	programIdx := b.Key(program)
	return b.OuterRaw(programIdx, b.indexes(accounts), data)
}

// OuterRaw 直接指定索引，用于构造越界等异常数据
func (b *TxBuilder) OuterRaw(programIdx uint32, accountIdx []byte, data []byte) uint32 {
	b.outers = append(b.outers, &pb.CompiledInstruction{
		ProgramIdIndex: programIdx,
		Accounts:       accountIdx,
		Data:           data,
	})
	return uint32(len(b.outers) - 1)
}

// Inner 追加一条 inner 指令，stackHeight 为 0 表示旧数据无栈深
func (b *TxBuilder) Inner(outer uint32, stackHeight uint32, program types.Pubkey, data []byte, accounts ...types.Pubkey) {
	ix := &pb.InnerInstruction{
		ProgramIdIndex: b.Key(program),
		Accounts:       b.indexes(accounts),
		Data:           data,
	}
	if stackHeight > 0 {
		h := stackHeight
		ix.StackHeight = &h
	}
	for _, group := range b.inners {
		if group.Index == outer {
			group.Instructions = append(group.Instructions, ix)
			return
		}
	}
	b.inners = append(b.inners, &pb.InnerInstructions{Index: outer, Instructions: []*pb.InnerInstruction{ix}})
}

// Transfer 追加一条 SPL Token Transfer inner 指令
func (b *TxBuilder) Transfer(outer, stackHeight uint32, src, dst, authority types.Pubkey, amount uint64) {
	b.Inner(outer, stackHeight, consts.TokenProgram, TransferData(amount), src, dst, authority)
}

// TransferChecked 追加一条 SPL Token TransferChecked inner 指令
func (b *TxBuilder) TransferChecked(outer, stackHeight uint32, src, mint, dst, authority types.Pubkey, amount uint64, decimals uint8) {
	b.Inner(outer, stackHeight, consts.TokenProgram, TransferCheckedData(amount, decimals), src, mint, dst, authority)
}

// TokenAccount 登记 token account 的 pre/post 余额
func (b *TxBuilder) TokenAccount(account, mint, owner types.Pubkey, decimals uint32, pre, post uint64) {
	idx := b.Key(account)
	mk := func(amount uint64) *pb.TokenBalance {
		return &pb.TokenBalance{
			AccountIndex: idx,
			Mint:         mint.String(),
			Owner:        owner.String(),
			ProgramId:    consts.TokenProgramStr,
			UiTokenAmount: &pb.UiTokenAmount{
				Decimals: decimals,
				Amount:   strconv.FormatUint(amount, 10),
			},
		}
	}
	b.pre = append(b.pre, mk(pre))
	b.post = append(b.post, mk(post))
}

func (b *TxBuilder) Failed() *TxBuilder {
	b.failed = true
	return b
}

func (b *TxBuilder) Vote() *TxBuilder {
	b.vote = true
	return b
}

func (b *TxBuilder) Versioned() *TxBuilder {
	b.versioned = true
	return b
}

// Build 生成 gRPC 交易结构
func (b *TxBuilder) Build(txIndex uint64) *pb.SubscribeUpdateTransactionInfo {
	meta := &pb.TransactionStatusMeta{
		InnerInstructions: b.inners,
		PreTokenBalances:  b.pre,
		PostTokenBalances: b.post,
	}
	if b.failed {
		meta.Err = &pb.TransactionError{Err: []byte{1}}
	}
	return &pb.SubscribeUpdateTransactionInfo{
		Signature: b.sig,
		IsVote:    b.vote,
		Index:     txIndex,
		Transaction: &pb.Transaction{
			Signatures: [][]byte{b.sig},
			Message: &pb.Message{
				Header:       &pb.MessageHeader{NumRequiredSignatures: b.signers},
				AccountKeys:  b.keys,
				Instructions: b.outers,
				Versioned:    b.versioned,
			},
		},
		Meta: meta,
	}
}

// Block 组装区块，交易序号按传入顺序
func Block(slot uint64, blockTime int64, txs ...*pb.SubscribeUpdateTransactionInfo) *pb.SubscribeUpdateBlock {
	return &pb.SubscribeUpdateBlock{
		Slot:         slot,
		Blockhash:    consts.SystemProgramStr,
		ParentSlot:   slot - 1,
		BlockTime:    &pb.UnixTimestamp{Timestamp: blockTime},
		BlockHeight:  &pb.BlockHeight{BlockHeight: slot - 100},
		Transactions: txs,
	}
}
