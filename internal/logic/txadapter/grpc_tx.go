package txadapter

import (
	"fmt"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
	"jup-indexer-sol/pkg/utils"
)

// buildFullAccountKeys 构造交易中完整的账户 Pubkey 列表。
// 拼接 message.accountKeys 与 Address Lookup Table 中的 writable / readonly 地址，
// 供后续通过 accountIndex 索引使用。legacy 交易后两部分为空。
func buildFullAccountKeys(
	accountKeys, loadedWritable, loadedReadonly [][]byte,
) ([]types.Pubkey, error) {
	total := len(accountKeys) + len(loadedWritable) + len(loadedReadonly)
	pubkeys := make([]types.Pubkey, 0, total)

	for _, part := range [][][]byte{accountKeys, loadedWritable, loadedReadonly} {
		for _, b := range part {
			pk, ok := types.PubkeyFromBytes(b)
			if !ok {
				return nil, fmt.Errorf("invalid pubkey length %d at account index %d", len(b), len(pubkeys))
			}
			pubkeys = append(pubkeys, pk)
		}
	}
	return pubkeys, nil
}

// buildAdaptedBalances 构建交易中的 TokenBalance 映射与 decimals 映射。
// 处理 Pre/PostTokenBalances 中的标准 SPL Token 账户，返回：
//   - balanceMap：token account → TokenBalance（含 mint、owner、pre/post 余额等）
//   - tokenDecimals：当前交易中涉及的 mint → decimals（去重 + 有序）
//
// accountIndex 越界或地址非法的条目直接丢弃。
func buildAdaptedBalances(
	owners *ownerResolver,
	tx *pb.SubscribeUpdateTransactionInfo,
	accountKeys []types.Pubkey,
) (map[types.Pubkey]*core.TokenBalance, []core.TokenDecimals) {
	postList := tx.Meta.PostTokenBalances
	preList := tx.Meta.PreTokenBalances

	capacity := len(preList) + len(postList)
	balanceMap := make(map[types.Pubkey]*core.TokenBalance, capacity)
	mints := newMintResolver(capacity)

	// 先处理 Post（代表账户最终状态），PreBalance 默认为 0
	for _, post := range postList {
		if post == nil || !consts.IsSPLToken(post.ProgramId) {
			continue
		}
		account, ok := core.ResolveAccount(accountKeys, post.AccountIndex)
		if !ok {
			continue
		}
		decimals := uint8(post.GetUiTokenAmount().GetDecimals())
		mint, ok1 := mints.resolve(post.Mint, decimals)
		owner, ok2 := owners.resolve(post.Owner)
		if !ok1 || !ok2 {
			continue
		}
		balanceMap[account] = &core.TokenBalance{
			TokenAccount:   account,
			Token:          mint,
			PostBalance:    utils.ParseUint64(post.GetUiTokenAmount().GetAmount()),
			PostOwner:      owner,
			Decimals:       decimals,
			TokenProgramID: tokenProgramOf(post.ProgramId),
		}
	}

	// 再补充 Pre（如账户只出现在 Pre 中，说明交易内被关闭）
	for _, pre := range preList {
		if pre == nil || !consts.IsSPLToken(pre.ProgramId) {
			continue
		}
		account, ok := core.ResolveAccount(accountKeys, pre.AccountIndex)
		if !ok {
			continue
		}
		owner, ok := owners.resolve(pre.Owner)
		if !ok {
			continue
		}
		if tb, exists := balanceMap[account]; exists {
			tb.HasPreOwner = true
			tb.PreOwner = owner
			tb.PreBalance = utils.ParseUint64(pre.GetUiTokenAmount().GetAmount())
			continue
		}

		decimals := uint8(pre.GetUiTokenAmount().GetDecimals())
		mint, ok := mints.resolve(pre.Mint, decimals)
		if !ok {
			continue
		}
		balanceMap[account] = &core.TokenBalance{
			TokenAccount:   account,
			Token:          mint,
			HasPreOwner:    true,
			PreOwner:       owner,
			PostOwner:      owner, // Pre-only 情况默认设置 PostOwner = PreOwner
			PreBalance:     utils.ParseUint64(pre.GetUiTokenAmount().GetAmount()),
			Decimals:       decimals,
			TokenProgramID: tokenProgramOf(pre.ProgramId),
		}
	}

	return balanceMap, mints.buildTokenDecimals()
}

func tokenProgramOf(programId string) types.Pubkey {
	if programId == consts.TokenProgram2022Str {
		return consts.TokenProgram2022
	}
	return consts.TokenProgram
}

// adaptInstruction 解析单条指令的 programId 与账户索引。
// 越界时只标记本条指令为 Malformed，不影响同交易其它指令。
func adaptInstruction(
	accountKeys []types.Pubkey,
	ixIndex, innerIndex uint16,
	stackHeight uint32,
	programIdIndex uint32,
	accountIndexes, data []byte,
) *core.AdaptedInstruction {
	ix := &core.AdaptedInstruction{
		IxIndex:     ixIndex,
		InnerIndex:  innerIndex,
		StackHeight: stackHeight,
		Data:        data,
	}
	programID, ok := core.ResolveAccount(accountKeys, programIdIndex)
	if !ok {
		ix.Malformed = true
		return ix
	}
	ix.ProgramID = programID

	accounts, ok := core.ResolveAccounts(accountKeys, accountIndexes)
	if !ok {
		ix.Malformed = true
		return ix
	}
	ix.Accounts = accounts
	return ix
}

// buildAdaptedInstructions 扁平化解析主指令与 inner 指令，输出统一结构。
// 每条主指令与其 inner 指令将展开为多条 AdaptedInstruction：
//   - IxIndex：主指令索引；
//   - InnerIndex：0 表示主指令，1及以上表示对应的 inner 指令序号。
func buildAdaptedInstructions(
	tx *pb.SubscribeUpdateTransactionInfo,
	accountKeys []types.Pubkey,
) []*core.AdaptedInstruction {
	rawInstructions := tx.Transaction.Message.Instructions
	rawInners := tx.Meta.InnerInstructions

	// 预分配容量：假设每条主指令平均含有 2 条 inner 指令，最低保留 32 条
	instructions := make([]*core.AdaptedInstruction, 0, max(len(rawInstructions)*2, 32))
	innerPos := 0

	for i, inst := range rawInstructions {
		if inst == nil {
			instructions = append(instructions, &core.AdaptedInstruction{IxIndex: uint16(i), Malformed: true})
			continue
		}
		instructions = append(instructions, adaptInstruction(
			accountKeys, uint16(i), 0, 1, inst.ProgramIdIndex, inst.Accounts, inst.Data,
		))

		// inner 列表按主指令索引递增排列，顺序匹配即可；跳过指向不存在主指令的异常分组
		for innerPos < len(rawInners) && (rawInners[innerPos] == nil || int(rawInners[innerPos].Index) < i) {
			innerPos++
		}
		if innerPos < len(rawInners) && int(rawInners[innerPos].Index) == i {
			for j, inner := range rawInners[innerPos].Instructions {
				if inner == nil {
					continue
				}
				instructions = append(instructions, adaptInstruction(
					accountKeys, uint16(i), uint16(j+1), inner.GetStackHeight(),
					inner.ProgramIdIndex, inner.Accounts, inner.Data,
				))
			}
			innerPos++
		}
	}

	return instructions
}

// AdaptGrpcTx 将 gRPC 推送的交易数据解析为内部 AdaptedTx 结构。
// 完整流程：
//  1. 校验交易结构，跳过 vote / 失败 / versioned 交易；
//  2. 构建 accountKeys；
//  3. 构建指令（主 + inner）；
//  4. 构建 Token 余额（含 decimals 去重）；
//
// 如 panic 会被 recover 并转为 error，调用方只跳过该笔交易。
func AdaptGrpcTx(txCtx *core.TxContext, tx *pb.SubscribeUpdateTransactionInfo) (_ *core.AdaptedTx, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: AdaptGrpcTx panic: %v", core.ErrMalformedTx, r)
		}
	}()

	if err := ValidateGrpcTx(tx); err != nil {
		return nil, err
	}

	msg := tx.Transaction.Message
	accountKeys, err := buildFullAccountKeys(
		msg.AccountKeys,
		tx.Meta.LoadedWritableAddresses,
		tx.Meta.LoadedReadonlyAddresses,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: buildFullAccountKeys: %v", core.ErrMalformedTx, err)
	}
	if len(accountKeys) == 0 {
		return nil, fmt.Errorf("%w: empty accountKeys", core.ErrMalformedTx)
	}

	// 获取 signer 数量（前 N 个 accountKeys 视为 signer）
	signerCount := int(msg.GetHeader().GetNumRequiredSignatures())
	if signerCount == 0 || len(accountKeys) < signerCount {
		return nil, fmt.Errorf("%w: invalid signer count %d", core.ErrMalformedTx, signerCount)
	}

	signature, err := types.SignatureFromBytes(tx.Transaction.Signatures[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedTx, err)
	}

	balances, tokenDecimals := buildAdaptedBalances(newOwnerResolver(len(accountKeys)), tx, accountKeys)

	return &core.AdaptedTx{
		TxCtx:         txCtx,
		TxIndex:       uint32(tx.Index),
		Signature:     signature,
		FeePayer:      accountKeys[0],
		Signers:       accountKeys[:signerCount],
		Instructions:  buildAdaptedInstructions(tx, accountKeys),
		LogMessages:   tx.Meta.LogMessages,
		Balances:      balances,
		TokenDecimals: tokenDecimals,
	}, nil
}
