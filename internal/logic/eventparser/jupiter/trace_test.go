package jupiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/internal/testutil"
	"jup-indexer-sol/pkg/types"
)

type ixList struct {
	items []*core.AdaptedInstruction
	inner uint16
}

func (l *ixList) outer(ixIndex uint16, program types.Pubkey) {
	l.inner = 0
	l.items = append(l.items, &core.AdaptedInstruction{IxIndex: ixIndex, StackHeight: 1, ProgramID: program})
}

func (l *ixList) call(stack uint32, program types.Pubkey) {
	l.inner++
	last := l.items[len(l.items)-1]
	l.items = append(l.items, &core.AdaptedInstruction{
		IxIndex: last.IxIndex, InnerIndex: l.inner, StackHeight: stack, ProgramID: program,
	})
}

func (l *ixList) transfer(stack uint32, src, dst, authority types.Pubkey, amount uint64) {
	l.call(stack, consts.TokenProgram)
	ix := l.items[len(l.items)-1]
	ix.Data = testutil.TransferData(amount)
	ix.Accounts = []types.Pubkey{src, dst, authority}
}

func traceContext() *common.ParserContext {
	balances := map[types.Pubkey]*core.TokenBalance{}
	for account, mint := range map[types.Pubkey]types.Pubkey{
		userX: mintX, userY: mintY, userZ: mintZ, poolX: mintX, poolY: mintY, poolZ: mintZ,
	} {
		balances[account] = &core.TokenBalance{TokenAccount: account, Token: mint, PostOwner: poolOwner}
	}
	balances[userX].PostOwner = user
	balances[userY].PostOwner = user
	balances[userZ].PostOwner = user

	return common.BuildParserContext(&core.AdaptedTx{
		TxCtx:    &core.TxContext{Slot: 1},
		FeePayer: user,
		Signers:  []types.Pubkey{user},
		Balances: balances,
	})
}

func TestTransfersFor_TwoHops(t *testing.T) {
	l := &ixList{}
	l.outer(0, consts.ComputeBudgetProgram)
	l.outer(1, consts.JupiterV6Program)
	l.call(2, ammA)
	l.transfer(3, userX, poolX, user, 1000)
	l.transfer(3, poolY, userY, poolOwner, 500)
	l.call(2, ammB)
	l.call(3, testutil.Key(60)) // AMM 内部再次 CPI，不另起 hop
	l.transfer(3, userY, poolY, user, 500)
	l.transfer(3, poolZ, userZ, poolOwner, 90)
	l.call(2, consts.JupiterV6Program) // self-CPI 事件，关闭 hop
	l.transfer(2, userZ, poolZ, user, 1)
	l.outer(2, consts.JupiterV6Program)
	l.transfer(2, userX, poolX, user, 7)

	trace := TransfersFor(traceContext(), l.items, 1)
	require.Len(t, trace.Transfers, 5)
	require.Len(t, trace.Hops, 2)

	assert.Equal(t, []types.Pubkey{ammA, ammB}, trace.AmmPrograms())
	assert.Equal(t, []int{0, 0, 1, 1, -1}, []int{
		trace.Transfers[0].Hop, trace.Transfers[1].Hop, trace.Transfers[2].Hop, trace.Transfers[3].Hop, trace.Transfers[4].Hop,
	})

	h0, h1 := trace.Hops[0], trace.Hops[1]
	require.True(t, h0.Complete())
	require.True(t, h1.Complete())
	assert.Equal(t, mintX, h0.In.Mint)
	assert.Equal(t, mintY, h0.Out.Mint)
	assert.Equal(t, mintY, h1.In.Mint)
	assert.Equal(t, mintZ, h1.Out.Mint)
	assert.Equal(t, uint64(90), h1.Out.Amount)

	// 只统计所属主指令
	for _, tr := range trace.Transfers {
		assert.Equal(t, uint16(1), tr.IxIndex)
	}
}

func TestTransfersFor_WithoutStackHeight(t *testing.T) {
	l := &ixList{}
	l.outer(0, consts.JupiterV4Program)
	l.call(0, ammA)
	l.transfer(0, userX, poolX, user, 1000)
	l.transfer(0, poolY, userY, poolOwner, 400)
	l.call(0, ammB)
	l.transfer(0, userY, poolY, user, 400)
	l.transfer(0, poolZ, userZ, poolOwner, 60)

	trace := TransfersFor(traceContext(), l.items, 0)
	require.Len(t, trace.Transfers, 4)
	require.Len(t, trace.Hops, 2)
	assert.Equal(t, mintY, trace.Hops[0].Out.Mint)
	assert.Equal(t, mintZ, trace.Hops[1].Out.Mint)
}

func TestTransfersFor_NoInner(t *testing.T) {
	l := &ixList{}
	l.outer(0, consts.JupiterV6Program)
	l.outer(1, consts.JupiterV6Program)
	l.transfer(2, userX, poolX, user, 1)

	trace := TransfersFor(traceContext(), l.items, 0)
	assert.Empty(t, trace.Transfers)
	assert.Empty(t, trace.Hops)

	assert.Empty(t, TransfersFor(traceContext(), l.items, 10).Transfers)
}

func TestTransfersFor_SkipsUnknownMintAndMalformed(t *testing.T) {
	l := &ixList{}
	l.outer(0, consts.JupiterV6Program)
	l.transfer(2, testutil.Key(70), testutil.Key(71), user, 5) // 两端均不在余额表中
	l.transfer(2, userX, poolX, user, 6)
	l.items[len(l.items)-1].Malformed = true
	l.transfer(2, userX, poolX, user, 7)

	trace := TransfersFor(traceContext(), l.items, 0)
	require.Len(t, trace.Transfers, 1)
	assert.Equal(t, uint64(7), trace.Transfers[0].Amount)
}
