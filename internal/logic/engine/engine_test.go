package engine

import (
	"testing"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/internal/logic/eventparser/jupiter"
	"jup-indexer-sol/internal/testutil"
)

var (
	user      = testutil.Key(1)
	mintX     = testutil.Key(2)
	mintY     = testutil.Key(3)
	mintZ     = testutil.Key(4)
	userX     = testutil.Key(5)
	userY     = testutil.Key(6)
	userZ     = testutil.Key(7)
	poolOwner = testutil.Key(8)
	vaultX    = testutil.Key(9)
	vaultY    = testutil.Key(10)
	vaultZ    = testutil.Key(11)
	amm       = testutil.Key(40)
)

func wallet(sigSeed byte) *testutil.TxBuilder {
	b := testutil.NewTx(sigSeed, user)
	b.TokenAccount(userX, mintX, user, 6, 5000, 4000)
	b.TokenAccount(userY, mintY, user, 6, 0, 950)
	b.TokenAccount(userZ, mintZ, user, 6, 0, 70)
	b.TokenAccount(vaultX, mintX, poolOwner, 6, 10_000, 11_000)
	b.TokenAccount(vaultY, mintY, poolOwner, 6, 20_000, 19_050)
	b.TokenAccount(vaultZ, mintZ, poolOwner, 6, 30_000, 29_930)
	return b
}

// v6Swap X → Y，1000 换 950，经过一个 AMM
func v6Swap(sigSeed byte) *testutil.TxBuilder {
	b := wallet(sigSeed)
	outer := b.Outer(consts.JupiterV6Program, testutil.V6RouteData(1000, 940), testutil.V6RouteAccounts(user, userX, userY, mintY)...)
	b.Inner(outer, 2, amm, []byte{1})
	b.Transfer(outer, 3, userX, vaultX, user, 1000)
	b.Transfer(outer, 3, vaultY, userY, poolOwner, 950)
	return b
}

func rowsOf(changes *entity.Changes, typ entity.Type) []*entity.Row {
	var out []*entity.Row
	for _, r := range changes.Rows {
		if r.Entity == typ {
			out = append(out, r)
		}
	}
	return out
}

func field(t *testing.T, r *entity.Row, name string) string {
	t.Helper()
	v, ok := r.Get(name)
	require.True(t, ok, name)
	return v
}

func TestV6ExactInScenario(t *testing.T) {
	block := testutil.Block(300, 1700000000, v6Swap(1).Build(0))

	res, err := ProcessBlock(block)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Swaps)
	assert.Equal(t, 1, res.Stats.JupiterTxs)

	swaps := rowsOf(res.Changes, entity.TypeSwap)
	require.Len(t, swaps, 1)
	s := swaps[0]
	assert.Equal(t, mintX.String(), field(t, s, "inputMint"))
	assert.Equal(t, mintY.String(), field(t, s, "outputMint"))
	assert.Equal(t, "1000", field(t, s, "inputAmount"))
	assert.Equal(t, "950", field(t, s, "outputAmount"))
	assert.Equal(t, "300", field(t, s, "blockNumber"))
	assert.Equal(t, "1700000000", field(t, s, "blockTimestamp"))
	assert.Equal(t, user.String(), field(t, s, "user"))
	assert.Equal(t, "", field(t, s, "route"))
	assert.Equal(t, "0", field(t, s, "feeAmount"))

	// swap id 可还原为交易签名
	sig, _, err := jupiter.ParseSwapID(s.ID)
	require.NoError(t, err)
	assert.Equal(t, field(t, s, "transactionHash"), sig.String())

	pools := rowsOf(res.Changes, entity.TypePool)
	require.Len(t, pools, 1)
	assert.Equal(t, amm.String(), field(t, pools[0], "programId"))

	tokens := rowsOf(res.Changes, entity.TypeToken)
	require.Len(t, tokens, 2)
	assert.Equal(t, "1000", field(t, tokens[0], "totalVolume"))

	routes := rowsOf(res.Changes, entity.TypeRoute)
	require.Len(t, routes, 1)
	assert.Equal(t, amm.String(), field(t, routes[0], "marketInfoAddress"))
}

func TestV4ThreeHopScenario(t *testing.T) {
	b := wallet(2)
	outer := b.Outer(consts.JupiterV4Program, testutil.V4RouteData(1000, 60), consts.TokenProgram, user, userZ)
	b.Transfer(outer, 2, userX, vaultX, user, 1000)
	b.Transfer(outer, 2, vaultY, vaultZ, poolOwner, 500)
	b.Transfer(outer, 2, vaultZ, userZ, poolOwner, 70)

	res, err := ProcessBlock(testutil.Block(301, 1700000001, b.Build(0)))
	require.NoError(t, err)

	swaps := rowsOf(res.Changes, entity.TypeSwap)
	require.Len(t, swaps, 1)
	assert.Equal(t, mintX.String(), field(t, swaps[0], "inputMint"))
	assert.Equal(t, mintZ.String(), field(t, swaps[0], "outputMint"))
	assert.Equal(t, mintY.String(), field(t, swaps[0], "route"))
	assert.Equal(t, "1000", field(t, swaps[0], "inputAmount"))
	assert.Equal(t, "70", field(t, swaps[0], "outputAmount"))
}

func TestUnknownOpcodeAndNonJupiter(t *testing.T) {
	unknown := wallet(3)
	outer := unknown.Outer(consts.JupiterV6Program, testutil.AnchorData("not_an_instruction", testutil.U64(1)),
		testutil.V6RouteAccounts(user, userX, userY, mintY)...)
	unknown.Transfer(outer, 2, userX, vaultX, user, 1000)
	unknown.Transfer(outer, 2, vaultY, userY, poolOwner, 950)

	plain := wallet(4)
	o := plain.Outer(amm, []byte{1}, userX)
	plain.Transfer(o, 2, userX, vaultX, user, 1000)
	plain.Transfer(o, 2, vaultY, userY, poolOwner, 950)

	res, err := ProcessBlock(testutil.Block(302, 1700000002, unknown.Build(0), plain.Build(1)))
	require.NoError(t, err)
	assert.Zero(t, res.Stats.Swaps)
	assert.Equal(t, 1, res.Stats.UnrecognizedIxs)
	assert.Equal(t, 1, res.Stats.JupiterTxs)
	assert.Empty(t, res.Changes.Rows)
}

func TestOutOfRangeIndexIsLocal(t *testing.T) {
	bad := wallet(5)
	jup := bad.Key(consts.JupiterV6Program)
	bad.OuterRaw(jup, []byte{0, 1, 77}, testutil.V6RouteData(1, 1))

	res, err := ProcessBlock(testutil.Block(303, 1700000003, bad.Build(0), v6Swap(6).Build(1)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.MalformedIxs)
	assert.Equal(t, 1, res.Stats.Swaps)
}

func TestSkippedTransactions(t *testing.T) {
	res, err := ProcessBlock(testutil.Block(304, 1700000004,
		v6Swap(7).Failed().Build(0),
		v6Swap(8).Versioned().Build(1),
		v6Swap(9).Vote().Build(2),
		v6Swap(10).Build(3),
	))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Stats.Txs)
	assert.Equal(t, 1, res.Stats.FailedTxs)
	assert.Equal(t, 1, res.Stats.VersionedTxs)
	assert.Equal(t, 1, res.Stats.VoteTxs)
	assert.Equal(t, 1, res.Stats.Swaps)
}

func TestBlockOrderAndIdempotence(t *testing.T) {
	block := testutil.Block(305, 1700000005, v6Swap(11).Build(0), v6Swap(12).Build(1), v6Swap(13).Build(2))

	first, err := ProcessBlock(block)
	require.NoError(t, err)
	second, err := ProcessBlock(block)
	require.NoError(t, err)

	assert.Equal(t, first.Changes, second.Changes)
	require.Len(t, first.Swaps, 3)
	for i, s := range first.Swaps {
		assert.Equal(t, uint32(i), s.TxIndex)
	}

	// 同一池子与路由在区块内合并
	assert.Len(t, rowsOf(first.Changes, entity.TypePool), 1)
	routes := rowsOf(first.Changes, entity.TypeRoute)
	require.Len(t, routes, 1)
	assert.Equal(t, "3000", field(t, routes[0], "inAmount"))
	assert.Equal(t, "2850", field(t, routes[0], "outAmount"))
}

func TestCorruptBlock(t *testing.T) {
	_, err := ProcessBlock(nil)
	assert.ErrorIs(t, err, core.ErrCorruptBlock)

	noTime := testutil.Block(306, 0, v6Swap(14).Build(0))
	noTime.BlockTime = nil
	_, err = ProcessBlock(noTime)
	assert.ErrorIs(t, err, core.ErrCorruptBlock)

	withNil := testutil.Block(307, 1, v6Swap(15).Build(0))
	withNil.Transactions = append(withNil.Transactions, (*pb.SubscribeUpdateTransactionInfo)(nil))
	res, err := ProcessBlock(withNil)
	assert.ErrorIs(t, err, core.ErrCorruptBlock)
	assert.Nil(t, res)
}

func TestBuildTxContext(t *testing.T) {
	block := testutil.Block(308, 1700000008)
	block.Blockhash = "not base58 0OIl"

	txCtx, err := BuildTxContext(block)
	require.NoError(t, err)
	assert.Equal(t, uint64(308), txCtx.Slot)
	assert.Equal(t, uint64(307), txCtx.ParentSlot)
	assert.Equal(t, uint64(208), txCtx.BlockHeight)
	assert.Equal(t, int64(1700000008), txCtx.BlockTime)
	assert.True(t, txCtx.BlockHash == [32]byte{})
}
