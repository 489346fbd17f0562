package txadapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/testutil"
)

var txCtx = &core.TxContext{Slot: 100, BlockTime: 1700000000}

func TestAdaptGrpcTx_FlattensInstructions(t *testing.T) {
	user := testutil.Key(1)
	userX, poolX := testutil.Key(2), testutil.Key(3)
	mintX := testutil.Key(4)

	b := testutil.NewTx(1, user)
	b.TokenAccount(userX, mintX, user, 6, 5000, 4000)
	b.TokenAccount(poolX, mintX, testutil.Key(9), 6, 0, 1000)
	outer := b.Outer(consts.JupiterV6Program, []byte{1, 2, 3}, user, userX)
	b.Transfer(outer, 2, userX, poolX, user, 1000)
	b.Outer(consts.ComputeBudgetProgram, []byte{2})

	tx, err := AdaptGrpcTx(txCtx, b.Build(3))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), tx.TxIndex)
	assert.Equal(t, user, tx.FeePayer)
	assert.True(t, tx.IsSigner(user))
	require.Len(t, tx.Instructions, 3)

	assert.Equal(t, consts.JupiterV6Program, tx.Instructions[0].ProgramID)
	assert.True(t, tx.Instructions[0].IsOuter())
	assert.Equal(t, uint32(1), tx.Instructions[0].StackHeight)

	inner := tx.Instructions[1]
	assert.Equal(t, uint16(0), inner.IxIndex)
	assert.Equal(t, uint16(1), inner.InnerIndex)
	assert.Equal(t, uint32(2), inner.StackHeight)
	assert.Equal(t, consts.TokenProgram, inner.ProgramID)

	assert.Equal(t, uint16(1), tx.Instructions[2].IxIndex)

	bal := tx.Balances[userX]
	require.NotNil(t, bal)
	assert.Equal(t, mintX, bal.Token)
	assert.Equal(t, uint64(5000), bal.PreBalance)
	assert.Equal(t, uint64(4000), bal.PostBalance)
	assert.True(t, bal.OwnedBy(user))

	dec, ok := tx.GetDecimalsByMint(mintX)
	assert.True(t, ok)
	assert.Equal(t, uint8(6), dec)
}

func TestAdaptGrpcTx_OutOfRangeIndexMarksOnlyInstruction(t *testing.T) {
	user := testutil.Key(1)
	b := testutil.NewTx(2, user)
	jup := b.Key(consts.JupiterV6Program)
	b.OuterRaw(jup, []byte{0, 200}, []byte{1})
	b.OuterRaw(99, []byte{0}, []byte{1})
	b.Outer(consts.JupiterV6Program, []byte{1}, user)

	tx, err := AdaptGrpcTx(txCtx, b.Build(0))
	require.NoError(t, err)
	require.Len(t, tx.Instructions, 3)

	assert.True(t, tx.Instructions[0].Malformed)
	assert.Equal(t, consts.JupiterV6Program, tx.Instructions[0].ProgramID)
	assert.Nil(t, tx.Instructions[0].Accounts)

	assert.True(t, tx.Instructions[1].Malformed)
	assert.True(t, tx.Instructions[1].ProgramID.IsZero())

	assert.False(t, tx.Instructions[2].Malformed)
	assert.Equal(t, user, tx.Instructions[2].Accounts[0])
}

func TestAdaptGrpcTx_SkipReasons(t *testing.T) {
	user := testutil.Key(1)

	_, err := AdaptGrpcTx(txCtx, testutil.NewTx(1, user).Vote().Build(0))
	assert.True(t, errors.Is(err, core.ErrVoteTx))

	_, err = AdaptGrpcTx(txCtx, testutil.NewTx(1, user).Failed().Build(0))
	assert.True(t, errors.Is(err, core.ErrFailedTx))

	_, err = AdaptGrpcTx(txCtx, testutil.NewTx(1, user).Versioned().Build(0))
	assert.True(t, errors.Is(err, core.ErrVersionedTx))

	_, err = AdaptGrpcTx(txCtx, nil)
	assert.True(t, errors.Is(err, core.ErrMalformedTx))

	broken := testutil.NewTx(1, user).Build(0)
	broken.Transaction.Message.AccountKeys[0] = []byte{1, 2, 3}
	_, err = AdaptGrpcTx(txCtx, broken)
	assert.True(t, errors.Is(err, core.ErrMalformedTx))

	noSigner := testutil.NewTx(1, user).Build(0)
	noSigner.Transaction.Message.Header.NumRequiredSignatures = 0
	_, err = AdaptGrpcTx(txCtx, noSigner)
	assert.True(t, errors.Is(err, core.ErrMalformedTx))
}

func TestAdaptGrpcTx_IgnoresBadBalances(t *testing.T) {
	user := testutil.Key(1)
	b := testutil.NewTx(1, user)
	b.TokenAccount(testutil.Key(2), testutil.Key(4), user, 6, 1, 2)
	raw := b.Build(0)
	raw.Meta.PostTokenBalances[0].Owner = "not-base58-0OIl"
	raw.Meta.PreTokenBalances[0].AccountIndex = 77

	tx, err := AdaptGrpcTx(txCtx, raw)
	require.NoError(t, err)
	assert.Empty(t, tx.Balances)
}
