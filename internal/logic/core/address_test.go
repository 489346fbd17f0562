package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"jup-indexer-sol/pkg/types"
)

func TestResolveAccount(t *testing.T) {
	keys := []types.Pubkey{{1}, {2}, {3}}

	pk, ok := ResolveAccount(keys, 2)
	assert.True(t, ok)
	assert.Equal(t, types.Pubkey{3}, pk)

	_, ok = ResolveAccount(keys, 3)
	assert.False(t, ok)
	_, ok = ResolveAccount(nil, 0)
	assert.False(t, ok)
	_, ok = ResolveAccount(keys, ^uint32(0))
	assert.False(t, ok)
}

func TestResolveAccounts(t *testing.T) {
	keys := []types.Pubkey{{1}, {2}}

	accounts, ok := ResolveAccounts(keys, []byte{1, 0, 1})
	assert.True(t, ok)
	assert.Equal(t, []types.Pubkey{{2}, {1}, {2}}, accounts)

	_, ok = ResolveAccounts(keys, []byte{0, 9})
	assert.False(t, ok)

	accounts, ok = ResolveAccounts(keys, nil)
	assert.True(t, ok)
	assert.Empty(t, accounts)
}

func TestTokenBalanceOwnedBy(t *testing.T) {
	user := types.Pubkey{7}
	b := &TokenBalance{PostOwner: types.Pubkey{1}, PreOwner: user}
	assert.False(t, b.OwnedBy(user))
	b.HasPreOwner = true
	assert.True(t, b.OwnedBy(user))
}
