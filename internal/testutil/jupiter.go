package testutil

import (
	"crypto/sha256"
	"encoding/binary"

	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/pkg/types"
)

// AnchorData discriminator = sha256("global:<name>")[:8]，后接参数字节
func AnchorData(name string, args ...[]byte) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	data := append([]byte(nil), sum[:8]...)
	for _, a := range args {
		data = append(data, a...)
	}
	return data
}

func U64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// V6RouteData route：单步 route_plan，slippage 50bps，无平台费
func V6RouteData(in, quotedOut uint64) []byte {
	plan := []byte{1, 0, 0, 0, 7, 100, 0, 1}
	return AnchorData("route", plan, U64(in), U64(quotedOut), []byte{50, 0}, []byte{0})
}

// V6RouteAccounts route 账户，destination / platform fee 缺省
func V6RouteAccounts(user, src, dst, destMint types.Pubkey) []types.Pubkey {
	return []types.Pubkey{
		consts.TokenProgram, user, src, dst, consts.JupiterV6Program, destMint,
		consts.JupiterV6Program, Key(0xEE), consts.JupiterV6Program,
	}
}

// V4RouteData V4 route，swap_leg 为两步 Chain
func V4RouteData(in, quotedOut uint64) []byte {
	leg := []byte{0, 2, 0, 0, 0, 2, 7, 2, 7}
	return AnchorData("route", leg, U64(in), U64(quotedOut), []byte{50, 0}, []byte{0})
}
