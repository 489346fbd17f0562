package jupiter

import (
	"encoding/binary"
	"testing"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/internal/logic/eventparser/common"
	"jup-indexer-sol/internal/logic/txadapter"
	"jup-indexer-sol/internal/testutil"
	"jup-indexer-sol/pkg/types"
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
	poolX     = testutil.Key(9)
	poolY     = testutil.Key(10)
	poolZ     = testutil.Key(11)
	eventAuth = testutil.Key(12)
	ammA      = testutil.Key(40)
	ammB      = testutil.Key(41)
)

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func u16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func anchorData(disc uint64, parts ...[]byte) []byte {
	data := binary.BigEndian.AppendUint64(nil, disc)
	for _, p := range parts {
		data = append(data, p...)
	}
	return data
}

// routePlan 单步 route_plan：len=1，step = [swap tag, percent, input_index, output_index]
func routePlan() []byte {
	return []byte{1, 0, 0, 0, 7, 100, 0, 1}
}

func v6RouteData(in, quotedOut uint64, feeBps uint8) []byte {
	return anchorData(discRoute, routePlan(), u64(in), u64(quotedOut), u16(50), []byte{feeBps})
}

func v6ExactOutData(out, quotedIn uint64) []byte {
	return anchorData(discExactOutRoute, routePlan(), u64(out), u64(quotedIn), u16(50), []byte{0})
}

func v6SharedRouteData(in, quotedOut uint64) []byte {
	return anchorData(discSharedAccountsRoute, []byte{3}, routePlan(), u64(in), u64(quotedOut), u16(50), []byte{0})
}

// v6RouteAccounts route 指令账户，dest / fee 传零值表示缺省（以程序地址占位）
func v6RouteAccounts(src, dst, dest, destMint, fee types.Pubkey) []types.Pubkey {
	opt := func(pk types.Pubkey) types.Pubkey {
		if pk.IsZero() {
			return consts.JupiterV6Program
		}
		return pk
	}
	return []types.Pubkey{
		consts.TokenProgram, user, src, dst, opt(dest), destMint, opt(fee), eventAuth, consts.JupiterV6Program,
	}
}

func v4RouteData(in, quotedOut uint64) []byte {
	// swap_leg: Chain { swap_legs: [Swap{7}, Swap{7}] }
	return anchorData(discRoute, []byte{0, 2, 0, 0, 0, 2, 7, 2, 7}, u64(in), u64(quotedOut), u16(50), []byte{0})
}

func v3TokenSwapData(in *uint64, minOut uint64) []byte {
	opt := []byte{0}
	if in != nil {
		opt = append([]byte{1}, u64(*in)...)
	}
	return anchorData(discTokenSwap, opt, u64(minOut), []byte{0})
}

// adapt 将构造的 gRPC 交易转换为 AdaptedTx
func adapt(t *testing.T, tx *pb.SubscribeUpdateTransactionInfo) *core.AdaptedTx {
	t.Helper()
	adapted, err := txadapter.AdaptGrpcTx(&core.TxContext{Slot: 300, BlockTime: 1700000000}, tx)
	require.NoError(t, err)
	return adapted
}

// extract 模拟 eventparser 的主循环，只挂载 Jupiter handler
func extract(tx *core.AdaptedTx) *common.ParserContext {
	handlers := map[types.Pubkey]common.InstructionHandler{}
	RegisterHandlers(handlers)

	ctx := common.BuildParserContext(tx)
	common.PreScanInitAccountBalances(ctx, tx.Instructions)
	for i := 0; i < len(tx.Instructions); {
		if h, ok := handlers[tx.Instructions[i].ProgramID]; ok {
			if next := h(ctx, tx.Instructions, i); next > i {
				i = next
				continue
			}
		}
		i++
	}
	return ctx
}

// baseTx 用户持有 X / Y / Z，池子持有三种 mint 的 vault
func baseTx(sigSeed byte) *testutil.TxBuilder {
	b := testutil.NewTx(sigSeed, user)
	b.TokenAccount(userX, mintX, user, 6, 10_000, 9_000)
	b.TokenAccount(userY, mintY, user, 9, 0, 950)
	b.TokenAccount(userZ, mintZ, user, 6, 0, 0)
	b.TokenAccount(poolX, mintX, poolOwner, 6, 50_000, 51_000)
	b.TokenAccount(poolY, mintY, poolOwner, 9, 80_000, 79_050)
	b.TokenAccount(poolZ, mintZ, poolOwner, 6, 70_000, 69_000)
	return b
}
