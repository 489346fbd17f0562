package jupiter

import (
	"encoding/binary"
	"fmt"

	"github.com/near/borsh-go"
	"jup-indexer-sol/internal/logic/core"
	"jup-indexer-sol/pkg/types"
)

// Kind 已识别的 Jupiter 指令
type Kind uint8

const (
	KindUnknown Kind = iota

	// V6 / V4
	KindRoute
	KindRouteWithTokenLedger
	KindExactOutRoute
	KindSharedAccountsRoute
	KindSharedAccountsRouteWithTokenLedger
	KindSharedAccountsExactOutRoute

	// V4 exact output
	KindRaydiumSwapExactOutput
	KindRaydiumClmmSwapExactOutput
	KindWhirlpoolSwapExactOutput

	// V3 per-AMM
	KindTokenSwap
	KindStepTokenSwap
	KindCropperTokenSwap
	KindCremaTokenSwap
	KindLifinityTokenSwap
	KindRaydiumSwap
	KindSaberSwap
	KindMercurialExchange
	KindSerumSwap
	KindAldrinSwap
	KindWhirlpoolSwap
)

var kindNames = [...]string{
	KindUnknown:                            "unknown",
	KindRoute:                              "route",
	KindRouteWithTokenLedger:               "route_with_token_ledger",
	KindExactOutRoute:                      "exact_out_route",
	KindSharedAccountsRoute:                "shared_accounts_route",
	KindSharedAccountsRouteWithTokenLedger: "shared_accounts_route_with_token_ledger",
	KindSharedAccountsExactOutRoute:        "shared_accounts_exact_out_route",
	KindRaydiumSwapExactOutput:             "raydium_swap_exact_output",
	KindRaydiumClmmSwapExactOutput:         "raydium_clmm_swap_exact_output",
	KindWhirlpoolSwapExactOutput:           "whirlpool_swap_exact_output",
	KindTokenSwap:                          "token_swap",
	KindStepTokenSwap:                      "step_token_swap",
	KindCropperTokenSwap:                   "cropper_token_swap",
	KindCremaTokenSwap:                     "crema_token_swap",
	KindLifinityTokenSwap:                  "lifinity_token_swap",
	KindRaydiumSwap:                        "raydium_swap",
	KindSaberSwap:                          "saber_swap",
	KindMercurialExchange:                  "mercurial_exchange",
	KindSerumSwap:                          "serum_swap",
	KindAldrinSwap:                         "aldrin_swap",
	KindWhirlpoolSwap:                      "whirlpool_swap",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Status 解码结果
type Status uint8

const (
	StatusOK           Status = iota
	StatusUnrecognized        // 未知 discriminator 或已知的非 swap 指令
	StatusMalformed           // 账户索引越界、数据长度不足或参数无法解析
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnrecognized:
		return "unrecognized"
	}
	return "malformed"
}

// AccountRoles 指令中与转账匹配相关的账户，缺省为零值
type AccountRoles struct {
	UserAuthority      types.Pubkey // 用户转账授权者（通常即签名钱包）
	UserSource         types.Pubkey // 用户输入 token account
	UserDestination    types.Pubkey // 用户输出 token account
	ProgramSource      types.Pubkey // shared accounts 模式下程序托管的输入账户
	ProgramDestination types.Pubkey // shared accounts 模式下程序托管的输出账户
	Destination        types.Pubkey // 最终接收输出的 token account，可能不属于签名者
	SourceMint         types.Pubkey
	DestinationMint    types.Pubkey
	PlatformFee        types.Pubkey // 平台手续费账户
}

// Decoded 解码后的 Jupiter 指令。金额为指令参数中的请求值，不代表实际成交量。
type Decoded struct {
	Version  Version
	Kind     Kind
	ExactOut bool

	// exact-in：InAmount 为输入量，OutAmount 为最小/报价输出量
	// exact-out：OutAmount 为目标输出量，InAmount 为报价输入量
	InAmount  uint64
	OutAmount uint64

	// QuotedAmount 报价的对手方数量：exact-in 为报价输出，exact-out 为报价输入，无报价为 0
	QuotedAmount uint64

	SlippageBps    uint16
	PlatformFeeBps uint8
	RouteSteps     int
	Roles          AccountRoles
}

// accountLayout 各角色在指令账户列表中的位置，-1 表示无此角色
type accountLayout struct {
	minAccounts        int
	userAuthority      int
	userSource         int
	userDestination    int
	programSource      int
	programDestination int
	destination        int
	sourceMint         int
	destinationMint    int
	platformFee        int
}

func emptyLayout(minAccounts int) accountLayout {
	return accountLayout{
		minAccounts:        minAccounts,
		userAuthority:      -1,
		userSource:         -1,
		userDestination:    -1,
		programSource:      -1,
		programDestination: -1,
		destination:        -1,
		sourceMint:         -1,
		destinationMint:    -1,
		platformFee:        -1,
	}
}

// resolveRoles 按布局取角色账户。optional 账户在 Anchor 中以程序自身地址占位，视为缺省。
func resolveRoles(layout accountLayout, accounts []types.Pubkey, placeholder types.Pubkey) (AccountRoles, bool) {
	if len(accounts) < layout.minAccounts {
		return AccountRoles{}, false
	}
	at := func(i int) types.Pubkey {
		if i < 0 || i >= len(accounts) || accounts[i] == placeholder {
			return types.Pubkey{}
		}
		return accounts[i]
	}
	return AccountRoles{
		UserAuthority:      at(layout.userAuthority),
		UserSource:         at(layout.userSource),
		UserDestination:    at(layout.userDestination),
		ProgramSource:      at(layout.programSource),
		ProgramDestination: at(layout.programDestination),
		Destination:        at(layout.destination),
		SourceMint:         at(layout.sourceMint),
		DestinationMint:    at(layout.destinationMint),
		PlatformFee:        at(layout.platformFee),
	}, true
}

// Decode 按版本分派解码。ix 已由 txadapter 完成账户索引越界检查。
// 未知 discriminator 返回 StatusUnrecognized，不视为错误。
func Decode(version Version, ix *core.AdaptedInstruction) (*Decoded, Status) {
	if ix == nil || ix.Malformed {
		return nil, StatusMalformed
	}
	if len(ix.Data) < 8 {
		return nil, StatusMalformed
	}
	disc := binary.BigEndian.Uint64(ix.Data[:8])

	switch version {
	case V3:
		return decodeV3(disc, ix)
	case V4:
		return decodeV4(disc, ix)
	case V6:
		return decodeV6(disc, ix)
	}
	return nil, StatusUnrecognized
}

// decodeBorsh 反序列化参数，borsh 在异常输入下可能 panic，此处统一转为 error
func decodeBorsh(v interface{}, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("borsh panic: %v", r)
		}
	}()
	return borsh.Deserialize(v, data)
}

// decodeTail 解析固定长度的尾部参数。route_plan / swap_leg 为变长枚举，
// 无需展开，只要求其长度前缀之后仍有足够字节容纳尾部参数。
func decodeTail(v interface{}, data []byte, planOffset, tailSize int) (steps int, ok bool) {
	if planOffset+4+tailSize > len(data) {
		return 0, false
	}
	n := binary.LittleEndian.Uint32(data[planOffset : planOffset+4])
	// 每个 RoutePlanStep 至少 4 字节（swap 枚举 tag + percent + input_index + output_index）
	if uint64(planOffset)+4+uint64(n)*4+uint64(tailSize) > uint64(len(data)) {
		return 0, false
	}
	if err := decodeBorsh(v, data[len(data)-tailSize:]); err != nil {
		return 0, false
	}
	return int(n), true
}
