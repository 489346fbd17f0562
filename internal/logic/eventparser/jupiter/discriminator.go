package jupiter

// Anchor 指令 discriminator = sha256("global:<name>")[:8]，按大端读取为 uint64 比较。
// V4 与 V6 的 route 同名，discriminator 相同，只能依赖程序地址区分版本。

// V6: JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4
const (
	discRoute                              uint64 = 0xe517cb977ae3ad2a
	discRouteWithTokenLedger               uint64 = 0x96564774a75d0e68
	discExactOutRoute                      uint64 = 0xd033ef977b2bed5c
	discSharedAccountsRoute                uint64 = 0xc1209b3341d69c81
	discSharedAccountsRouteWithTokenLedger uint64 = 0xe6798f50779f6aaa
	discSharedAccountsExactOutRoute        uint64 = 0xb0d169a89a7d453e
	discSetTokenLedger                     uint64 = 0xe455b9704e4f4d02
	discClaim                              uint64 = 0x3ec6d6c1d59f6cd2
)

// V4: JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB
const (
	discRaydiumSwapExactOutput     uint64 = 0xf9c97e677f78b11d
	discRaydiumClmmSwapExactOutput uint64 = 0x25b259925bf1ec61
	discWhirlpoolSwapExactOutput   uint64 = 0x273a2680643ebff9
)

// V3: JUP3c2Uh3WA4Ng34tw6kPd2G4C5BB21Xo36Je1s32Ph
const (
	discTokenSwap         uint64 = 0xbbc076d43e6d1cd5
	discStepTokenSwap     uint64 = 0x376411f3f2b52ba5
	discCropperTokenSwap  uint64 = 0xa7263b25843c5f44
	discCremaTokenSwap    uint64 = 0xeba0af7a3db102f7
	discLifinityTokenSwap uint64 = 0x0031f60124990b5d
	discRaydiumSwap       uint64 = 0xb1ad2af0b8047c51
	discSaberSwap         uint64 = 0x403e62e2344a25b2
	discMercurialExchange uint64 = 0x1ff83ce2d7a837c7
	discSerumSwap         uint64 = 0x58b746f9d67652d2
	discAldrinSwap        uint64 = 0xfbe877a6e1b9a9a1
	discWhirlpoolSwap     uint64 = 0x7be5b83f0c005c91
)
