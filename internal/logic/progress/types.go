package progress

// SlotStatus 表示 slot 的处理状态（统一 Redis 与 DB 编码）
type SlotStatus int

const (
	SlotUnknown   SlotStatus = 0 // Redis 不存在
	SlotProcessed SlotStatus = 1 // 已处理成功
	SlotInvalid   SlotStatus = 2 // 区块结构错误、跳过
	SlotPending   SlotStatus = 3 // 处理中，仅 Redis 使用
	SlotSkipped   SlotStatus = 4 // leader 未出块，RPC 核实为空
)

func (s SlotStatus) String() string {
	switch s {
	case SlotProcessed:
		return "processed"
	case SlotInvalid:
		return "invalid"
	case SlotPending:
		return "pending"
	case SlotSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Final 终态才写入 DB
func (s SlotStatus) Final() bool {
	return s == SlotProcessed || s == SlotInvalid || s == SlotSkipped
}

// Source 表示区块来源（grpc 实时流、rpc 补扫、本地回放）
const (
	SourceUnknown int16 = 0
	SourceGrpc    int16 = 1
	SourceRpc     int16 = 2
	SourceReplay  int16 = 3
)

func SourceName(src int16) string {
	switch src {
	case SourceGrpc:
		return "grpc"
	case SourceRpc:
		return "rpc"
	case SourceReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// SlotRecord 表示一条待写入 DB 的 slot 记录
type SlotRecord struct {
	Slot      uint64     // Solana slot
	Source    int16      // 来源
	BlockTime int64      // Unix timestamp（秒）
	Status    SlotStatus // 1=已处理，2=无效，4=空 slot
	Swaps     int        // 该 slot 产出的 swap 数
}
