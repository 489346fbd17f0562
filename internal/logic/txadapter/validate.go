package txadapter

import (
	"fmt"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"jup-indexer-sol/internal/logic/core"
)

// ValidateGrpcTx 检查交易结构是否可解析。返回的 error 均包装 core 中的跳过原因，
// 调用方据此区分正常过滤（vote / 失败）与数据异常。
func ValidateGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction info", core.ErrMalformedTx)
	}
	if tx.IsVote {
		return core.ErrVoteTx
	}
	if tx.Transaction == nil {
		return fmt.Errorf("%w: missing Transaction field", core.ErrMalformedTx)
	}
	if tx.Transaction.Message == nil {
		return fmt.Errorf("%w: missing Message field in transaction", core.ErrMalformedTx)
	}
	if tx.Transaction.Message.Versioned {
		return core.ErrVersionedTx
	}
	if len(tx.Transaction.Signatures) == 0 {
		return fmt.Errorf("%w: missing transaction signature", core.ErrMalformedTx)
	}
	if len(tx.Transaction.Signatures[0]) != 64 {
		return fmt.Errorf("%w: invalid transaction signature length: %d", core.ErrMalformedTx, len(tx.Transaction.Signatures[0]))
	}
	if tx.Meta == nil {
		return fmt.Errorf("%w: missing transaction meta data", core.ErrMalformedTx)
	}
	if tx.Meta.Err != nil {
		return core.ErrFailedTx
	}
	return nil
}
