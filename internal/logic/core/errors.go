package core

import "errors"

var (
	// ErrCorruptBlock 区块结构损坏，整块放弃，不输出部分结果
	ErrCorruptBlock = errors.New("corrupt block")

	// 以下为单笔交易跳过原因，不影响区块内其它交易
	ErrVoteTx      = errors.New("vote transaction")
	ErrFailedTx    = errors.New("failed transaction")
	ErrVersionedTx = errors.New("versioned transaction not supported")
	ErrMalformedTx = errors.New("malformed transaction")
)
