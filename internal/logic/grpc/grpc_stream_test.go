package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/logx"
	"jup-indexer-sol/internal/consts"
)

func TestBuildSubscribeRequest(t *testing.T) {
	req := buildSubscribeRequest()
	require.Len(t, req.Blocks, 1)

	filter := req.Blocks["jupiter"]
	require.NotNil(t, filter)
	assert.ElementsMatch(t, []string{consts.JupiterV3ProgramStr, consts.JupiterV4ProgramStr, consts.JupiterV6ProgramStr}, filter.AccountInclude)
	assert.True(t, filter.GetIncludeTransactions())
	assert.False(t, filter.GetIncludeAccounts())
	assert.False(t, filter.GetIncludeEntries())
	assert.Equal(t, pb.CommitmentLevel_CONFIRMED, req.GetCommitment())
}

func TestForwardBlock(t *testing.T) {
	ch := make(chan *pb.SubscribeUpdateBlock, 1)
	m := &GrpcStreamManager{blockChan: ch, latencyWarn: time.Millisecond, Logger: logx.WithContext(context.Background())}

	block := &pb.SubscribeUpdateBlock{Slot: 7, BlockTime: &pb.UnixTimestamp{Timestamp: time.Now().Unix() - 2}}
	assert.True(t, m.forwardBlock(context.Background(), block, time.Now()))
	assert.Same(t, block, <-ch)

	assert.True(t, m.forwardBlock(context.Background(), nil, time.Now()))
	assert.Empty(t, ch)

	// channel 满且连接已关闭
	ch <- block
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, m.forwardBlock(ctx, block, time.Now()))
}

func TestSendWithTimeout(t *testing.T) {
	err := sendWithTimeout(context.Background(), func(int) error { return nil }, 1, time.Second)
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = sendWithTimeout(context.Background(), func(int) error { return boom }, 1, time.Second)
	assert.ErrorIs(t, err, boom)

	block := make(chan struct{})
	defer close(block)
	err = sendWithTimeout(context.Background(), func(int) error { <-block; return nil }, 1, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
