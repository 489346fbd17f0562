package grpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/dispatcher"
	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/internal/logic/progress"
	"jup-indexer-sol/internal/testutil"
)

type fakeProducer struct {
	mu   sync.Mutex
	fail bool
	msgs []*kafka.Message
}

func (f *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delivered := *msg
	if f.fail {
		delivered.TopicPartition.Error = errors.New("broker down")
	} else {
		f.msgs = append(f.msgs, msg)
	}
	deliveryChan <- &delivered
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeTracker struct {
	mu     sync.Mutex
	skip   bool
	err    error
	marked []*progress.SlotRecord
}

func (f *fakeTracker) ShouldProcessSlot(context.Context, uint64, int64) (bool, error) {
	return !f.skip, f.err
}

func (f *fakeTracker) MarkSlotStatus(_ context.Context, r *progress.SlotRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, r)
	return nil
}

type fakeGaps struct{ ranges [][2]uint64 }

func (f *fakeGaps) Submit(from, to uint64) { f.ranges = append(f.ranges, [2]uint64{from, to}) }

var (
	user   = testutil.Key(1)
	mintX  = testutil.Key(2)
	mintY  = testutil.Key(3)
	userX  = testutil.Key(5)
	userY  = testutil.Key(6)
	pool   = testutil.Key(8)
	vaultX = testutil.Key(9)
	vaultY = testutil.Key(10)
	amm    = testutil.Key(40)
)

func swapBlock(slot uint64) *pb.SubscribeUpdateBlock {
	b := testutil.NewTx(1, user)
	b.TokenAccount(userX, mintX, user, 6, 5000, 4000)
	b.TokenAccount(userY, mintY, user, 6, 0, 950)
	b.TokenAccount(vaultX, mintX, pool, 6, 10_000, 11_000)
	b.TokenAccount(vaultY, mintY, pool, 6, 20_000, 19_050)
	outer := b.Outer(consts.JupiterV6Program, testutil.V6RouteData(1000, 940), testutil.V6RouteAccounts(user, userX, userY, mintY)...)
	b.Inner(outer, 2, amm, []byte{1})
	b.Transfer(outer, 3, userX, vaultX, user, 1000)
	b.Transfer(outer, 3, vaultY, userY, pool, 950)
	return testutil.Block(slot, time.Now().Unix(), b.Build(0))
}

func newTestProcessor(producer *fakeProducer, tracker *fakeTracker, gaps *fakeGaps) *BlockProcessor {
	p := newBlockProcessor(make(chan *pb.SubscribeUpdateBlock, 4), producer)
	p.topic = "jupiter-entities"
	p.partitions = 4
	p.sendAttempts = 2
	if tracker != nil {
		p.progress = tracker
	}
	if gaps != nil {
		p.gaps = gaps
	}
	return p
}

func TestProcBlock_SendsAndMarks(t *testing.T) {
	producer, tracker, gaps := &fakeProducer{}, &fakeTracker{}, &fakeGaps{}
	p := newTestProcessor(producer, tracker, gaps)

	block := swapBlock(300)
	block.ParentSlot = 296
	assert.Equal(t, outcomeOK, p.procBlock(block))

	require.NotZero(t, producer.count())
	var swaps int
	for _, msg := range producer.msgs {
		assert.Equal(t, "jupiter-entities", *msg.TopicPartition.Topic)
		assert.Equal(t, []byte("300"), msg.Key)
		slot, rows, err := dispatcher.DecodeEntityBatch(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), slot)
		for _, r := range rows {
			if r.Entity == entity.TypeSwap {
				swaps++
			}
		}
	}
	assert.Equal(t, 1, swaps)

	require.Len(t, tracker.marked, 1)
	assert.Equal(t, progress.SlotProcessed, tracker.marked[0].Status)
	assert.Equal(t, 1, tracker.marked[0].Swaps)
	assert.Equal(t, progress.SourceGrpc, tracker.marked[0].Source)

	assert.Equal(t, [][2]uint64{{297, 299}}, gaps.ranges)
}

func TestProcBlock_SkipsProcessedSlot(t *testing.T) {
	producer, tracker := &fakeProducer{}, &fakeTracker{skip: true}
	p := newTestProcessor(producer, tracker, nil)

	assert.Equal(t, outcomeSkipped, p.procBlock(swapBlock(301)))
	assert.Zero(t, producer.count())
	assert.Empty(t, tracker.marked)
}

func TestProcBlock_TrackerErrorStillProcesses(t *testing.T) {
	producer, tracker := &fakeProducer{}, &fakeTracker{err: errors.New("redis down")}
	p := newTestProcessor(producer, tracker, nil)

	assert.Equal(t, outcomeOK, p.procBlock(swapBlock(302)))
	assert.NotZero(t, producer.count())
}

func TestProcBlock_CorruptBlock(t *testing.T) {
	producer, tracker := &fakeProducer{}, &fakeTracker{}
	p := newTestProcessor(producer, tracker, nil)

	block := swapBlock(303)
	block.BlockTime = nil
	assert.Equal(t, outcomeInvalid, p.procBlock(block))
	assert.Zero(t, producer.count())
	require.Len(t, tracker.marked, 1)
	assert.Equal(t, progress.SlotInvalid, tracker.marked[0].Status)
}

func TestProcBlock_KafkaFailureNotMarked(t *testing.T) {
	producer, tracker := &fakeProducer{fail: true}, &fakeTracker{}
	p := newTestProcessor(producer, tracker, nil)

	assert.Equal(t, outcomeFailed, p.procBlock(swapBlock(304)))
	assert.Empty(t, tracker.marked)
}

func TestProcBlock_WithoutProgress(t *testing.T) {
	producer := &fakeProducer{}
	p := newTestProcessor(producer, nil, nil)

	block := swapBlock(305)
	block.ParentSlot = 100
	assert.Equal(t, outcomeOK, p.procBlock(block))
}

func TestBlockProcessor_StartStop(t *testing.T) {
	producer := &fakeProducer{}
	ch := make(chan *pb.SubscribeUpdateBlock, 4)
	p := newBlockProcessor(ch, producer)
	p.workers = 2

	done := make(chan struct{})
	go func() {
		p.Start()
		close(done)
	}()

	ch <- swapBlock(400)
	ch <- swapBlock(401)
	assert.Eventually(t, func() bool { return producer.count() >= 2 }, 5*time.Second, 10*time.Millisecond)

	p.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestProcBlock_StoppedBeforeSendNotMarked(t *testing.T) {
	producer, tracker := &fakeProducer{}, &fakeTracker{}
	p := newTestProcessor(producer, tracker, nil)
	p.cancel(errors.New("service stop"))

	assert.Equal(t, outcomeFailed, p.procBlock(swapBlock(302)))
	assert.Zero(t, producer.count())
	assert.Empty(t, tracker.marked)
}
