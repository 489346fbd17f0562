package grpc

import (
	"context"
	"errors"
	"sync"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/dispatcher"
	"jup-indexer-sol/internal/logic/engine"
	"jup-indexer-sol/internal/logic/progress"
	"jup-indexer-sol/internal/metrics"
	"jup-indexer-sol/internal/svc"
	"jup-indexer-sol/pkg/mq"
)

// 区块处理结果，同时作为 metrics 的 result 标签
const (
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
)

type slotTracker interface {
	ShouldProcessSlot(ctx context.Context, slot uint64, blockTime int64) (bool, error)
	MarkSlotStatus(ctx context.Context, record *progress.SlotRecord) error
}

type gapReporter interface {
	Submit(from, to uint64)
}

// BlockProcessor 从 blockChan 取区块，多个 worker 并发处理不同区块；
// 单个区块内的解析由 engine 串行完成。
type BlockProcessor struct {
	blockChan <-chan *pb.SubscribeUpdateBlock
	producer  mq.KafkaProducer
	progress  slotTracker // 为空时不做判重与标记
	gaps      gapReporter // 为空时不做空块检测

	topic           string
	partitions      int
	workers         int
	sendAttempts    int
	sendTimeout     time.Duration
	dispatchTimeout time.Duration
	source          int16

	ctx    context.Context
	cancel func(err error)
	wg     sync.WaitGroup
	logx.Logger
}

func NewBlockProcessor(sc *svc.GrpcServiceContext, blockChan <-chan *pb.SubscribeUpdateBlock, auditor *GapAuditor) *BlockProcessor {
	c := sc.Config
	p := newBlockProcessor(blockChan, sc.Producer)
	p.topic = c.KafkaProducerConf.Topics.Entity
	p.partitions = c.KafkaProducerConf.Partitions.Entity
	p.workers = c.BlockWorkers
	p.sendAttempts = c.KafkaProducerConf.SendAttempts
	p.sendTimeout = c.TimeConf.EventSendTimeout()
	p.dispatchTimeout = c.TimeConf.SlotDispatchTimeout()
	if sc.ProgressManager != nil {
		p.progress = sc.ProgressManager
	}
	if auditor != nil {
		p.gaps = auditor
	}
	return p
}

func newBlockProcessor(blockChan <-chan *pb.SubscribeUpdateBlock, producer mq.KafkaProducer) *BlockProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &BlockProcessor{
		blockChan:       blockChan,
		producer:        producer,
		partitions:      1,
		workers:         1,
		sendAttempts:    1,
		sendTimeout:     time.Second,
		dispatchTimeout: 3 * time.Second,
		source:          progress.SourceGrpc,
		ctx:             ctx,
		cancel:          cancel,
		Logger:          logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
	}
}

func (p *BlockProcessor) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.loop()
		}()
	}
	p.wg.Wait()
}

func (p *BlockProcessor) Stop() {
	p.cancel(errors.New("service stop"))
	p.wg.Wait()
}

func (p *BlockProcessor) loop() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case block, ok := <-p.blockChan:
			if !ok {
				return
			}
			result := p.procBlock(block)
			metrics.BlocksTotal.WithLabelValues(result).Inc()
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) procBlock(block *pb.SubscribeUpdateBlock) string {
	startTime := time.Now()
	slot := block.GetSlot()
	blockTime := block.GetBlockTime().GetTimestamp()

	// 1. 判重：旧区块已处理过则跳过；存储故障时宁可重复处理
	if p.progress != nil {
		should, err := p.progress.ShouldProcessSlot(p.ctx, slot, blockTime)
		if err != nil {
			p.Errorf("slot=%d 进度查询失败，继续处理: %v", slot, err)
		} else if !should {
			p.Infof("slot=%d 已处理，跳过", slot)
			return outcomeSkipped
		}
	}
	p.reportGap(block)

	// 2. 解析
	res, err := engine.ProcessBlock(block)
	metrics.ObservePhase("engine", startTime)
	if err != nil {
		p.Errorf("[严重] slot=%d 区块结构异常: %v", slot, err)
		p.markSlot(slot, blockTime, progress.SlotInvalid, 0)
		return outcomeInvalid
	}
	recordStats(res)

	// 3. 分区编码
	jobs, err := dispatcher.BuildEntityKafkaJobs(res.Changes, int32(p.source), p.topic, p.partitions)
	if err != nil {
		p.Errorf("[严重] slot=%d 实体编码失败: %v", slot, err)
		p.markSlot(slot, blockTime, progress.SlotInvalid, 0)
		return outcomeInvalid
	}

	// 4. 发送，全部成功才标记已处理
	sendStart := time.Now()
	ctx, cancel := context.WithTimeout(p.ctx, p.dispatchTimeout)
	failed := mq.SendKafkaJobsWithRetry(ctx, p.producer, jobs, p.sendTimeout, p.sendAttempts)
	cancel()
	metrics.ObservePhase("kafka", sendStart)
	if len(failed) > 0 {
		metrics.KafkaFailures.Add(float64(len(failed)))
		p.Errorf("slot=%d Kafka 发送失败 %d/%d, err=%v", slot, len(failed), len(jobs), failed[0].Err)
		return outcomeFailed
	}

	p.markSlot(slot, blockTime, progress.SlotProcessed, res.Stats.Swaps)
	p.Infof("slot=%d 处理完成, tx=%d, jupiter tx=%d, swaps=%d, rows=%d, msgs=%d, 耗时=%v",
		slot, res.Stats.Txs, res.Stats.JupiterTxs, res.Stats.Swaps, len(res.Changes.Rows), len(jobs), time.Since(startTime))
	return outcomeOK
}

func (p *BlockProcessor) markSlot(slot uint64, blockTime int64, status progress.SlotStatus, swaps int) {
	if p.progress == nil {
		return
	}
	err := p.progress.MarkSlotStatus(p.ctx, &progress.SlotRecord{
		Slot:      slot,
		Source:    p.source,
		BlockTime: blockTime,
		Status:    status,
		Swaps:     swaps,
	})
	if err != nil {
		p.Errorf("slot=%d 标记 %s 失败: %v", slot, status, err)
	}
}

// reportGap parent slot 与当前 slot 不连续时，中间的 slot 交给 GapAuditor 核实
func (p *BlockProcessor) reportGap(block *pb.SubscribeUpdateBlock) {
	if p.gaps == nil || block == nil {
		return
	}
	if block.ParentSlot+1 < block.Slot {
		p.gaps.Submit(block.ParentSlot+1, block.Slot-1)
	}
}

func recordStats(res *engine.Result) {
	s := res.Stats
	metrics.TxsTotal.WithLabelValues("jupiter").Add(float64(s.JupiterTxs))
	metrics.TxsTotal.WithLabelValues("vote").Add(float64(s.VoteTxs))
	metrics.TxsTotal.WithLabelValues("failed").Add(float64(s.FailedTxs))
	metrics.TxsTotal.WithLabelValues("versioned").Add(float64(s.VersionedTxs))
	metrics.TxsTotal.WithLabelValues("malformed").Add(float64(s.MalformedTxs))
	metrics.TxsTotal.WithLabelValues("panicked").Add(float64(s.PanickedTxs))
	metrics.InstructionsSkipped.WithLabelValues("malformed").Add(float64(s.MalformedIxs))
	metrics.InstructionsSkipped.WithLabelValues("unrecognized").Add(float64(s.UnrecognizedIxs))
	for _, swap := range res.Swaps {
		metrics.SwapsTotal.WithLabelValues(swap.Protocol).Inc()
		for _, hop := range swap.Hops {
			metrics.HopsTotal.WithLabelValues(consts.AmmName(hop.Program.String())).Inc()
		}
	}
	for _, row := range res.Changes.Rows {
		metrics.RowsTotal.WithLabelValues(string(row.Entity)).Inc()
	}
}
