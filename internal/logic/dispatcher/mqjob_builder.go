package dispatcher

import (
	"fmt"

	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/pkg/mq"
	"jup-indexer-sol/pkg/utils"
)

// EventTypeEntityBatch Kafka 消息前 4 字节的类型标识
const EventTypeEntityBatch uint32 = 1

// BuildEntityKafkaJobs 将区块实体行按分区键分桶，每个非空分区封装为一条 KafkaJob。
// 分区内保持行的原有顺序；同一输入产出的字节完全一致。
func BuildEntityKafkaJobs(
	changes *entity.Changes,
	source int32,
	topic string,
	partitions int,
) ([]*mq.KafkaJob, error) {
	if partitions <= 0 {
		partitions = 1
	}
	if changes == nil || len(changes.Rows) == 0 {
		return nil, nil
	}

	buckets := make([][]*entity.Row, partitions)
	capacity := utils.CalcCapPerPartition(len(changes.Rows), partitions, 10)
	for i := range buckets {
		buckets[i] = make([]*entity.Row, 0, capacity)
	}
	for _, row := range changes.Rows {
		pid := utils.PartitionHashBytes(row.Key, uint32(partitions))
		buckets[pid] = append(buckets[pid], row)
	}

	slotKey := []byte(utils.FormatUint64(changes.Slot))
	jobs := make([]*mq.KafkaJob, 0, len(buckets))
	for pid, rows := range buckets {
		if len(rows) == 0 {
			continue
		}
		value, err := utils.EncodeEvent(EventTypeEntityBatch, buildBatchProto(changes, rows, source))
		if err != nil {
			return nil, fmt.Errorf("slot %d partition %d: %w", changes.Slot, pid, err)
		}
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     topic,
			Partition: int32(pid),
			Key:       slotKey,
			Value:     value,
		})
	}
	return jobs, nil
}
