package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/utils"
)

const (
	defaultBatchSize       = 32 * 1024
	defaultLingerMs        = 5
	defaultMaxMessageBytes = 2 * 1024 * 1024
	defaultClientIDPrefix  = "jup-indexer-sol"
)

type KafkaProducerOption struct {
	Brokers         string // Kafka broker 地址，多个用英文逗号分隔（如 "localhost:9092,localhost:9093"）
	BatchSize       int    // 批处理大小（单位字节），如 32768 = 32KB
	LingerMs        int    // 批处理最大延迟（毫秒），建议 5~20ms 之间
	MaxMessageBytes int    // 单条消息上限，区块实体批量较大时需要调高
	ClientIDPrefix  string

	Topics []TopicOption
}

type TopicOption struct {
	Topic      string // topic 名称
	Partitions int    // 分区数
}

// NewKafkaProducer 创建 Kafka 生产者，缺失的 topic 会先行创建
func NewKafkaProducer(cfg KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(cfg); err != nil {
		return nil, err
	}

	localIP, _ := utils.GetLocalIP()
	if localIP == "" {
		localIP = "unknown"
	}

	producer, err := kafka.NewProducer(buildProducerConfig(cfg, localIP))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// ensureTopics 通过 AdminClient 检查并创建 topic，副本数按 broker 数量决定
func ensureTopics(cfg KafkaProducerOption) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// replicationFactor 是 Kafka 主题中每个分区副本的数量
	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	existing := make(map[string]bool, len(meta.Topics))
	for _, topic := range meta.Topics {
		existing[topic.Topic] = true
	}

	var toCreate []kafka.TopicSpecification
	for _, topic := range cfg.Topics {
		if !existing[topic.Topic] {
			toCreate = append(toCreate, kafka.TopicSpecification{
				Topic:             topic.Topic,
				NumPartitions:     topic.Partitions,
				ReplicationFactor: replicationFactor,
			})
		}
	}
	if len(toCreate) == 0 {
		return nil
	}

	results, err := adminClient.CreateTopics(ctx, toCreate)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return nil
}

func buildProducerConfig(cfg KafkaProducerOption, localIP string) *kafka.ConfigMap {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}
	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxMessageBytes
	}
	prefix := cfg.ClientIDPrefix
	if prefix == "" {
		prefix = defaultClientIDPrefix
	}

	return &kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("%s-%s", prefix, localIP),

		// 可靠性保障：同一区块的实体批次不允许重复或乱序
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		// 性能
		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",

		"message.max.bytes": maxBytes,
	}
}
