package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/mq"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录（可为相对路径或绝对路径）
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers         string `json:"brokers"`                    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize       int    `json:"batch_size,optional"`        // 批处理大小（单位字节）
	LingerMs        int    `json:"linger_ms,optional"`         // 批处理最大延迟（毫秒）
	MaxMessageBytes int    `json:"max_message_bytes,optional"` // 单条消息上限
	SendAttempts    int    `json:"send_attempts,default=3"`    // 单个区块发送失败的重试轮数

	Topics struct {
		Entity string `json:"entity"` // 实体变更批次的 topic
	} `json:"topics"`

	Partitions struct {
		Entity int `json:"entity,default=1"` // entity topic 的分区数
	} `json:"partitions"`
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:         c.Brokers,
		BatchSize:       c.BatchSize,
		LingerMs:        c.LingerMs,
		MaxMessageBytes: c.MaxMessageBytes,
		Topics: []mq.TopicOption{
			{Topic: c.Topics.Entity, Partitions: c.Partitions.Entity},
		},
	}
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	SlotDispatchTimeoutMs int `json:"slot_dispatch_timeout_ms,default=3000"` // 每个 slot 的发送总耗时上限（Kafka + Redis）
	EventSendTimeoutMs    int `json:"event_send_timeout_ms,default=1000"`    // 单条消息发送到 Kafka 并等待 ack 的超时时间
}

func (c TimeConfig) SlotDispatchTimeout() time.Duration {
	return time.Duration(c.SlotDispatchTimeoutMs) * time.Millisecond
}

func (c TimeConfig) EventSendTimeout() time.Duration {
	return time.Duration(c.EventSendTimeoutMs) * time.Millisecond
}

// ProgressConfig 进度管理配置
type ProgressConfig struct {
	RecentThresholdSec int `json:"recent_threshold_sec,default=60"` // 判定为“近期 block”的时间阈值（秒）
	FlushIntervalSec   int `json:"flush_interval_sec,default=5"`    // 缓冲区落库间隔
	GCIntervalMin      int `json:"gc_interval_min,default=60"`      // 历史记录清理间隔（分钟）
}

// GrpcClientConfig gRPC 客户端连接相关配置
type GrpcClientConfig struct {
	Endpoint string `json:"endpoint"`          // gRPC 服务端地址
	XToken   string `json:"x_token,optional"`  // x-token 认证
	Insecure bool   `json:"insecure,optional"` // 明文连接（本地测试节点）

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"` // 应用层 ping 心跳间隔（秒）

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,optional"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,optional"`  // 底层 keepalive 超时（秒）

	// gRPC 窗口大小调优（用于大数据流推送）
	InitialWindowSize     int `json:"initial_window_size,optional"`      // 单流窗口大小（字节）
	InitialConnWindowSize int `json:"initial_conn_window_size,optional"` // 整体连接窗口大小（字节）

	// 消息体大小限制
	MaxCallSendMsgSize int `json:"max_call_send_msg_size,optional"` // 单条消息最大发送字节数
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,optional"` // 单条消息最大接收字节数

	// 超时与重连策略
	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=2"`  // 重连最小间隔（秒）
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`    // 连接建立超时（秒）
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`        // 发送超时（秒）
	BlockRecvTimeoutSec  int `json:"block_recv_timeout_sec,default=30"` // 超过该时长未收到 block 触发重连（秒）
	MaxLatencyWarnMs     int `json:"max_latency_warn_ms,optional"`      // 延迟告警阈值（毫秒）
}

// GrpcConfig 是主配置结构体，用于驱动索引器服务
type GrpcConfig struct {
	LogConf           LogConfig           `json:"logger"`         // 日志配置
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer"` // Kafka 生产者配置
	TimeConf          TimeConfig          `json:"time_conf"`      // 时间相关配置
	ProgressConf      ProgressConfig      `json:"progress"`       // 进度管理配置
	Grpc              GrpcClientConfig    `json:"grpc"`

	RedisAddr    string `json:"redis_addr,optional"`      // Redis 地址
	PostgresDSN  string `json:"postgres_dsn,optional"`    // PostgreSQL 数据源
	RpcEndpoint  string `json:"rpc_endpoint,optional"`    // Solana RPC，空块检测使用
	MetricsAddr  string `json:"metrics_addr,optional"`    // Prometheus 监听地址，空则不启动
	BlockWorkers int    `json:"block_workers,default=4"`  // 并发处理区块的 worker 数
	BlockBuffer  int    `json:"block_buffer,default=200"` // 区块 channel 容量
}

// Load 读取 YAML 配置，${VAR} 按环境变量展开；默认值与必填项由 tag 声明
func Load(path string) (GrpcConfig, error) {
	var c GrpcConfig
	if err := conf.Load(path, &c, conf.UseEnv()); err != nil {
		return c, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Validate 检查环境变量展开后为空的必填项
func (c GrpcConfig) Validate() error {
	var missing []string
	if c.Grpc.Endpoint == "" {
		missing = append(missing, "grpc.endpoint")
	}
	if c.KafkaProducerConf.Brokers == "" {
		missing = append(missing, "kafka_producer.brokers")
	}
	if c.KafkaProducerConf.Topics.Entity == "" {
		missing = append(missing, "kafka_producer.topics.entity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("empty required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
