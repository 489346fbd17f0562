package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"jup-indexer-sol/internal/config"
	"jup-indexer-sol/internal/logic/progress"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/mq"
)

// GrpcServiceContext 包含GRPC服务资源
type GrpcServiceContext struct {
	Config          config.GrpcConfig
	Producer        *kafka.Producer
	Redis           *redis.Client
	Postgres        *pgxpool.Pool
	ProgressManager *progress.ProgressManager // Redis 或 Postgres 未配置时为 nil，不做判重
}

// NewGrpcServiceContext 创建一个新的 GRPC 服务上下文
func NewGrpcServiceContext(c config.GrpcConfig) (*GrpcServiceContext, error) {
	ctx := &GrpcServiceContext{Config: c}

	// 1. 初始化 Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}
	ctx.Producer = producer

	if c.RedisAddr == "" || c.PostgresDSN == "" {
		logger.Warnf("未配置 redis_addr / postgres_dsn，slot 进度判重关闭")
		logger.Infof("GRPC 服务上下文初始化完成")
		return ctx, nil
	}

	// 2. 初始化 Redis 客户端（slot 状态缓存）
	ctx.Redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctx.Redis.Ping(pingCtx).Err(); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
	}

	// 3. 初始化 PostgreSQL 连接池（slot 落库）
	ctx.Postgres, err = pgxpool.New(pingCtx, c.PostgresDSN)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	dbStore := progress.NewDBProgressStore(ctx.Postgres)
	if err := dbStore.EnsureSchema(pingCtx); err != nil {
		ctx.Close()
		return nil, err
	}

	// 4. 进度管理器（Redis + DB + 缓冲）
	threshold := time.Duration(c.ProgressConf.RecentThresholdSec) * time.Second
	ctx.ProgressManager = progress.NewProgressManager(
		progress.NewRedisProgressStore(ctx.Redis, 0), dbStore, threshold)

	logger.Infof("GRPC 服务上下文初始化完成")
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *GrpcServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Flush(3000)
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
	if ctx.Postgres != nil {
		ctx.Postgres.Close()
	}
}
