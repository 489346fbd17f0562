package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"jup-indexer-sol/internal/config"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/metrics"
)

type GrpcStreamManager struct {
	mu                sync.Mutex                      // 互斥锁，保护并发安全
	conn              *grpc.ClientConn                // gRPC 连接对象
	client            pb.GeyserClient                 // gRPC 客户端
	stopped           bool                            // 标记是否已经停止
	reconnectAttempts int                             // 已重连次数
	reconnectInterval time.Duration                   // 重连基础间隔
	xToken            string                          // 认证用的 x-token
	pingInterval      time.Duration                   // Stream 心跳包发送间隔
	blockChan         chan<- *pb.SubscribeUpdateBlock // 区块数据通道
	connCancel        context.CancelFunc              // 当前连接的 cancel 函数
	blockRecvTimeout  time.Duration                   // 超过该时长未收到 block 触发重连
	sendTimeout       time.Duration                   // gRPC 发送超时
	latencyWarn       time.Duration                   // 区块延迟告警阈值
	logx.Logger
}

func NewGrpcStreamManager(grpcConf config.GrpcClientConfig, blockChan chan<- *pb.SubscribeUpdateBlock) (*GrpcStreamManager, error) {
	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grpcConf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	if grpcConf.Insecure {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(
		dialCtx,
		grpcConf.Endpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithInitialWindowSize(int32(grpcConf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(grpcConf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(grpcConf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", grpcConf.Endpoint, err)
	}

	return &GrpcStreamManager{
		conn:              conn,
		client:            pb.NewGeyserClient(conn),
		reconnectInterval: time.Duration(grpcConf.ReconnectIntervalSec) * time.Second,
		xToken:            grpcConf.XToken,
		pingInterval:      time.Duration(grpcConf.StreamPingIntervalSec) * time.Second,
		blockChan:         blockChan,
		blockRecvTimeout:  time.Duration(grpcConf.BlockRecvTimeoutSec) * time.Second,
		sendTimeout:       time.Duration(grpcConf.SendTimeoutSec) * time.Second,
		latencyWarn:       time.Duration(grpcConf.MaxLatencyWarnMs) * time.Millisecond,
		Logger:            logx.WithContext(context.Background()).WithFields(logx.Field("service", "grpc_stream")),
	}, nil
}

func (m *GrpcStreamManager) Start() {
	m.mustConnect()
}

func (m *GrpcStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.Errorf("close grpc conn: %v", err)
		}
	}
}

// 内部循环直到连接成功
func (m *GrpcStreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		attempts := m.reconnectAttempts
		m.mu.Unlock()

		if attempts > 0 {
			if attempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		m.Infof("Connecting... Attempt %d", attempts+1)
		err := m.connect()
		if err == nil {
			return
		}
		m.Errorf("Connect failed: %v, will retry...", err)
	}
}

func buildSubscribeRequest() *pb.SubscribeRequest {
	blocks := make(map[string]*pb.SubscribeRequestFilterBlocks)
	blocks["jupiter"] = &pb.SubscribeRequestFilterBlocks{
		AccountInclude:      consts.GrpcAccountInclude,
		IncludeTransactions: boolPtr(true),
		IncludeAccounts:     boolPtr(false),
		IncludeEntries:      boolPtr(false),
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Blocks:     blocks,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *GrpcStreamManager) connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("manager is stopped")
	}
	m.reconnectAttempts++

	// 先关闭旧的 context，退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	connCtx, connCancel := context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(connCtx, metadata.New(map[string]string{"x-token": m.xToken}))
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		connCancel()
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := sendWithTimeout(connCtx, stream.Send, buildSubscribeRequest(), m.sendTimeout); err != nil {
		connCancel()
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.connCancel = connCancel
	m.reconnectAttempts = 0
	m.Infof("Connection established, account include=%v", consts.GrpcAccountInclude)

	go m.pingLoop(connCtx, stream)
	go m.blockRecvLoop(connCtx, stream)
	return nil
}

func (m *GrpcStreamManager) blockRecvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	last := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		update, err := stream.Recv()
		now := time.Now()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				m.Errorf("Stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			m.Errorf("Stream error: %v", err)
			if m.reconnectIfBlockTimeout(last) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Block); ok {
			last = now
			if !m.forwardBlock(ctx, u.Block, now) {
				return
			}
			continue
		}

		if m.reconnectIfBlockTimeout(last) {
			return
		}
	}
}

// forwardBlock 记录延迟并写入 blockChan；channel 满时阻塞形成背压，连接关闭时返回 false
func (m *GrpcStreamManager) forwardBlock(ctx context.Context, block *pb.SubscribeUpdateBlock, now time.Time) bool {
	if block == nil {
		return true
	}
	if bt := block.GetBlockTime(); bt != nil {
		latency := now.Sub(time.Unix(bt.Timestamp, 0))
		metrics.BlockLatency.Observe(latency.Seconds())
		if m.latencyWarn > 0 && latency > m.latencyWarn {
			m.Infof("slot %d latency %v exceeds %v", block.Slot, latency, m.latencyWarn)
		}
	}
	metrics.HighestSlot.Set(float64(block.Slot))

	select {
	case m.blockChan <- block:
		return true
	case <-ctx.Done():
		return false
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 心跳检测
func (m *GrpcStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			if err := sendWithTimeout(ctx, stream.Send, pingReq, m.sendTimeout); err != nil {
				// 只记录日志，重连由接收侧超时触发
				m.Errorf("Ping failed: %v", err)
			}
		}
	}
}

func (m *GrpcStreamManager) reconnectIfBlockTimeout(last time.Time) bool {
	if time.Since(last) > m.blockRecvTimeout {
		m.Errorf("%v未收到block，触发重连", m.blockRecvTimeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *GrpcStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	metrics.StreamReconnects.Inc()
	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
