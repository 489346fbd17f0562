package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
	"jup-indexer-sol/internal/config"
	"jup-indexer-sol/internal/logic/eventparser"
	"jup-indexer-sol/internal/logic/grpc"
	"jup-indexer-sol/internal/logic/progress"
	"jup-indexer-sol/internal/metrics"
	"jup-indexer-sol/internal/svc"
	"jup-indexer-sol/pkg/logger"
)

var configFile = flag.String("f", "etc/grpc.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.GrpcConfig
	conf.MustLoad(*configFile, &c, conf.UseEnv())
	logx.Must(c.Validate())
	logger.InitLogger(c.LogConf.ToLogOption())
	defer logger.Sync()
	eventparser.Init()

	serviceContext, err := svc.NewGrpcServiceContext(c)
	if err != nil {
		logx.Errorf("service context init failed: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()
	blockChan := make(chan *pb.SubscribeUpdateBlock, c.BlockBuffer)

	var auditor *grpc.GapAuditor
	if c.RpcEndpoint != "" {
		auditor = grpc.NewGapAuditor(c.RpcEndpoint, serviceContext.ProgressManager)
		sg.Add(auditor)
	}
	sg.Add(grpc.NewBlockProcessor(serviceContext, blockChan, auditor))

	if serviceContext.ProgressManager != nil {
		sg.Add(newProgressService(serviceContext.ProgressManager, c.ProgressConf))
	}
	if c.MetricsAddr != "" {
		sg.Add(newMetricsService(c.MetricsAddr))
	}

	grpcService, err := grpc.NewGrpcStreamManager(c.Grpc, blockChan)
	if err != nil {
		logx.Errorf("grpc stream init failed: %v", err)
		os.Exit(1)
	}
	sg.Add(grpcService)

	logx.Infof("Starting grpc stream service, workers=%d", c.BlockWorkers)
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}

// progressService 进度缓冲落库与历史清理
type progressService struct {
	pm     *progress.ProgressManager
	flush  time.Duration
	gc     time.Duration
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newProgressService(pm *progress.ProgressManager, c config.ProgressConfig) *progressService {
	ctx, cancel := context.WithCancel(context.Background())
	return &progressService{
		pm:     pm,
		flush:  time.Duration(c.FlushIntervalSec) * time.Second,
		gc:     time.Duration(c.GCIntervalMin) * time.Minute,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *progressService) Start() {
	go s.pm.StartGCLoop(s.ctx, s.gc)
	s.pm.StartFlushLoop(s.ctx, s.flush)
	close(s.done)
}

// Stop 等待最后一次 flush 完成
func (s *progressService) Stop() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
	}
}

type metricsService struct {
	srv *http.Server
}

func newMetricsService(addr string) *metricsService {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &metricsService{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

func (s *metricsService) Start() {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Errorf("metrics server: %v", err)
	}
}

func (s *metricsService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
