package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时仅输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	// 未初始化时使用 stdout + info 级别，保证测试和工具命令可直接调用
	sugar.Store(newSugar(LogOption{Format: "console", Level: "info"}))
}

// InitLogger 初始化全局日志，进程启动时调用一次
func InitLogger(opt LogOption) {
	sugar.Store(newSugar(opt))
}

func newSugar(opt LogOption) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(opt.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	level := parseLevel(opt.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if opt.LogDir != "" {
		// 按大小轮转，error 单独一份方便告警采集
		cores = append(cores,
			zapcore.NewCore(encoder, zapcore.AddSync(newRotateWriter(opt, "indexer.log")), level),
			zapcore.NewCore(encoder, zapcore.AddSync(newRotateWriter(opt, "error.log")), zapcore.ErrorLevel),
		)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func newRotateWriter(opt LogOption, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(opt.LogDir, name),
		MaxSize:    256, // MB
		MaxBackups: 20,
		MaxAge:     7, // 天
		Compress:   opt.Compress,
	}
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func Debugf(template string, args ...interface{}) {
	sugar.Load().Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	sugar.Load().Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Load().Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	sugar.Load().Errorf(template, args...)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = sugar.Load().Sync()
}
