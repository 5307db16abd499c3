// Package log wires the process-wide logrus logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string `mapstructure:"log-level" yaml:"level"`
	Format string `mapstructure:"log-format" yaml:"format"`
	// File 为空时只写 stderr；stdout 留给抓包展示行。
	File       string `mapstructure:"log-file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"log-max-size" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `mapstructure:"log-max-backups" yaml:"max_backups,omitempty"`
}

var (
	mu     sync.RWMutex
	logger = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// GetLogger 返回全局 logger，未调用 Init 时使用 info 级别的 stderr 输出。
func GetLogger() logrus.FieldLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func New(cfg Config) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		lv, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("日志级别非法：%w", err)
		}
		level = lv
	}

	l := logrus.New()
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("日志格式非法：%s（只支持 text / json）", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}
	l.SetOutput(out)
	return l, nil
}
