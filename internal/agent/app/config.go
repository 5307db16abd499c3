package app

import (
	"fmt"
	"strings"
	"time"

	"yaulta/internal/agent/sink"
)

const (
	DefaultSnaplen   = 65535
	DefaultOutputDir = "."
	NodeIDLength     = 8
)

// Config 是一次抓包会话的配置，循环开始后不再修改。
type Config struct {
	Interface  string        `mapstructure:"interface" yaml:"interface"`
	Snaplen    int           `mapstructure:"snaplen" yaml:"snaplen"`
	Filter     string        `mapstructure:"filter" yaml:"filter,omitempty"`
	Quiet      bool          `mapstructure:"quiet" yaml:"quiet"`
	Save       bool          `mapstructure:"save" yaml:"save"`
	OutputDir  string        `mapstructure:"output-dir" yaml:"output_dir"`
	NATSServer string        `mapstructure:"nats-server" yaml:"nats_server,omitempty"`
	NodeID     string        `mapstructure:"node-id" yaml:"node_id,omitempty"`
	Subject    string        `mapstructure:"subject" yaml:"subject"`
	AckTimeout time.Duration `mapstructure:"ack-timeout" yaml:"ack_timeout"`
	StatusAddr string        `mapstructure:"status-addr" yaml:"status_addr,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Snaplen:    DefaultSnaplen,
		OutputDir:  DefaultOutputDir,
		Subject:    sink.DefaultSubject,
		AckTimeout: sink.DefaultAckTimeout,
	}
}

// BusEnabled 配置了 NATS 地址才启用总线上报。
func (c Config) BusEnabled() bool { return c.NATSServer != "" }

// Validate 只在启动时调用一次，返回的错误都是 *SetupError。
func (c *Config) Validate() error {
	c.Interface = strings.TrimSpace(c.Interface)
	if c.Interface == "" {
		return setupErr("validate config", fmt.Errorf("interface 不能为空"))
	}
	if c.Snaplen == 0 {
		c.Snaplen = DefaultSnaplen
	}
	if c.Snaplen < 64 || c.Snaplen > 262144 {
		return setupErr("validate config", fmt.Errorf("snaplen 超出范围：%d（64 ~ 262144）", c.Snaplen))
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Subject == "" {
		c.Subject = sink.DefaultSubject
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = sink.DefaultAckTimeout
	}
	if c.NodeID != "" && !ValidNodeID(c.NodeID) {
		return setupErr("validate config", fmt.Errorf("node id 必须是 8 个字符，且只能包含 [_a-zA-Z0-9]：%q", c.NodeID))
	}
	return nil
}

// ValidNodeID 要求恰好 8 个 ASCII 字母、数字或下划线。
func ValidNodeID(id string) bool {
	if len(id) != NodeIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_':
		default:
			return false
		}
	}
	return true
}
