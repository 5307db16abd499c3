package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"yaulta/internal/agent/capture"
	"yaulta/internal/agent/metrics"
	"yaulta/pkg/model"
)

const (
	HeaderNodeID    = "NodeID"
	HeaderInterface = "Interface"
	HeaderTimestamp = "Timestamp"

	DefaultSubject    = "network.packets"
	DefaultAckTimeout = 5 * time.Second
)

// Publisher 是 jetstream.JetStream 里 BusSink 用到的那一个方法。
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type BusConfig struct {
	URL        string
	Subject    string
	NodeID     string
	Interface  string
	AckTimeout time.Duration
}

// Bus 把 Record 序列化成 JSON 发布到 JetStream，并在本帧内等待 ack。
// 等待时间受 AckTimeout 约束，慢的总线不会无限期卡住抓包循环。
type Bus struct {
	pub     Publisher
	cfg     BusConfig
	closeFn func() error
	newID   func() string
}

// DialBus 连接 NATS 并创建 JetStream 上下文，失败属于启动期错误。
func DialBus(cfg BusConfig) (*Bus, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("NATS 地址不能为空")
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("yaulta"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败（%s）：%w", cfg.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建 JetStream 上下文失败：%w", err)
	}
	return NewBus(js, cfg, nc.Drain), nil
}

func NewBus(pub Publisher, cfg BusConfig, closeFn func() error) *Bus {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	return &Bus{pub: pub, cfg: cfg, closeFn: closeFn, newID: uuid.NewString}
}

func (b *Bus) Name() string { return NameBus }

func (b *Bus) Consume(ctx context.Context, rec *model.Record, _ capture.Frame) error {
	msg, err := b.message(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.AckTimeout)
	defer cancel()

	start := time.Now()
	// Nats-Msg-Id 让服务端在重复发布时去重。
	ack, err := b.pub.PublishMsg(ctx, msg, jetstream.WithMsgID(b.newID()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("等待 ack 超时（%s）：%w", b.cfg.AckTimeout, err)
		}
		return fmt.Errorf("发布到 %s 失败：%w", b.cfg.Subject, err)
	}
	metrics.BusAckSeconds.Observe(time.Since(start).Seconds())
	if ack == nil {
		return fmt.Errorf("发布到 %s 没有收到 ack", b.cfg.Subject)
	}
	return nil
}

func (b *Bus) message(rec *model.Record) (*nats.Msg, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("序列化 JSON 失败：%w", err)
	}

	msg := nats.NewMsg(b.cfg.Subject)
	msg.Data = body
	if b.cfg.NodeID != "" {
		msg.Header.Set(HeaderNodeID, b.cfg.NodeID)
	}
	msg.Header.Set(HeaderInterface, b.cfg.Interface)
	msg.Header.Set(HeaderTimestamp, rec.Timestamp)
	return msg, nil
}

func (b *Bus) Close() error {
	if b.closeFn == nil {
		return nil
	}
	fn := b.closeFn
	b.closeFn = nil
	return fn()
}
