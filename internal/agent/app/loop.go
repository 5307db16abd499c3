package app

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"yaulta/internal/agent/capture"
	"yaulta/internal/agent/decode"
	"yaulta/internal/agent/metrics"
	"yaulta/internal/agent/sink"
)

// Source 阻塞直到返回一帧或出错，AFPacketHandle 是生产实现。
type Source interface {
	ReadFrame(ctx context.Context) (capture.Frame, error)
}

type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

type LoopStats struct {
	Frames       uint64 `json:"frames"`
	SourceErrors uint64 `json:"source_errors"`
}

// Loop 单协程顺序执行：读帧 -> 解码 -> 分发，sink 看到的顺序就是抓包顺序。
type Loop struct {
	src    Source
	dec    *decode.Decoder
	router *sink.Router
	log    logrus.FieldLogger
	iface  string

	state        atomic.Int32
	frames       atomic.Uint64
	sourceErrors atomic.Uint64
}

func NewLoop(iface string, src Source, dec *decode.Decoder, router *sink.Router, log logrus.FieldLogger) *Loop {
	return &Loop{src: src, dec: dec, router: router, log: log, iface: iface}
}

// Run 在 ctx 取消时返回 nil；只有源已关闭这类不可恢复错误才会返回 *SourceError。
func (l *Loop) Run(ctx context.Context) error {
	l.state.Store(int32(StateRunning))
	defer l.state.Store(int32(StateStopped))

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := l.src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, capture.ErrClosed) {
				return &SourceError{Err: err}
			}
			l.sourceErrors.Add(1)
			metrics.SourceErrorsTotal.WithLabelValues(l.iface).Inc()
			l.log.WithError(err).Warn("读帧失败（忽略继续抓包）")
			continue
		}

		l.frames.Add(1)
		metrics.FramesTotal.WithLabelValues(l.iface).Inc()

		res := l.dec.Decode(frame)
		l.reportHints(&res)
		// sink 的失败已经在 Router 里记录，这里不处理。
		_ = l.router.Dispatch(ctx, &res.Record, frame)
	}
}

func (l *Loop) reportHints(res *decode.Result) {
	if res.HTTP == nil && !res.TLSHandshake {
		return
	}
	entry := l.log.WithFields(logrus.Fields{
		"src":      res.Record.SrcIP,
		"dst":      res.Record.DstIP,
		"dst_port": res.Record.DstPort,
	})
	if res.HTTP != nil {
		metrics.HintsTotal.WithLabelValues(metrics.HintHTTP).Inc()
		entry.WithFields(logrus.Fields{
			"method": res.HTTP.Method,
			"target": res.HTTP.Target,
			"host":   res.HTTP.Host,
		}).Info("检测到 HTTP 请求")
	}
	if res.TLSHandshake {
		metrics.HintsTotal.WithLabelValues(metrics.HintTLS).Inc()
		entry.Info("疑似 TLS 握手")
	}
}

func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Frames:       l.frames.Load(),
		SourceErrors: l.sourceErrors.Load(),
	}
}
