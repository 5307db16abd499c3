package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/net/bpf"

	"yaulta/internal/agent/capture"
	"yaulta/internal/agent/decode"
	"yaulta/internal/agent/filter"
	"yaulta/internal/agent/sink"
	"yaulta/internal/agent/status"
	ylog "yaulta/internal/log"
)

// FrameSource 是可关闭的帧来源。
type FrameSource interface {
	Source
	Close() error
}

// Runner 持有会话依赖的外部协作者，测试里可以替换。
type Runner struct {
	OpenSource func(cfg Config, ins []bpf.RawInstruction) (FrameSource, error)
	DialBus    func(cfg sink.BusConfig) (sink.Sink, error)
	Fs         afero.Fs
	Stdout     io.Writer
	Now        func() time.Time
	Log        logrus.FieldLogger
}

func Run(ctx context.Context, cfg Config) error {
	return Runner{}.Run(ctx, cfg)
}

func (r Runner) withDefaults() Runner {
	if r.OpenSource == nil {
		r.OpenSource = openAFPacket
	}
	if r.DialBus == nil {
		r.DialBus = func(cfg sink.BusConfig) (sink.Sink, error) { return sink.DialBus(cfg) }
	}
	if r.Fs == nil {
		r.Fs = afero.NewOsFs()
	}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Log == nil {
		r.Log = ylog.GetLogger()
	}
	return r
}

func openAFPacket(cfg Config, ins []bpf.RawInstruction) (FrameSource, error) {
	handle, err := capture.NewAFPacketHandle(cfg.Interface, cfg.Snaplen)
	if err != nil {
		return nil, err
	}
	if len(ins) > 0 {
		if err := handle.SetBPF(ins); err != nil {
			_ = handle.Close()
			return nil, err
		}
	}
	return handle, nil
}

// Run 完成启动期的全部准备（任何失败都是 *SetupError），然后阻塞在抓包循环里直到 ctx 取消。
func (r Runner) Run(ctx context.Context, cfg Config) error {
	r = r.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ins, err := filter.Compile(cfg.Filter, cfg.Snaplen)
	if err != nil {
		return setupErr("compile filter", err)
	}

	src, err := r.OpenSource(cfg, ins)
	if err != nil {
		return setupErr("open interface", err)
	}
	defer src.Close()

	sess, err := r.newSession(cfg, src)
	if err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		stop := r.startStatus(cfg.StatusAddr, sess)
		defer stop()
	}

	log := r.Log.WithField("iface", cfg.Interface)
	log.WithField("sinks", sess.router.Len()).Info("开始抓包，按 Ctrl+C 停止")

	loopErr := sess.loop.Run(ctx)

	if err := sess.router.Close(); err != nil {
		log.WithError(err).Warn("关闭 sink 失败")
	}
	st := sess.loop.Stats()
	log.WithFields(logrus.Fields{"frames": st.Frames, "source_errors": st.SourceErrors}).Info("抓包结束")
	return loopErr
}

func (r Runner) newSession(cfg Config, src Source) (*Session, error) {
	start := r.Now()
	router, err := r.buildRouter(cfg, start)
	if err != nil {
		return nil, err
	}
	dec := decode.NewDecoder(decode.WithRawData(cfg.BusEnabled()))
	return &Session{
		cfg:     cfg,
		started: start,
		router:  router,
		loop:    NewLoop(cfg.Interface, src, dec, router, r.Log),
	}, nil
}

// buildRouter 固定按 Display、File、Bus 的顺序组装 sink。
func (r Runner) buildRouter(cfg Config, start time.Time) (*sink.Router, error) {
	var sinks []sink.Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if !cfg.Quiet {
		sinks = append(sinks, sink.NewDisplay(r.Stdout))
	}

	if cfg.Save {
		f, err := sink.NewFile(r.Fs, sink.FileConfig{Dir: cfg.OutputDir, Start: start, Snaplen: cfg.Snaplen})
		if err != nil {
			closeAll()
			return nil, setupErr("prepare output file", err)
		}
		r.Log.WithField("path", f.Path()).Info("抓包数据保存到文件")
		sinks = append(sinks, f)
	}

	if cfg.BusEnabled() {
		b, err := r.DialBus(sink.BusConfig{
			URL:        cfg.NATSServer,
			Subject:    cfg.Subject,
			NodeID:     cfg.NodeID,
			Interface:  cfg.Interface,
			AckTimeout: cfg.AckTimeout,
		})
		if err != nil {
			closeAll()
			return nil, setupErr("connect bus", err)
		}
		r.Log.WithFields(logrus.Fields{
			"server":  cfg.NATSServer,
			"subject": cfg.Subject,
			"node_id": cfg.NodeID,
		}).Info("已连接 NATS")
		sinks = append(sinks, b)
	}

	return sink.NewRouter(r.Log, sinks...), nil
}

func (r Runner) startStatus(addr string, sess *Session) (stop func()) {
	srv := status.NewServer(addr, sess)
	go func() {
		r.Log.WithField("addr", addr).Info("status 服务监听")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Log.WithError(err).Warn("status 服务退出")
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// Session 是一次抓包会话的运行期状态。
type Session struct {
	cfg     Config
	started time.Time
	router  *sink.Router
	loop    *Loop
}

func (s *Session) Snapshot() status.Snapshot {
	st := s.loop.Stats()
	return status.Snapshot{
		Interface:    s.cfg.Interface,
		StartedAt:    s.started,
		State:        s.loop.State().String(),
		Frames:       st.Frames,
		SourceErrors: st.SourceErrors,
		Sinks:        s.router.Snapshot(),
	}
}
