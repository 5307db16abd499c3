// Package sink holds the consumers of decoded records and the router that
// fans each record out to them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"yaulta/internal/agent/capture"
	"yaulta/internal/agent/metrics"
	"yaulta/pkg/model"
)

const (
	NameDisplay = "display"
	NameFile    = "file"
	NameBus     = "bus"
)

// Sink 消费一条 Record。frame 是原始帧，只在本次调用内有效。
type Sink interface {
	Name() string
	Consume(ctx context.Context, rec *model.Record, frame capture.Frame) error
	Close() error
}

// SinkError 是单个 sink 处理单帧失败，只记录不传播。
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

type Stats struct {
	Sink     string `json:"sink"`
	Consumed uint64 `json:"consumed"`
	Failed   uint64 `json:"failed"`
}

type counters struct {
	consumed atomic.Uint64
	failed   atomic.Uint64
}

// Router 按构造时的顺序（Display、File、Bus）依次调用每个 sink。
// 任何一个 sink 出错或 panic 都不会影响后面的 sink 和抓包循环。
type Router struct {
	sinks []Sink
	stats []*counters
	log   logrus.FieldLogger
}

func NewRouter(log logrus.FieldLogger, sinks ...Sink) *Router {
	r := &Router{log: log}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		r.sinks = append(r.sinks, s)
		r.stats = append(r.stats, &counters{})
	}
	return r
}

func (r *Router) Len() int { return len(r.sinks) }

// Dispatch 返回本帧所有 SinkError 的 errors.Join，仅供观测，调用方不应据此中断抓包。
func (r *Router) Dispatch(ctx context.Context, rec *model.Record, frame capture.Frame) error {
	var errs []error
	for i, s := range r.sinks {
		err := r.consume(ctx, s, rec, frame)
		if err == nil {
			r.stats[i].consumed.Add(1)
			metrics.SinkRecordsTotal.WithLabelValues(s.Name(), metrics.OutcomeOK).Inc()
			continue
		}
		r.stats[i].failed.Add(1)
		metrics.SinkRecordsTotal.WithLabelValues(s.Name(), metrics.OutcomeError).Inc()
		serr := &SinkError{Sink: s.Name(), Err: err}
		r.log.WithError(err).WithField("sink", s.Name()).Warn("sink 处理失败（忽略继续抓包）")
		errs = append(errs, serr)
	}
	return errors.Join(errs...)
}

func (r *Router) consume(ctx context.Context, s Sink, rec *model.Record, frame capture.Frame) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Consume(ctx, rec, frame)
}

func (r *Router) Snapshot() []Stats {
	out := make([]Stats, 0, len(r.sinks))
	for i, s := range r.sinks {
		out = append(out, Stats{
			Sink:     s.Name(),
			Consumed: r.stats[i].consumed.Load(),
			Failed:   r.stats[i].failed.Load(),
		})
	}
	return out
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
