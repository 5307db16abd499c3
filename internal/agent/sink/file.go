package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/afero"

	"yaulta/internal/agent/capture"
	"yaulta/pkg/model"
)

const fileTimeLayout = "20060102_150405"

// FileName 返回本次会话的 pcap 文件名，只依赖会话开始时间。
func FileName(start time.Time) string {
	return "dump_" + start.Local().Format(fileTimeLayout) + ".pcap"
}

type FileConfig struct {
	Dir      string
	Start    time.Time
	Snaplen  int
	LinkType layers.LinkType
}

// File 把原始帧追加到 pcap 文件，每帧写完立即 flush，崩溃时最多丢一帧。
type File struct {
	path string
	f    afero.File
	buf  *bufio.Writer
	w    *pcapgo.Writer
}

func NewFile(fs afero.Fs, cfg FileConfig) (*File, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Snaplen <= 0 {
		cfg.Snaplen = 65535
	}
	if cfg.LinkType == 0 {
		cfg.LinkType = layers.LinkTypeEthernet
	}
	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败：%w", err)
	}

	path := filepath.Join(cfg.Dir, FileName(cfg.Start))
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("创建 pcap 文件失败：%w", err)
	}

	buf := bufio.NewWriter(f)
	w := pcapgo.NewWriter(buf)
	if err := w.WriteFileHeader(uint32(cfg.Snaplen), cfg.LinkType); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写 pcap 文件头失败：%w", err)
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写 pcap 文件头失败：%w", err)
	}

	return &File{path: path, f: f, buf: buf, w: w}, nil
}

func (s *File) Name() string { return NameFile }

func (s *File) Path() string { return s.path }

func (s *File) Consume(_ context.Context, _ *model.Record, frame capture.Frame) error {
	ci := frame.Info
	ci.CaptureLength = len(frame.Data)
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}
	if ci.Timestamp.IsZero() {
		ci.Timestamp = time.Now()
	}

	if err := s.w.WritePacket(ci, frame.Data); err != nil {
		s.buf.Reset(s.f)
		return fmt.Errorf("写入 pcap 失败：%w", err)
	}
	if err := s.buf.Flush(); err != nil {
		// bufio 的错误是粘滞的，重置后下一帧还能继续尝试写入。
		s.buf.Reset(s.f)
		return fmt.Errorf("flush pcap 失败：%w", err)
	}
	return nil
}

func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	flushErr := s.buf.Flush()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
