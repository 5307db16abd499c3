package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/bpf"
)

// ErrClosed 表示句柄已关闭，抓包循环遇到它应当停止而不是重试。
var ErrClosed = errors.New("capture handle closed")

// AnyInterface 监听全部网卡。
const AnyInterface = "any"

// Frame 是一次抓到的原始链路层帧及其元数据。
type Frame struct {
	Data []byte
	Info gopacket.CaptureInfo
}

// Length 返回抓包元数据里的原始帧长度，元数据缺失时退回实际数据长度。
func (f Frame) Length() int {
	if f.Info.Length > 0 {
		return f.Info.Length
	}
	return len(f.Data)
}

type AFPacketHandle struct {
	tp      *afpacket.TPacket
	iface   string
	snaplen int
}

func NewAFPacketHandle(iface string, snaplen int) (*AFPacketHandle, error) {
	if iface == "" {
		return nil, fmt.Errorf("interface 不能为空")
	}
	if iface != AnyInterface {
		if _, err := net.InterfaceByName(iface); err != nil {
			return nil, fmt.Errorf("网卡不存在：%s：%w", iface, err)
		}
	}

	frameSize := nextPow2(snaplen)
	if frameSize < 2048 {
		frameSize = 2048
	}
	if frameSize > 1<<16 {
		frameSize = 1 << 16
	}

	blockSize := 1 << 20
	if blockSize%frameSize != 0 {
		blockSize = frameSize * 16
	}

	// AF_PACKET + mmap 环形缓冲区，gopacket/afpacket 会自动选择 TPACKET 版本。
	opts := []interface{}{
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(64),
		afpacket.OptPollTimeout(250 * time.Millisecond),
	}
	if iface != AnyInterface {
		opts = append(opts, afpacket.OptInterface(iface))
	}
	tp, err := afpacket.NewTPacket(opts...)
	if err != nil {
		if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
			return nil, fmt.Errorf("打开 AF_PACKET 失败：%w（需要 root 或 CAP_NET_RAW）", err)
		}
		return nil, fmt.Errorf("打开 AF_PACKET 失败：%w", err)
	}

	return &AFPacketHandle{tp: tp, iface: iface, snaplen: snaplen}, nil
}

func nextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

func (h *AFPacketHandle) Interface() string { return h.iface }

// LinkType AF_PACKET 原始套接字交付的都是以太网帧。
func (h *AFPacketHandle) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (h *AFPacketHandle) Close() error {
	if h.tp != nil {
		h.tp.Close()
		h.tp = nil
	}
	return nil
}

func (h *AFPacketHandle) SetBPF(ins []bpf.RawInstruction) error {
	if h.tp == nil {
		return os.ErrInvalid
	}
	return h.tp.SetBPF(ins)
}

// ReadFrame 阻塞直到拿到一帧、ctx 取消或出现非超时错误。
// 返回的 Data 指向内核环形缓冲区，只在下一次调用前有效。
func (h *AFPacketHandle) ReadFrame(ctx context.Context) (Frame, error) {
	if h.tp == nil {
		return Frame{}, ErrClosed
	}

	for {
		data, ci, err := h.tp.ZeroCopyReadPacketData()
		if err == nil {
			return Frame{Data: data, Info: ci}, nil
		}
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		// poll 超时只是没有流量，继续等；其他错误交给调用方决定。
		if errors.Is(err, afpacket.ErrTimeout) {
			continue
		}
		return Frame{}, err
	}
}
