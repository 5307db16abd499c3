package filter

import (
	"fmt"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// Compile 把 tcpdump 语法的过滤表达式编译成 classic BPF（cBPF），挂到 AF_PACKET 套接字上在内核态过滤。
// 链路层固定按以太网处理；空表达式返回 nil，表示不过滤。
func Compile(expr string, snaplen int) ([]bpf.RawInstruction, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if snaplen <= 0 {
		snaplen = 65535
	}

	ins, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snaplen, expr)
	if err != nil {
		return nil, fmt.Errorf("编译 BPF 失败（%q）：%w", expr, err)
	}

	raw := make([]bpf.RawInstruction, 0, len(ins))
	for _, in := range ins {
		raw = append(raw, bpf.RawInstruction{Op: in.Code, Jt: in.Jt, Jf: in.Jf, K: in.K})
	}
	return raw, nil
}
