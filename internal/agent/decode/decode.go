// Package decode turns raw link-layer frames into model.Record values.
package decode

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"yaulta/internal/agent/capture"
	"yaulta/internal/agent/inspect"
	"yaulta/pkg/model"
)

// Result 是一帧的解码结果。HTTP / TLSHandshake 是旁路诊断信息，不影响 Record。
type Result struct {
	Record       model.Record
	HTTP         *inspect.HTTPRequest
	TLSHandshake bool
}

type Decoder struct {
	linkType gopacket.Decoder
	// keepRaw 为 true 时把整帧复制进 Record.RawData（只有总线上报需要）。
	keepRaw bool
	now     func() time.Time
}

type Option func(*Decoder)

func WithLinkType(lt layers.LinkType) Option {
	return func(d *Decoder) { d.linkType = lt }
}

func WithRawData(keep bool) Option {
	return func(d *Decoder) { d.keepRaw = keep }
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{linkType: layers.LinkTypeEthernet, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode 永远返回一个 Record；解析不了的层保持默认值。
func (d *Decoder) Decode(f capture.Frame) Result {
	ts := f.Info.Timestamp
	if ts.IsZero() {
		ts = d.now()
	}
	rec := model.NewRecord(ts, f.Length())
	if d.keepRaw {
		rec.RawData = append(model.ByteArray(make([]byte, 0, len(f.Data))), f.Data...)
	}

	var res Result
	packet := gopacket.NewPacket(f.Data, d.linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	switch ip := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		rec.SrcIP = ip.SrcIP.String()
		rec.DstIP = ip.DstIP.String()
	case *layers.IPv6:
		rec.SrcIP = ip.SrcIP.String()
		rec.DstIP = ip.DstIP.String()
	}

	switch tl := packet.TransportLayer().(type) {
	case *layers.TCP:
		rec.Protocol, rec.IPProtocol = model.ProtocolTCP, model.ProtocolTCP
		rec.DstPort = uint16(tl.DstPort)
		rec.DataBytes = len(tl.Payload)
		if len(tl.Payload) > 0 {
			if req, ok := inspect.DetectHTTPRequest(tl.Payload); ok {
				res.HTTP = &req
			}
			res.TLSHandshake = inspect.LooksLikeTLSHandshake(tl.Payload)
		}
	case *layers.UDP:
		rec.Protocol, rec.IPProtocol = model.ProtocolUDP, model.ProtocolUDP
		rec.DstPort = uint16(tl.DstPort)
		rec.DataBytes = len(tl.Payload)
	}

	res.Record = rec
	return res
}
