package decode

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yaulta/internal/agent/capture"
	"yaulta/pkg/model"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func tcpFrame(t *testing.T, src, dst string, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: net.ParseIP(src), DstIP: net.ParseIP(dst)}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dstPort), Seq: 1, SYN: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func frame(data []byte, length int, ts time.Time) capture.Frame {
	return capture.Frame{Data: data, Info: gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: length}}
}

func TestDecodeTCPv4(t *testing.T) {
	ts := time.Date(2026, 10, 17, 10, 15, 0, 0, time.Local)
	data := tcpFrame(t, "10.0.0.1", "10.0.0.2", 8080, nil)

	res := NewDecoder().Decode(frame(data, 74, ts))

	assert.Equal(t, model.Record{
		Timestamp:  ts.Format(model.TimestampLayout),
		Protocol:   "tcp",
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.2",
		DstPort:    8080,
		Bytes:      74,
		IPProtocol: "tcp",
		DataBytes:  0,
	}, res.Record)
	assert.Nil(t, res.HTTP)
	assert.False(t, res.TLSHandshake)
}

func TestDecodeTCPPayloadLength(t *testing.T) {
	payload := []byte("hello world")
	data := tcpFrame(t, "192.168.1.10", "192.168.1.20", 9000, payload)

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	assert.Equal(t, "tcp", res.Record.Protocol)
	assert.Equal(t, len(payload), res.Record.DataBytes)
	assert.Equal(t, len(data), res.Record.Bytes)
}

func TestDecodeUDPv6(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP,
		SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8:0:0:0:0:0:2")}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, eth, ip, udp, gopacket.Payload([]byte{1, 2, 3, 4}))

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	assert.Equal(t, "udp", res.Record.Protocol)
	assert.Equal(t, "udp", res.Record.IPProtocol)
	assert.Equal(t, "2001:db8::1", res.Record.SrcIP)
	assert.Equal(t, "2001:db8::2", res.Record.DstIP)
	assert.EqualValues(t, 53, res.Record.DstPort)
	assert.Equal(t, 4, res.Record.DataBytes)
}

func TestDecodeICMPIsUnknownTransport(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4,
		SrcIP: net.ParseIP("10.1.1.1"), DstIP: net.ParseIP("10.1.1.2")}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1}
	data := serialize(t, eth, ip, icmp)

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	assert.Equal(t, "10.1.1.1", res.Record.SrcIP)
	assert.Equal(t, model.ProtocolUnknown, res.Record.Protocol)
	assert.Equal(t, model.ProtocolUnknown, res.Record.IPProtocol)
	assert.Zero(t, res.Record.DstPort)
	assert.Zero(t, res.Record.DataBytes)
}

func TestDecodeNoNetworkLayer(t *testing.T) {
	arp := &layers.ARP{
		AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
		HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPRequest,
		SourceHwAddress: srcMAC, SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress: make([]byte, 6), DstProtAddress: []byte{10, 0, 0, 2},
	}
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP}
	frames := [][]byte{
		serialize(t, eth, arp),
		nil,
		{0xde, 0xad},
		make([]byte, 80),
	}
	for i, data := range frames {
		res := NewDecoder().Decode(frame(data, len(data), time.Now()))
		assert.Equal(t, model.NoAddress, res.Record.SrcIP, "frame %d", i)
		assert.Equal(t, model.NoAddress, res.Record.DstIP, "frame %d", i)
		assert.Equal(t, model.ProtocolUnknown, res.Record.Protocol, "frame %d", i)
		assert.Equal(t, len(data), res.Record.Bytes, "frame %d", i)
	}
}

func TestDecodeTruncatedTCPKeepsNetworkFields(t *testing.T) {
	data := tcpFrame(t, "10.0.0.1", "10.0.0.2", 443, nil)
	truncated := data[:14+20+6]

	res := NewDecoder().Decode(frame(truncated, len(data), time.Now()))
	assert.Equal(t, len(data), res.Record.Bytes)
	assert.Zero(t, res.Record.DstPort)
	assert.Zero(t, res.Record.DataBytes)
}

func TestDecodeHTTPHeuristic(t *testing.T) {
	payload := []byte("GET /index HTTP/1.1\r\nHost: example.com\r\n\r\n")
	data := tcpFrame(t, "10.0.0.1", "10.0.0.2", 80, payload)

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	require.NotNil(t, res.HTTP)
	assert.Equal(t, "GET", res.HTTP.Method)
	assert.Equal(t, "/index", res.HTTP.Target)
	assert.Equal(t, "example.com", res.HTTP.Host)
	assert.False(t, res.TLSHandshake)
	assert.Equal(t, len(payload), res.Record.DataBytes)
}

func TestDecodeTLSHeuristic(t *testing.T) {
	payload := []byte{0x16, 0x03, 0x01, 0x00, 0xa5, 0x01, 0xff, 0xfe, 0xc0}
	data := tcpFrame(t, "10.0.0.1", "10.0.0.2", 443, payload)

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	assert.True(t, res.TLSHandshake)
	assert.Nil(t, res.HTTP)
}

func TestDecodeRawData(t *testing.T) {
	data := tcpFrame(t, "10.0.0.1", "10.0.0.2", 8080, nil)

	res := NewDecoder().Decode(frame(data, len(data), time.Now()))
	assert.Nil(t, res.Record.RawData)

	res = NewDecoder(WithRawData(true)).Decode(frame(data, len(data), time.Now()))
	assert.Equal(t, model.ByteArray(data), res.Record.RawData)

	// RawData 是拷贝，底层缓冲区被复用不影响 Record。
	data[0] ^= 0xff
	assert.NotEqual(t, data[0], res.Record.RawData[0])
}

func TestDecodeZeroTimestampFallsBackToNow(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	d := NewDecoder()
	d.now = func() time.Time { return fixed }

	res := d.Decode(capture.Frame{Data: []byte{1, 2, 3}})
	assert.Equal(t, fixed.Format(model.TimestampLayout), res.Record.Timestamp)
}

func ExampleDecoder_Decode() {
	d := NewDecoder()
	res := d.Decode(capture.Frame{Data: []byte{0x00}, Info: gopacket.CaptureInfo{Timestamp: time.Now(), Length: 1}})
	fmt.Println(res.Record.Protocol, res.Record.SrcIP, res.Record.Bytes)
	// Output: unknown - 1
}
