package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout 对应 YYYY/MM/DD HH:MM:SS ±HH:MM，下游消费者按这个格式解析。
const TimestampLayout = "2006/01/02 15:04:05 -07:00"

const (
	ProtocolTCP     = "tcp"
	ProtocolUDP     = "udp"
	ProtocolUnknown = "unknown"

	// NoAddress 表示没有识别出网络层。
	NoAddress = "-"
)

// Record 是一帧解码后的归一化结果，产生后不再修改。
type Record struct {
	Timestamp  string    `json:"timestamp"`
	Protocol   string    `json:"protocol"`
	SrcIP      string    `json:"src_ip"`
	DstIP      string    `json:"dst_ip"`
	DstPort    uint16    `json:"dst_port"`
	Bytes      int       `json:"bytes"`
	IPProtocol string    `json:"ip_protocol"`
	DataBytes  int       `json:"data_bytes"`
	RawData    ByteArray `json:"raw_data"`
}

// NewRecord 返回全部字段为默认值的 Record。
func NewRecord(ts time.Time, length int) Record {
	return Record{
		Timestamp:  FormatTimestamp(ts),
		Protocol:   ProtocolUnknown,
		SrcIP:      NoAddress,
		DstIP:      NoAddress,
		Bytes:      length,
		IPProtocol: ProtocolUnknown,
	}
}

func FormatTimestamp(ts time.Time) string {
	return ts.Local().Format(TimestampLayout)
}

// ByteArray 序列化为数字数组而不是 base64，和已有消费者的 JSON 格式保持一致。
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(b)*4)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	out = append(out, ']')
	return out, nil
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	out := make(ByteArray, len(vals))
	for i, v := range vals {
		if v < 0 || v > 0xff {
			return fmt.Errorf("raw_data[%d] 超出字节范围：%d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
