package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordDefaults(t *testing.T) {
	r := NewRecord(time.Now(), 60)
	assert.Equal(t, ProtocolUnknown, r.Protocol)
	assert.Equal(t, ProtocolUnknown, r.IPProtocol)
	assert.Equal(t, NoAddress, r.SrcIP)
	assert.Equal(t, NoAddress, r.DstIP)
	assert.Zero(t, r.DstPort)
	assert.Zero(t, r.DataBytes)
	assert.Equal(t, 60, r.Bytes)
	assert.Nil(t, r.RawData)
}

func TestFormatTimestamp(t *testing.T) {
	zone := time.FixedZone("test", 8*3600)
	ts := time.Date(2026, 10, 17, 9, 5, 3, 0, zone)
	got := ts.In(zone).Format(TimestampLayout)
	assert.Equal(t, "2026/10/17 09:05:03 +08:00", got)
}

func TestRecordJSONRawDataAsNumbers(t *testing.T) {
	r := Record{
		Timestamp:  "2026/10/17 09:05:03 +08:00",
		Protocol:   ProtocolTCP,
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.2",
		DstPort:    8080,
		Bytes:      74,
		IPProtocol: ProtocolTCP,
		RawData:    ByteArray{0x16, 0x03, 0xff},
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"timestamp": "2026/10/17 09:05:03 +08:00",
		"protocol": "tcp",
		"src_ip": "10.0.0.1",
		"dst_ip": "10.0.0.2",
		"dst_port": 8080,
		"bytes": 74,
		"ip_protocol": "tcp",
		"data_bytes": 0,
		"raw_data": [22, 3, 255]
	}`, string(b))

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}

func TestByteArrayEmpty(t *testing.T) {
	b, err := json.Marshal(Record{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"raw_data":[]`)
}

func TestByteArrayRejectsOutOfRange(t *testing.T) {
	var b ByteArray
	assert.Error(t, json.Unmarshal([]byte(`[1, 256]`), &b))
}
