package sink

import (
	"context"
	"fmt"
	"io"

	"yaulta/internal/agent/capture"
	"yaulta/pkg/model"
)

// Display 每条 Record 输出一行定宽、竖线分隔的文本。
type Display struct {
	w io.Writer
}

func NewDisplay(w io.Writer) *Display {
	return &Display{w: w}
}

func (d *Display) Name() string { return NameDisplay }

func (d *Display) Consume(_ context.Context, rec *model.Record, _ capture.Frame) error {
	if _, err := io.WriteString(d.w, FormatLine(rec)+"\n"); err != nil {
		return fmt.Errorf("写标准输出失败：%w", err)
	}
	return nil
}

func (d *Display) Close() error { return nil }

func FormatLine(rec *model.Record) string {
	return fmt.Sprintf("%s | %s | %s | %s | %-7d | %-5d | %-10s | %d",
		rec.Protocol,
		rec.SrcIP,
		rec.DstIP,
		rec.Timestamp,
		rec.DstPort,
		rec.Bytes,
		rec.IPProtocol,
		rec.DataBytes,
	)
}
