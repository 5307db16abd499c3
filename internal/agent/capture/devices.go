package capture

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/gopacket/pcap"
	"github.com/olekukonko/tablewriter"
)

type Device struct {
	Name        string
	Description string
	Addresses   []string
}

func ListDevices() ([]Device, error) {
	ifs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("枚举网卡失败：%w", err)
	}
	out := make([]Device, 0, len(ifs))
	for _, itf := range ifs {
		d := Device{Name: itf.Name, Description: itf.Description}
		for _, a := range itf.Addresses {
			if a.IP == nil {
				continue
			}
			d.Addresses = append(d.Addresses, a.IP.String())
		}
		out = append(out, d)
	}
	return out, nil
}

func RenderDevices(w io.Writer, devs []Device) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Name", "Description", "Addresses"})
	t.SetAutoWrapText(false)
	t.SetRowLine(false)

	for _, d := range devs {
		desc := d.Description
		if desc == "" {
			desc = "-"
		}
		addrs := "-"
		if len(d.Addresses) > 0 {
			addrs = strings.Join(d.Addresses, ", ")
		}
		t.Append([]string{d.Name, desc, addrs})
	}
	t.Render()
}
