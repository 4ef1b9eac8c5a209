package ui

import (
	"github.com/zoza1982/netscanner/discovery"
	"github.com/zoza1982/netscanner/netdump"
	"github.com/zoza1982/netscanner/ports"
)

// PacketRow is one rendered table row.
type PacketRow struct {
	Time string
	Log  string
}

// Snapshot is the immutable view handed to the renderer each frame. Building
// it on the actor goroutine keeps the histories single-owner; the renderer
// only ever sees copies.
type Snapshot struct {
	ActiveTab  netdump.Tab
	PacketType netdump.PacketType
	Selected   int
	Paused     bool
	Mode       Mode
	FilterStr  string
	Input      string
	IfaceName  string

	Rows  []PacketRow
	Hosts []discovery.ScannedIP
	Ports []ports.ScannedPorts

	ErrText    string
	ExportDone bool
	ExportDir  string
}

func (a *Actor) snapshot() Snapshot {
	snap := Snapshot{
		ActiveTab:  a.state.ActiveTab,
		PacketType: a.state.PacketType,
		Paused:     a.state.Paused.Load(),
		Mode:       a.state.Mode,
		FilterStr:  a.state.FilterStr,
		Input:      a.state.Input,
		ErrText:    a.errText,
		ExportDone: a.exporter.Done(),
		ExportDir:  a.exporter.Dir(),
	}
	if a.hasIface {
		snap.IfaceName = a.iface.Name
	}

	switch a.state.ActiveTab {
	case netdump.TabPackets:
		filtered := a.state.Filtered(a.state.PacketType)
		rows := make([]PacketRow, len(filtered))
		for i, tr := range filtered {
			rows[i] = PacketRow{
				Time: tr.Time.Format("15:04:05"),
				Log:  tr.Record.RawStr(),
			}
		}
		snap.Rows = rows

		snap.Selected = a.state.Selected
		if snap.Selected >= len(rows) {
			snap.Selected = 0
		}
	case netdump.TabDiscovery:
		snap.Hosts = a.disc.Snapshot()
	case netdump.TabPorts:
		snap.Ports = a.portStore.Snapshot()
	}

	return snap
}
