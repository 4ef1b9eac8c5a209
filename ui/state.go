package ui

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/zoza1982/netscanner/history"
	"github.com/zoza1982/netscanner/netdump"
)

// Mode is the keyboard focus state.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInput
)

// State is everything the UI actor owns. All methods run on the actor
// goroutine; Paused is atomic only because the render snapshot is built
// there too and the flag mirrors the original design.
type State struct {
	ActiveTab  netdump.Tab
	PacketType netdump.PacketType

	// Index into the filtered view of the current bucket; 0 when nothing is
	// selectable.
	Selected int

	Paused    atomic.Bool
	Mode      Mode
	FilterStr string
	Input     string

	arp   *history.History[netdump.TimedRecord]
	tcp   *history.History[netdump.TimedRecord]
	udp   *history.History[netdump.TimedRecord]
	icmp  *history.History[netdump.TimedRecord]
	icmp6 *history.History[netdump.TimedRecord]
	all   *history.History[netdump.TimedRecord]
}

func NewState() *State {
	return &State{
		ActiveTab:  netdump.TabDiscovery,
		PacketType: netdump.All,
		Selected:   0,
		arp:        history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
		tcp:        history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
		udp:        history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
		icmp:       history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
		icmp6:      history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
		all:        history.New[netdump.TimedRecord](netdump.MaxPacketHistory),
	}
}

// HistoryFor returns the bucket for t.
func (s *State) HistoryFor(t netdump.PacketType) *history.History[netdump.TimedRecord] {
	switch t {
	case netdump.Arp:
		return s.arp
	case netdump.Tcp:
		return s.tcp
	case netdump.Udp:
		return s.udp
	case netdump.Icmp:
		return s.icmp
	case netdump.Icmp6:
		return s.icmp6
	default:
		return s.all
	}
}

// AddRecord appends a dissected record to its protocol bucket and to All.
// Records arriving while the dump is paused are discarded.
func (s *State) AddRecord(t time.Time, rec *netdump.PacketRecord, kind netdump.PacketType) {
	if s.Paused.Load() {
		return
	}
	tr := netdump.TimedRecord{Time: t, Record: rec}
	switch kind {
	case netdump.Arp, netdump.Tcp, netdump.Udp, netdump.Icmp, netdump.Icmp6:
		s.HistoryFor(kind).Push(tr)
	default:
		return
	}
	s.all.Push(tr)
}

// Filtered returns the current bucket's records whose RawStr contains the
// filter string. The empty filter matches everything.
func (s *State) Filtered(t netdump.PacketType) []netdump.TimedRecord {
	return FilterRecords(s.HistoryFor(t).View(), s.FilterStr)
}

// FilterRecords applies the substring filter to a record slice.
func FilterRecords(records []netdump.TimedRecord, filter string) []netdump.TimedRecord {
	if filter == "" {
		out := make([]netdump.TimedRecord, len(records))
		copy(out, records)
		return out
	}
	out := make([]netdump.TimedRecord, 0, len(records))
	for _, tr := range records {
		if strings.Contains(tr.Record.RawStr(), filter) {
			out = append(out, tr)
		}
	}
	return out
}

// SelectionUp moves the selection towards older entries, wrapping to the
// bottom from the top.
func (s *State) SelectionUp() {
	n := len(s.Filtered(s.PacketType))
	if n == 0 {
		s.Selected = 0
		return
	}
	if s.Selected <= 0 {
		s.Selected = n - 1
		return
	}
	s.Selected--
}

// SelectionDown moves the selection towards newer entries, wrapping to the
// top from the bottom.
func (s *State) SelectionDown() {
	n := len(s.Filtered(s.PacketType))
	if n == 0 || s.Selected >= n-1 {
		s.Selected = 0
		return
	}
	s.Selected++
}

// CycleLeft switches to the previous packet type and resets the selection.
func (s *State) CycleLeft() {
	s.PacketType = s.PacketType.Previous()
	s.Selected = 0
}

// CycleRight switches to the next packet type and resets the selection.
func (s *State) CycleRight() {
	s.PacketType = s.PacketType.Next()
	s.Selected = 0
}

// ApplyFilter commits the input field as the active filter.
func (s *State) ApplyFilter() {
	s.FilterStr = s.Input
	s.Selected = 0
}

// ClearFilter empties both the input field and the active filter.
func (s *State) ClearFilter() {
	s.Input = ""
	s.FilterStr = ""
	s.Selected = 0
}
