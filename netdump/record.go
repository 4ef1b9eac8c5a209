package netdump

import (
	"net"
	"time"

	"github.com/google/gopacket/layers"
)

// Maximum number of packets to keep in history per packet type. Bounds memory
// to roughly 1000 packets times the average record size while leaving enough
// history for analysis.
const MaxPacketHistory = 1000

// PacketType selects one of the history buckets.
type PacketType int

const (
	All PacketType = iota
	Arp
	Tcp
	Udp
	Icmp
	Icmp6
)

var packetTypeNames = map[PacketType]string{
	All:   "All",
	Arp:   "ARP",
	Tcp:   "TCP",
	Udp:   "UDP",
	Icmp:  "ICMP",
	Icmp6: "ICMP6",
}

func (t PacketType) String() string {
	if s, ok := packetTypeNames[t]; ok {
		return s
	}
	return "All"
}

// PacketTypes returns all bucket types in display order.
func PacketTypes() []PacketType {
	return []PacketType{All, Arp, Tcp, Udp, Icmp, Icmp6}
}

// Next moves one bucket right, saturating at the last one.
func (t PacketType) Next() PacketType {
	if t >= Icmp6 {
		return t
	}
	return t + 1
}

// Previous moves one bucket left, saturating at the first one.
func (t PacketType) Previous() PacketType {
	if t <= All {
		return t
	}
	return t - 1
}

// Tab identifies a top-level view of the TUI.
type Tab int

const (
	TabDiscovery Tab = iota
	TabPackets
	TabPorts
)

func (t Tab) String() string {
	switch t {
	case TabPackets:
		return "Packets"
	case TabPorts:
		return "Ports"
	default:
		return "Discovery"
	}
}

// Tabs returns the tabs in cycle order.
func Tabs() []Tab {
	return []Tab{TabDiscovery, TabPackets, TabPorts}
}

// Next cycles to the following tab, wrapping around.
func (t Tab) Next() Tab {
	switch t {
	case TabDiscovery:
		return TabPackets
	case TabPackets:
		return TabPorts
	default:
		return TabDiscovery
	}
}

type ArpRecord struct {
	Iface     string
	SrcMAC    net.HardwareAddr
	SrcIP     net.IP
	DstMAC    net.HardwareAddr
	DstIP     net.IP
	Operation uint16
	RawStr    string
}

type IcmpRecord struct {
	Iface    string
	SrcIP    net.IP
	DstIP    net.IP
	Seq      uint16
	ID       uint16
	TypeCode layers.ICMPv4TypeCode
	RawStr   string
}

type Icmp6Record struct {
	Iface    string
	SrcIP    net.IP
	DstIP    net.IP
	TypeCode layers.ICMPv6TypeCode
	RawStr   string
}

type UdpRecord struct {
	Iface   string
	SrcIP   net.IP
	SrcPort uint16
	DstIP   net.IP
	DstPort uint16
	Length  uint16
	RawStr  string
}

type TcpRecord struct {
	Iface   string
	SrcIP   net.IP
	SrcPort uint16
	DstIP   net.IP
	DstPort uint16
	Length  int
	RawStr  string
}

// PacketRecord is a closed sum over the per-protocol record structs: exactly
// one of the fields is non-nil. Records are never mutated after construction.
type PacketRecord struct {
	Arp   *ArpRecord
	Icmp  *IcmpRecord
	Icmp6 *Icmp6Record
	Udp   *UdpRecord
	Tcp   *TcpRecord
}

// Kind reports which bucket the record belongs to.
func (r *PacketRecord) Kind() PacketType {
	switch {
	case r.Arp != nil:
		return Arp
	case r.Tcp != nil:
		return Tcp
	case r.Udp != nil:
		return Udp
	case r.Icmp != nil:
		return Icmp
	default:
		return Icmp6
	}
}

// RawStr is the one-line rendering produced at dissection time. It is the
// only surface the userspace filter matches against.
func (r *PacketRecord) RawStr() string {
	switch {
	case r.Arp != nil:
		return r.Arp.RawStr
	case r.Tcp != nil:
		return r.Tcp.RawStr
	case r.Udp != nil:
		return r.Udp.RawStr
	case r.Icmp != nil:
		return r.Icmp.RawStr
	case r.Icmp6 != nil:
		return r.Icmp6.RawStr
	}
	return ""
}

// TimedRecord pairs a record with the local wall-clock time at dissection.
type TimedRecord struct {
	Time   time.Time
	Record *PacketRecord
}

// ArpObserved is the side-channel notification emitted for every ARP frame,
// consumed by host discovery. Fields come from the ARP header, not the
// Ethernet header.
type ArpObserved struct {
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}
