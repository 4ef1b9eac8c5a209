// Package capture owns the raw Layer-2 read loop and its lifecycle.
package capture

import (
	"net"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
)

const (
	// Large enough for jumbo frames plus VLAN tags and extensions.
	SnapLen = 9100

	// Bounds the stop-signal latency: the read loop regains control at least
	// this often even on a silent interface.
	ReadTimeout = 100 * time.Millisecond

	// Kernel buffer size. 64KB holds roughly 40-70 standard MTU packets.
	BufferSize = 64 * 1024

	// Capacity of the worker-to-UI record channel. Sends on a full channel
	// drop the record: the UI staying live beats lossless capture.
	EventChannelSize = 100
)

// Interface describes the capture target. Flags mirror what the worker needs
// to decide the BSD loopback/point-to-point frame adjustment.
type Interface struct {
	Name  string
	Flags net.Flags
}

func (i Interface) IsUp() bool           { return i.Flags&net.FlagUp != 0 }
func (i Interface) IsLoopback() bool     { return i.Flags&net.FlagLoopback != 0 }
func (i Interface) IsPointToPoint() bool { return i.Flags&net.FlagPointToPoint != 0 }
func (i Interface) IsBroadcast() bool    { return i.Flags&net.FlagBroadcast != 0 }

// frameSource is one open Layer-2 channel. ReadFrame returns errReadTimeout
// when the read timeout elapses without traffic.
type frameSource interface {
	ReadFrame() ([]byte, error)
	Close()
}

var errReadTimeout = errors.New("frame read timed out")

// opener creates frame sources. The pcap-backed implementation is swapped out
// in tests so the loop can run without libpcap or privileges.
type opener interface {
	open(iface Interface, promiscuous bool) (frameSource, error)
}

type pcapOpener struct{}

func (pcapOpener) open(iface Interface, promiscuous bool) (frameSource, error) {
	inactive, err := pcap.NewInactiveHandle(iface.Name)
	if err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(SnapLen); err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}
	if err := inactive.SetPromisc(promiscuous); err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}
	if err := inactive.SetTimeout(ReadTimeout); err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}
	if err := inactive.SetBufferSize(BufferSize); err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, wrapOpenError(err, iface.Name)
	}

	// Loopback and point-to-point devices legitimately report other link
	// types; on BSD-family hosts the worker synthesizes Ethernet headers for
	// those. Anything else we cannot decode.
	switch handle.LinkType() {
	case layers.LinkTypeEthernet, layers.LinkTypeLoop, layers.LinkTypeNull, layers.LinkTypeRaw:
	default:
		handle.Close()
		return nil, NewCaptureError(ErrorLinkType,
			errors.Errorf("interface %s is not an Ethernet-style device (link type %v)", iface.Name, handle.LinkType()))
	}

	return &pcapSource{handle: handle}, nil
}

type pcapSource struct {
	handle *pcap.Handle
}

func (s *pcapSource) ReadFrame() ([]byte, error) {
	data, _, err := s.handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, errReadTimeout
	}
	return data, err
}

func (s *pcapSource) Close() {
	s.handle.Close()
}

// EligibleInterfaces lists interfaces the worker could capture on: up, with at
// least one address. Used by interface selection, not by the worker itself.
func EligibleInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list network interfaces")
	}
	results := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		results = append(results, Interface{Name: iface.Name, Flags: iface.Flags})
	}
	return results, nil
}

// InterfaceByName resolves a user-specified interface name.
func InterfaceByName(name string) (Interface, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return Interface{}, errors.Wrapf(err, "interface %s not found", name)
	}
	return Interface{Name: iface.Name, Flags: iface.Flags}, nil
}
