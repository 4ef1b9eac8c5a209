package netdump

import (
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIface = "eth0"

func TestDissectUDPEcho(t *testing.T) {
	// 24 bytes of payload plus the 8-byte UDP header gives a stated length
	// of 32.
	frame := CreateUDPFrame(
		net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"),
		5000, 53, make([]byte, 24))

	d := DissectEthernet(testIface, frame)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Udp)
	assert.Nil(t, d.Arp)

	udp := d.Record.Udp
	assert.Equal(t, "10.0.0.1", udp.SrcIP.String())
	assert.Equal(t, "10.0.0.2", udp.DstIP.String())
	assert.Equal(t, uint16(5000), udp.SrcPort)
	assert.Equal(t, uint16(53), udp.DstPort)
	assert.Equal(t, uint16(32), udp.Length)

	assert.Contains(t, udp.RawStr, "10.0.0.1:5000 > 10.0.0.2:53")
	assert.Contains(t, udp.RawStr, "length: 32")
	assert.Equal(t, Udp, d.Record.Kind())
}

func TestDissectTCP(t *testing.T) {
	payload := []byte("hello over tcp")
	frame := CreateTCPFrame(
		net.ParseIP("192.0.2.1"), net.ParseIP("192.0.2.7"),
		49152, 443, payload, 7)

	d := DissectEthernet(testIface, frame)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Tcp)

	tcp := d.Record.Tcp
	assert.Equal(t, uint16(49152), tcp.SrcPort)
	assert.Equal(t, uint16(443), tcp.DstPort)
	// Length covers the whole segment, header included.
	assert.Equal(t, 20+len(payload), tcp.Length)
	assert.Contains(t, tcp.RawStr, "192.0.2.1:49152 > 192.0.2.7:443")
}

func TestDissectARP(t *testing.T) {
	senderMAC, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	targetMAC, err := net.ParseMAC("00:00:00:00:00:00")
	require.NoError(t, err)

	frame := CreateARPFrame(
		senderMAC, net.ParseIP("192.168.1.10"),
		targetMAC, net.ParseIP("192.168.1.1"),
		layers.ARPRequest)

	d := DissectEthernet(testIface, frame)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Arp)

	arp := d.Record.Arp
	assert.Equal(t, uint16(layers.ARPRequest), arp.Operation)
	assert.Equal(t, "192.168.1.10", arp.SrcIP.String())
	assert.Equal(t, "192.168.1.1", arp.DstIP.String())
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", arp.SrcMAC.String())

	// The side channel carries the ARP header addresses.
	require.NotNil(t, d.Arp)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", d.Arp.SenderMAC.String())
	assert.Equal(t, "192.168.1.10", d.Arp.SenderIP.String())
	assert.Equal(t, "00:00:00:00:00:00", d.Arp.TargetMAC.String())
	assert.Equal(t, "192.168.1.1", d.Arp.TargetIP.String())
}

func TestDissectICMPOnlyEcho(t *testing.T) {
	src, dst := net.ParseIP("10.1.1.1"), net.ParseIP("10.1.1.2")

	// Non-echo ICMP (destination unreachable) produces no record.
	unreachable := CreateICMPEchoFrame(src, dst, layers.ICMPv4TypeDestinationUnreachable, 0, 0)
	assert.Nil(t, DissectEthernet(testIface, unreachable))

	// Echo request is recorded with its sub-header fields.
	echo := CreateICMPEchoFrame(src, dst, layers.ICMPv4TypeEchoRequest, 77, 42)
	d := DissectEthernet(testIface, echo)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Icmp)
	assert.Equal(t, uint16(42), d.Record.Icmp.Seq)
	assert.Equal(t, uint16(77), d.Record.Icmp.ID)
	assert.Equal(t, uint8(layers.ICMPv4TypeEchoRequest), d.Record.Icmp.TypeCode.Type())
	assert.Contains(t, d.Record.Icmp.RawStr, "echo request")
	assert.Contains(t, d.Record.Icmp.RawStr, "seq=42")

	reply := CreateICMPEchoFrame(src, dst, layers.ICMPv4TypeEchoReply, 77, 43)
	d = DissectEthernet(testIface, reply)
	require.NotNil(t, d)
	assert.Contains(t, d.Record.Icmp.RawStr, "echo reply")
}

func TestDissectICMPv6AllTypes(t *testing.T) {
	src, dst := net.ParseIP("fe80::1"), net.ParseIP("fe80::2")

	for _, typ := range []uint8{
		layers.ICMPv6TypeEchoRequest,
		layers.ICMPv6TypeNeighborSolicitation,
		layers.ICMPv6TypeRouterAdvertisement,
	} {
		frame := CreateICMP6Frame(src, dst, typ)
		d := DissectEthernet(testIface, frame)
		require.NotNil(t, d, "type %d", typ)
		require.NotNil(t, d.Record.Icmp6, "type %d", typ)
		assert.Equal(t, typ, d.Record.Icmp6.TypeCode.Type())

		wantType := layers.CreateICMPv6TypeCode(typ, 0).String()
		assert.Contains(t, d.Record.Icmp6.RawStr, wantType)
	}
}

func TestDissectRejectsMalformed(t *testing.T) {
	// Too short for an Ethernet header.
	assert.Nil(t, DissectEthernet(testIface, []byte{0x01, 0x02, 0x03}))

	// Valid Ethernet header claiming IPv4 with a garbage payload.
	garbage := append(make([]byte, 12), 0x08, 0x00, 0xde, 0xad)
	assert.Nil(t, DissectEthernet(testIface, garbage))

	// Unsupported ethertype is ignored without a record.
	frame := CreateUDPFrame(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 1, 2, nil)
	frame[12], frame[13] = 0x88, 0xcc // LLDP
	assert.Nil(t, DissectEthernet(testIface, frame))
}

func TestDissectIsPure(t *testing.T) {
	frame := CreateUDPFrame(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 5000, 53, make([]byte, 24))
	first := DissectEthernet(testIface, frame)
	second := DissectEthernet(testIface, frame)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("dissection not deterministic: %s", diff)
	}
}

func TestSynthesizeFrameLoopback(t *testing.T) {
	inner := CreateUDPFrame(net.ParseIP("127.0.0.1"), net.ParseIP("127.0.0.1"), 9999, 53, []byte("x"))
	ipPayload := inner[14:]

	// Loopback captures carry a 14-byte pseudo header before the IP payload.
	raw := append(make([]byte, 14), ipPayload...)
	frame, ok := SynthesizeFrame(raw, true)
	require.True(t, ok)

	d := DissectEthernet("lo0", frame)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Udp)
	assert.Equal(t, uint16(9999), d.Record.Udp.SrcPort)
	assert.True(t, strings.HasPrefix(d.Record.Udp.RawStr, "[lo0]:"))
}

func TestSynthesizeFramePointToPoint(t *testing.T) {
	inner := CreateICMP6Frame(net.ParseIP("fe80::1"), net.ParseIP("fe80::2"), layers.ICMPv6TypeEchoRequest)
	ipPayload := inner[14:]

	frame, ok := SynthesizeFrame(ipPayload, false)
	require.True(t, ok)

	d := DissectEthernet("utun0", frame)
	require.NotNil(t, d)
	require.NotNil(t, d.Record.Icmp6)
}

func TestSynthesizeFrameRejectsNonIP(t *testing.T) {
	_, ok := SynthesizeFrame([]byte{0x12, 0x34, 0x56}, false)
	assert.False(t, ok)

	_, ok = SynthesizeFrame(make([]byte, 10), true)
	assert.False(t, ok)
}
