package netdump

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketTypeCycleRoundTrip(t *testing.T) {
	// next-then-previous returns the original everywhere except at the
	// boundaries, where both directions saturate.
	for _, pt := range PacketTypes() {
		if pt == Icmp6 {
			continue
		}
		assert.Equal(t, pt, pt.Next().Previous(), "round trip from %s", pt)
	}
}

func TestPacketTypeSaturates(t *testing.T) {
	assert.Equal(t, Icmp6, Icmp6.Next())
	assert.Equal(t, All, All.Previous())
}

func TestPacketTypeOrder(t *testing.T) {
	got := All
	var walked []PacketType
	for {
		walked = append(walked, got)
		next := got.Next()
		if next == got {
			break
		}
		got = next
	}
	assert.Equal(t, PacketTypes(), walked)
}

func TestTabCycleWraps(t *testing.T) {
	assert.Equal(t, TabPackets, TabDiscovery.Next())
	assert.Equal(t, TabPorts, TabPackets.Next())
	assert.Equal(t, TabDiscovery, TabPorts.Next())
}

func TestRecordKindAndRawStr(t *testing.T) {
	rec := &PacketRecord{Udp: &UdpRecord{RawStr: "udp line"}}
	assert.Equal(t, Udp, rec.Kind())
	assert.Equal(t, "udp line", rec.RawStr())

	rec = &PacketRecord{Arp: &ArpRecord{RawStr: "arp line"}}
	assert.Equal(t, Arp, rec.Kind())
	assert.Equal(t, "arp line", rec.RawStr())

	rec = &PacketRecord{Icmp6: &Icmp6Record{RawStr: "icmp6 line"}}
	assert.Equal(t, Icmp6, rec.Kind())
}
