package netdump

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"
)

// Offset of the IP payload inside frames read from a BSD loopback device,
// where the capture layer prepends a zeroed pseudo Ethernet header.
const loopbackPayloadOffset = 14

const ethernetHeaderLen = 14

// SynthesizeFrame wraps a raw IP payload captured on a loopback or
// point-to-point interface in a zeroed Ethernet header so the regular
// dissector tree can run on it. The IP version nibble picks the ethertype;
// anything that is neither IPv4 nor IPv6 is dropped (ok=false).
//
// Only BSD-family hosts deliver frames shaped like this; callers gate on the
// platform.
func SynthesizeFrame(data []byte, loopback bool) ([]byte, bool) {
	offset := 0
	if loopback {
		offset = loopbackPayloadOffset
	}
	if len(data) <= offset {
		return nil, false
	}
	payload := data[offset:]

	var ethertype layers.EthernetType
	switch payload[0] >> 4 {
	case 4:
		ethertype = layers.EthernetTypeIPv4
	case 6:
		ethertype = layers.EthernetTypeIPv6
	default:
		return nil, false
	}

	frame := make([]byte, ethernetHeaderLen+len(payload))
	binary.BigEndian.PutUint16(frame[12:14], uint16(ethertype))
	copy(frame[ethernetHeaderLen:], payload)
	return frame, true
}
