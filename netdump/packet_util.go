package netdump

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Frame builders used by tests. All of them serialize down to raw Ethernet
// frame bytes the way the capture worker would read them off the wire.

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buffer, opts, ls...); err != nil {
		panic(err)
	}
	return buffer.Bytes()
}

func ethernetLayer(ethertype layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{
		EthernetType: ethertype,
		SrcMAC:       net.HardwareAddr{0xFF, 0xAA, 0xFA, 0xAA, 0xFF, 0xAA},
		DstMAC:       net.HardwareAddr{0xBD, 0xBD, 0xBD, 0xBD, 0xBD, 0xBD},
	}
}

func CreateTCPFrame(src, dst net.IP, srcPort, dstPort int, payload []byte, seq uint32) []byte {
	return serialize(
		ethernetLayer(layers.EthernetTypeIPv4),
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: src, DstIP: dst},
		&layers.TCP{SrcPort: layers.TCPPort(srcPort), DstPort: layers.TCPPort(dstPort), Seq: seq, DataOffset: 5},
		gopacket.Payload(payload),
	)
}

func CreateUDPFrame(src, dst net.IP, srcPort, dstPort int, payload []byte) []byte {
	return serialize(
		ethernetLayer(layers.EthernetTypeIPv4),
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: src, DstIP: dst},
		&layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)},
		gopacket.Payload(payload),
	)
}

func CreateICMPEchoFrame(src, dst net.IP, icmpType uint8, id, seq uint16) []byte {
	return serialize(
		ethernetLayer(layers.EthernetTypeIPv4),
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolICMPv4, SrcIP: src, DstIP: dst},
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(icmpType, 0), Id: id, Seq: seq},
	)
}

func CreateICMP6Frame(src, dst net.IP, icmpType uint8) []byte {
	return serialize(
		ethernetLayer(layers.EthernetTypeIPv6),
		&layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolICMPv6, SrcIP: src, DstIP: dst},
		&layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(icmpType, 0)},
	)
}

func CreateARPFrame(senderMAC net.HardwareAddr, senderIP net.IP, targetMAC net.HardwareAddr, targetIP net.IP, operation uint16) []byte {
	eth := ethernetLayer(layers.EthernetTypeARP)
	eth.SrcMAC = senderMAC
	return serialize(
		eth,
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         operation,
			SourceHwAddress:   senderMAC,
			SourceProtAddress: senderIP.To4(),
			DstHwAddress:      targetMAC,
			DstProtAddress:    targetIP.To4(),
		},
	)
}
