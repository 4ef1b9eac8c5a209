package netdump

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/zoza1982/netscanner/printer"
)

// Dissection is the result of decoding one Layer-2 frame that carried
// something we keep; Record is always set. Arp is set in addition to Record
// for ARP frames.
type Dissection struct {
	Record *PacketRecord
	Arp    *ArpObserved
}

// DissectEthernet decodes a raw Ethernet frame into a typed record. Malformed
// or unsupported frames yield nil; dissection never fails loudly. The function
// is pure apart from the warn log on malformed IPv6.
func DissectEthernet(ifaceName string, data []byte) *Dissection {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}

	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		return dissectIPv4(ifaceName, eth.Payload)
	case layers.EthernetTypeIPv6:
		return dissectIPv6(ifaceName, eth.Payload)
	case layers.EthernetTypeARP:
		return dissectARP(ifaceName, &eth)
	}
	return nil
}

func dissectIPv4(ifaceName string, data []byte) *Dissection {
	var ip4 layers.IPv4
	if err := ip4.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	return dissectTransport(ifaceName, ip4.SrcIP, ip4.DstIP, ip4.Protocol, ip4.Payload)
}

func dissectIPv6(ifaceName string, data []byte) *Dissection {
	var ip6 layers.IPv6
	if err := ip6.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		printer.Warningf("[%s]: malformed IPv6 packet\n", ifaceName)
		return nil
	}
	return dissectTransport(ifaceName, ip6.SrcIP, ip6.DstIP, ip6.NextHeader, ip6.Payload)
}

func dissectTransport(ifaceName string, src, dst net.IP, proto layers.IPProtocol, payload []byte) *Dissection {
	switch proto {
	case layers.IPProtocolUDP:
		return dissectUDP(ifaceName, src, dst, payload)
	case layers.IPProtocolTCP:
		return dissectTCP(ifaceName, src, dst, payload)
	case layers.IPProtocolICMPv4:
		return dissectICMP(ifaceName, src, dst, payload)
	case layers.IPProtocolICMPv6:
		return dissectICMPv6(ifaceName, src, dst, payload)
	}
	return nil
}

func dissectUDP(ifaceName string, src, dst net.IP, payload []byte) *Dissection {
	var udp layers.UDP
	if err := udp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	rawStr := fmt.Sprintf("[%s]: UDP Packet: %s:%d > %s:%d; length: %d",
		ifaceName, src, udp.SrcPort, dst, udp.DstPort, udp.Length)
	return &Dissection{Record: &PacketRecord{Udp: &UdpRecord{
		Iface:   ifaceName,
		SrcIP:   src,
		SrcPort: uint16(udp.SrcPort),
		DstIP:   dst,
		DstPort: uint16(udp.DstPort),
		Length:  udp.Length,
		RawStr:  rawStr,
	}}}
}

func dissectTCP(ifaceName string, src, dst net.IP, payload []byte) *Dissection {
	var tcp layers.TCP
	if err := tcp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	// Length is the full segment byte count as handed down by the IP layer,
	// matching what tcpdump-style tools report.
	rawStr := fmt.Sprintf("[%s]: TCP Packet: %s:%d > %s:%d; length: %d",
		ifaceName, src, tcp.SrcPort, dst, tcp.DstPort, len(payload))
	return &Dissection{Record: &PacketRecord{Tcp: &TcpRecord{
		Iface:   ifaceName,
		SrcIP:   src,
		SrcPort: uint16(tcp.SrcPort),
		DstIP:   dst,
		DstPort: uint16(tcp.DstPort),
		Length:  len(payload),
		RawStr:  rawStr,
	}}}
}

func dissectICMP(ifaceName string, src, dst net.IP, payload []byte) *Dissection {
	var icmp layers.ICMPv4
	if err := icmp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}

	var what string
	switch icmp.TypeCode.Type() {
	case layers.ICMPv4TypeEchoReply:
		what = "echo reply"
	case layers.ICMPv4TypeEchoRequest:
		what = "echo request"
	default:
		// Only echo messages are recorded.
		return nil
	}

	rawStr := fmt.Sprintf("[%s]: ICMP %s %s -> %s (seq=%d, id=%d)",
		ifaceName, what, src, dst, icmp.Seq, icmp.Id)
	return &Dissection{Record: &PacketRecord{Icmp: &IcmpRecord{
		Iface:    ifaceName,
		SrcIP:    src,
		DstIP:    dst,
		Seq:      icmp.Seq,
		ID:       icmp.Id,
		TypeCode: icmp.TypeCode,
		RawStr:   rawStr,
	}}}
}

func dissectICMPv6(ifaceName string, src, dst net.IP, payload []byte) *Dissection {
	var icmp6 layers.ICMPv6
	if err := icmp6.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	rawStr := fmt.Sprintf("[%s]: ICMPv6 packet %s -> %s (type=%s)",
		ifaceName, src, dst, icmp6.TypeCode)
	return &Dissection{Record: &PacketRecord{Icmp6: &Icmp6Record{
		Iface:    ifaceName,
		SrcIP:    src,
		DstIP:    dst,
		TypeCode: icmp6.TypeCode,
		RawStr:   rawStr,
	}}}
}

func arpOperationString(op uint16) string {
	switch op {
	case layers.ARPRequest:
		return "request"
	case layers.ARPReply:
		return "reply"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

func dissectARP(ifaceName string, eth *layers.Ethernet) *Dissection {
	var arp layers.ARP
	if err := arp.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}

	senderIP := net.IP(arp.SourceProtAddress)
	targetIP := net.IP(arp.DstProtAddress)

	// The record displays the Ethernet addresses; the discovery side channel
	// carries the ARP header addresses.
	rawStr := fmt.Sprintf("[%s]: ARP packet: %s(%s) > %s(%s); operation: %s",
		ifaceName, eth.SrcMAC, senderIP, eth.DstMAC, targetIP,
		arpOperationString(arp.Operation))

	return &Dissection{
		Record: &PacketRecord{Arp: &ArpRecord{
			Iface:     ifaceName,
			SrcMAC:    eth.SrcMAC,
			SrcIP:     senderIP,
			DstMAC:    eth.DstMAC,
			DstIP:     targetIP,
			Operation: arp.Operation,
			RawStr:    rawStr,
		}},
		Arp: &ArpObserved{
			SenderMAC: net.HardwareAddr(arp.SourceHwAddress),
			SenderIP:  senderIP,
			TargetMAC: net.HardwareAddr(arp.DstHwAddress),
			TargetIP:  targetIP,
		},
	}
}
