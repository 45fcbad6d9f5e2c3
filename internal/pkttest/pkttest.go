// Package pkttest builds well-formed Ethernet+IPv4(+ICMP) and Ethernet+ARP
// byte slices for table-driven tests, using the same typed frame
// constructors production code uses rather than hand-rolled byte literals.
package pkttest

import (
	"github.com/Ana-Mirza/dataplane-router"
	"github.com/Ana-Mirza/dataplane-router/arp"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
	"github.com/Ana-Mirza/dataplane-router/ipv4"
	"github.com/Ana-Mirza/dataplane-router/ipv4/icmpv4"
)

const (
	sizeHeaderEth  = 14
	sizeHeaderIPv4 = 20
	sizeHeaderICMP = 4
	sizeHeaderARP  = 28
)

// Gen holds the addressing used to stamp out generated packets. Zero value
// is usable but produces all-zero addresses.
type Gen struct {
	SrcMAC, DstMAC   [6]byte
	SrcIPv4, DstIPv4 [4]byte
}

// ICMPEchoRequest builds an Ethernet+IPv4+ICMP echo-request frame with TTL
// ttl and the given identifier/sequence/payload.
func (g Gen) ICMPEchoRequest(ttl uint8, id, seq uint16, payload []byte) []byte {
	total := sizeHeaderEth + sizeHeaderIPv4 + sizeHeaderICMP + 4 + len(payload)
	buf := make([]byte, total)

	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = g.DstMAC
	*efrm.SourceHardwareAddr() = g.SrcMAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	icmpLen := sizeHeaderICMP + 4 + len(payload)
	ifrm := g.writeIPv4(efrm.Payload(), lneto.IPProtoICMP, ttl, icmpLen)

	icfrm, err := icmpv4.NewFrame(ifrm.Payload()[:icmpLen])
	if err != nil {
		panic(err)
	}
	echo := icmpv4.FrameEcho{Frame: icfrm}
	echo.SetType(icmpv4.TypeEcho)
	echo.SetCode(0)
	echo.SetIdentifier(id)
	echo.SetSequenceNumber(seq)
	copy(echo.Data(), payload)
	var crc lneto.CRC791
	echo.CRCWrite(&crc)
	echo.SetCRC(crc.Sum16())

	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())
	return buf
}

// IPv4Datagram builds an Ethernet+IPv4 frame carrying an arbitrary protocol
// and payload, with a correct header checksum, for routing/TTL tests that
// don't care about the transport payload.
func (g Gen) IPv4Datagram(proto lneto.IPProto, ttl uint8, payload []byte) []byte {
	total := sizeHeaderEth + sizeHeaderIPv4 + len(payload)
	buf := make([]byte, total)

	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = g.DstMAC
	*efrm.SourceHardwareAddr() = g.SrcMAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	ifrm := g.writeIPv4(efrm.Payload(), proto, ttl, len(payload))
	copy(ifrm.Payload(), payload)
	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())
	return buf
}

func (g Gen) writeIPv4(buf []byte, proto lneto.IPProto, ttl uint8, payloadLen int) ipv4.Frame {
	ifrm, err := ipv4.NewFrame(buf[:sizeHeaderIPv4+payloadLen])
	if err != nil {
		panic(err)
	}
	ifrm.ClearHeader()
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTotalLength(uint16(sizeHeaderIPv4 + payloadLen))
	ifrm.SetTTL(ttl)
	ifrm.SetProtocol(proto)
	*ifrm.SourceAddr() = g.SrcIPv4
	*ifrm.DestinationAddr() = g.DstIPv4
	return ifrm
}

// ARPRequest builds an Ethernet+ARP request frame asking who owns
// targetIP, sent from g.SrcMAC/g.SrcIPv4.
func (g Gen) ARPRequest(targetIP [4]byte) []byte {
	buf := make([]byte, sizeHeaderEth+sizeHeaderARP)
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = ethernet.BroadcastAddr()
	*efrm.SourceHardwareAddr() = g.SrcMAC
	efrm.SetEtherType(ethernet.TypeARP)

	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		panic(err)
	}
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(arp.OpRequest)
	senderHW, senderIP := afrm.Sender4()
	*senderHW = g.SrcMAC
	*senderIP = g.SrcIPv4
	_, targetAddr := afrm.Target4()
	*targetAddr = targetIP
	return buf
}

// ARPReply builds an Ethernet+ARP reply frame answering a request from
// g.DstMAC/g.DstIPv4, asserting that g.SrcIPv4 resolves to g.SrcMAC.
func (g Gen) ARPReply() []byte {
	buf := make([]byte, sizeHeaderEth+sizeHeaderARP)
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = g.DstMAC
	*efrm.SourceHardwareAddr() = g.SrcMAC
	efrm.SetEtherType(ethernet.TypeARP)

	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		panic(err)
	}
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(arp.OpReply)
	senderHW, senderIP := afrm.Sender4()
	*senderHW = g.SrcMAC
	*senderIP = g.SrcIPv4
	targetHW, targetIP := afrm.Target4()
	*targetHW = g.DstMAC
	*targetIP = g.DstIPv4
	return buf
}
