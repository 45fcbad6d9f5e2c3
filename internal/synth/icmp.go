// Package synth builds the small set of Ethernet+IPv4(+ICMP) and
// Ethernet+ARP frames the router originates itself: ICMP echo replies and
// error messages, and ARP requests and replies.
package synth

import (
	"fmt"

	"github.com/Ana-Mirza/dataplane-router"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
	"github.com/Ana-Mirza/dataplane-router/ipv4"
	"github.com/Ana-Mirza/dataplane-router/ipv4/icmpv4"
)

const (
	ipv4HeaderLen   = 20
	icmpHeaderLen   = 4
	defaultRouteTTL = 64
)

// EchoReply builds a complete Ethernet+IPv4+ICMP echo-reply frame into buf
// and returns the number of bytes written. id/seq are copied verbatim from
// the triggering echo request, per RFC 792. data is the echo payload to
// mirror back.
func EchoReply(buf []byte, srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, ipID uint16, icmpID, icmpSeq uint16, data []byte) (int, error) {
	total := ethernetHeaderLen + ipv4HeaderLen + icmpHeaderLen + 4 + len(data)
	if len(buf) < total {
		return 0, fmt.Errorf("synth: buffer too small for echo reply: need %d, have %d", total, len(buf))
	}
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.DestinationHardwareAddr() = dstMAC
	*efrm.SourceHardwareAddr() = srcMAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	icmpLen := icmpHeaderLen + 4 + len(data)
	writeIPv4Header(ifrm, srcIP, dstIP, ipID, uint16(icmpLen), defaultRouteTTL)

	icfrm, err := icmpv4.NewFrame(ifrm.Payload()[:icmpLen])
	if err != nil {
		return 0, err
	}
	echo := icmpv4.FrameEcho{Frame: icfrm}
	echo.SetType(icmpv4.TypeEchoReply)
	echo.SetCode(0)
	echo.SetIdentifier(icmpID)
	echo.SetSequenceNumber(icmpSeq)
	copy(echo.Data(), data)

	var crc lneto.CRC791
	echo.CRCWrite(&crc)
	echo.SetCRC(0)
	echo.SetCRC(crc.Sum16())

	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	return total, nil
}

// errorBodyFixedLen is the unused 4-byte field that precedes the echoed
// header in ICMP destination-unreachable and time-exceeded messages.
const errorBodyFixedLen = 4

// errorReply builds an Ethernet+IPv4+ICMP error message whose body repeats
// the triggering datagram's IPv4 header plus the first 8 bytes of its
// payload, per RFC 792.
func errorReply(buf []byte, typ icmpv4.Type, code uint8, srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, ipID uint16, triggerHeader []byte, triggerPayload []byte) (int, error) {
	echoedPayload := triggerPayload
	if len(echoedPayload) > 8 {
		echoedPayload = echoedPayload[:8]
	}
	bodyLen := errorBodyFixedLen + len(triggerHeader) + len(echoedPayload)
	total := ethernetHeaderLen + ipv4HeaderLen + icmpHeaderLen + bodyLen
	if len(buf) < total {
		return 0, fmt.Errorf("synth: buffer too small for ICMP error: need %d, have %d", total, len(buf))
	}
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.DestinationHardwareAddr() = dstMAC
	*efrm.SourceHardwareAddr() = srcMAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	icmpLen := icmpHeaderLen + bodyLen
	writeIPv4Header(ifrm, srcIP, dstIP, ipID, uint16(icmpLen), defaultRouteTTL)

	icfrm, err := icmpv4.NewFrame(ifrm.Payload()[:icmpLen])
	if err != nil {
		return 0, err
	}
	icfrm.SetType(typ)
	icfrm.SetCode(code)
	body := icfrm.RawData()[icmpHeaderLen:]
	for i := range body[:errorBodyFixedLen] {
		body[i] = 0
	}
	n := copy(body[errorBodyFixedLen:], triggerHeader)
	copy(body[errorBodyFixedLen+n:], echoedPayload)

	var crc lneto.CRC791
	icfrm.CRCWrite(&crc)
	icfrm.SetCRC(0)
	icfrm.SetCRC(crc.Sum16())

	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	return total, nil
}

// DestinationUnreachable builds an ICMP type-3 reply for a datagram that
// matched no route.
func DestinationUnreachable(buf []byte, srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, ipID uint16, triggerHeader, triggerPayload []byte) (int, error) {
	return errorReply(buf, icmpv4.TypeDestinationUnreachable, uint8(icmpv4.CodeHostUnreachable), srcMAC, dstMAC, srcIP, dstIP, ipID, triggerHeader, triggerPayload)
}

// TimeExceeded builds an ICMP type-11 reply for a datagram whose TTL
// reached zero or one.
func TimeExceeded(buf []byte, srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, ipID uint16, triggerHeader, triggerPayload []byte) (int, error) {
	return errorReply(buf, icmpv4.TypeTimeExceeded, uint8(icmpv4.CodeExceededInTransit), srcMAC, dstMAC, srcIP, dstIP, ipID, triggerHeader, triggerPayload)
}

func writeIPv4Header(ifrm ipv4.Frame, srcIP, dstIP [4]byte, id, payloadLen uint16, ttl uint8) {
	ifrm.ClearHeader()
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetToS(0)
	ifrm.SetTotalLength(ipv4HeaderLen + payloadLen)
	ifrm.SetID(id)
	ifrm.SetFlags(0)
	ifrm.SetTTL(ttl)
	ifrm.SetProtocol(lneto.IPProtoICMP)
	*ifrm.SourceAddr() = srcIP
	*ifrm.DestinationAddr() = dstIP
}

const ethernetHeaderLen = 14
