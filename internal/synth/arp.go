package synth

import (
	"fmt"

	"github.com/Ana-Mirza/dataplane-router/arp"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
)

const arpFrameLen = ethernetHeaderLen + 28 // 28: ARP(IPv4) header per RFC 826

// ARPRequest builds an Ethernet+ARP request asking who owns targetIP,
// broadcast from srcMAC/srcIP. See §4.6.
func ARPRequest(buf []byte, srcMAC [6]byte, srcIP [4]byte, targetIP [4]byte) (int, error) {
	if len(buf) < arpFrameLen {
		return 0, fmt.Errorf("synth: buffer too small for ARP request: need %d, have %d", arpFrameLen, len(buf))
	}
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.DestinationHardwareAddr() = ethernet.BroadcastAddr()
	*efrm.SourceHardwareAddr() = srcMAC
	efrm.SetEtherType(ethernet.TypeARP)

	afrm, err := arp.NewFrame(efrm.Payload()[:28])
	if err != nil {
		return 0, err
	}
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(arp.OpRequest)
	senderHW, senderIP := afrm.Sender4()
	*senderHW = srcMAC
	*senderIP = srcIP
	_, targetAddr := afrm.Target4()
	*targetAddr = targetIP
	return arpFrameLen, nil
}

// ARPReply builds an Ethernet+ARP reply from srcMAC/srcIP answering a
// request whose sender was dstMAC/dstIP. See §4.4 ARP handler, request case.
func ARPReply(buf []byte, srcMAC [6]byte, srcIP [4]byte, dstMAC [6]byte, dstIP [4]byte) (int, error) {
	if len(buf) < arpFrameLen {
		return 0, fmt.Errorf("synth: buffer too small for ARP reply: need %d, have %d", arpFrameLen, len(buf))
	}
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.DestinationHardwareAddr() = dstMAC
	*efrm.SourceHardwareAddr() = srcMAC
	efrm.SetEtherType(ethernet.TypeARP)

	afrm, err := arp.NewFrame(efrm.Payload()[:28])
	if err != nil {
		return 0, err
	}
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(arp.OpReply)
	senderHW, senderIP := afrm.Sender4()
	*senderHW = srcMAC
	*senderIP = srcIP
	targetHW, targetIP := afrm.Target4()
	*targetHW = dstMAC
	*targetIP = dstIP
	return arpFrameLen, nil
}
