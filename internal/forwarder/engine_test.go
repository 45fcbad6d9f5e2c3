package forwarder

import (
	"net/netip"
	"testing"

	"github.com/Ana-Mirza/dataplane-router/arp"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
	"github.com/Ana-Mirza/dataplane-router/internal/linkdriver"
	"github.com/Ana-Mirza/dataplane-router/internal/pkttest"
	"github.com/Ana-Mirza/dataplane-router/internal/rtable"
	"github.com/Ana-Mirza/dataplane-router/ipv4"
	"github.com/Ana-Mirza/dataplane-router/ipv4/icmpv4"
)

var (
	r0MAC = [6]byte{0x02, 0, 0, 0, 0, 0x10}
	r1MAC = [6]byte{0x02, 0, 0, 0, 0, 0x11}
	r0IP  = [4]byte{10, 0, 0, 1}
	r1IP  = [4]byte{10, 0, 1, 1}

	hostMAC     = [6]byte{0x02, 0, 0, 0, 0, 0x20}
	hostIP      = [4]byte{10, 0, 0, 2}
	farNetNext  = [4]byte{10, 0, 1, 2}
	nextHopMAC  = [6]byte{0x02, 0, 0, 0, 0, 0x21}
)

func addr(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func newTestEngine() (*Engine, *linkdriver.Mock) {
	mock := linkdriver.NewMock(
		[][6]byte{r0MAC, r1MAC},
		[]netip.Addr{netip.AddrFrom4(r0IP), netip.AddrFrom4(r1IP)},
	)
	table := rtable.New([]rtable.Route{
		{Prefix: addr(10, 0, 1, 0), Mask: addr(255, 255, 255, 0), NextHop: 0, OutIface: 1},
	})
	return New(mock, table, nil), mock
}

func TestEchoRequestToRouterIsAnswered(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: r0MAC, SrcIPv4: hostIP, DstIPv4: r0IP}
	frame := gen.ICMPEchoRequest(64, 1, 1, []byte("hi"))

	e.HandleFrame(0, frame)

	if len(mock.Sent) != 1 {
		t.Fatalf("Sent = %d frames, want 1", len(mock.Sent))
	}
	reply := mock.Sent[0]
	if reply.Iface != 0 {
		t.Fatalf("reply sent on iface %d, want 0", reply.Iface)
	}
	efrm, _ := ethernet.NewFrame(reply.Bytes)
	if *efrm.DestinationHardwareAddr() != hostMAC {
		t.Fatal("reply not addressed back to the requesting host")
	}
	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	icfrm, _ := icmpv4.NewFrame(ifrm.Payload())
	if icmpv4.Type(icfrm.Type()) != icmpv4.TypeEchoReply {
		t.Fatalf("Type() = %v, want echo reply", icfrm.Type())
	}
}

func TestTTLExpiryEmitsTimeExceeded(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: r0MAC, SrcIPv4: hostIP, DstIPv4: farNetNext}
	frame := gen.ICMPEchoRequest(1, 1, 1, nil)

	e.HandleFrame(0, frame)

	if len(mock.Sent) != 1 {
		t.Fatalf("Sent = %d frames, want 1", len(mock.Sent))
	}
	efrm, _ := ethernet.NewFrame(mock.Sent[0].Bytes)
	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	icfrm, _ := icmpv4.NewFrame(ifrm.Payload())
	if icfrm.Type() != icmpv4.TypeTimeExceeded {
		t.Fatalf("Type() = %v, want time-exceeded", icfrm.Type())
	}
}

func TestRouteMissEmitsDestinationUnreachable(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: r0MAC, SrcIPv4: hostIP, DstIPv4: [4]byte{8, 8, 8, 8}}
	frame := gen.ICMPEchoRequest(64, 1, 1, nil)

	e.HandleFrame(0, frame)

	if len(mock.Sent) != 1 {
		t.Fatalf("Sent = %d frames, want 1", len(mock.Sent))
	}
	efrm, _ := ethernet.NewFrame(mock.Sent[0].Bytes)
	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	icfrm, _ := icmpv4.NewFrame(ifrm.Payload())
	if icfrm.Type() != icmpv4.TypeDestinationUnreachable {
		t.Fatalf("Type() = %v, want destination-unreachable", icfrm.Type())
	}
}

func TestForwardQueuesOnARPMissThenDrainsOnReply(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: r0MAC, SrcIPv4: hostIP, DstIPv4: farNetNext}
	frame := gen.ICMPEchoRequest(64, 1, 1, []byte("payload"))

	e.HandleFrame(0, frame)

	if e.queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1", e.queue.Len())
	}
	if len(mock.Sent) != 1 {
		t.Fatalf("Sent = %d, want 1 (the ARP request)", len(mock.Sent))
	}
	arpReqFrame, _ := ethernet.NewFrame(mock.Sent[0].Bytes)
	if arpReqFrame.EtherTypeOrSize() != ethernet.TypeARP {
		t.Fatal("expected an ARP request to have been sent")
	}

	replyGen := pkttest.Gen{SrcMAC: nextHopMAC, DstMAC: r1MAC, SrcIPv4: farNetNext, DstIPv4: r1IP}
	e.HandleFrame(1, replyGen.ARPReply())

	if e.queue.Len() != 0 {
		t.Fatalf("queue.Len() = %d, want 0 after drain", e.queue.Len())
	}
	if len(mock.Sent) != 2 {
		t.Fatalf("Sent = %d, want 2 (ARP request + forwarded datagram)", len(mock.Sent))
	}
	forwarded, _ := ethernet.NewFrame(mock.Sent[1].Bytes)
	if *forwarded.DestinationHardwareAddr() != nextHopMAC {
		t.Fatal("drained datagram not addressed to the resolved next hop")
	}
	if mock.Sent[1].Iface != 1 {
		t.Fatalf("drained datagram sent on iface %d, want 1", mock.Sent[1].Iface)
	}
}

func TestARPRequestForOurAddressIsAnswered(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: ethernet.BroadcastAddr(), SrcIPv4: hostIP, DstIPv4: r0IP}
	e.HandleFrame(0, gen.ARPRequest(r0IP))

	if len(mock.Sent) != 1 {
		t.Fatalf("Sent = %d, want 1", len(mock.Sent))
	}
	efrm, _ := ethernet.NewFrame(mock.Sent[0].Bytes)
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		t.Fatalf("arp.NewFrame: %v", err)
	}
	if afrm.Operation() != arp.OpReply {
		t.Fatalf("Operation() = %v, want reply", afrm.Operation())
	}
	senderHW, senderIP := afrm.Sender4()
	if *senderHW != r0MAC || *senderIP != r0IP {
		t.Fatal("reply did not identify the router as the address owner")
	}
}

func TestFrameNotAddressedToUsIsDropped(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, SrcIPv4: hostIP, DstIPv4: r0IP}
	e.HandleFrame(0, gen.ICMPEchoRequest(64, 1, 1, nil))
	if len(mock.Sent) != 0 {
		t.Fatal("frame addressed to a different MAC should be dropped")
	}
}

func TestBadChecksumIsDropped(t *testing.T) {
	e, mock := newTestEngine()
	gen := pkttest.Gen{SrcMAC: hostMAC, DstMAC: r0MAC, SrcIPv4: hostIP, DstIPv4: r0IP}
	frame := gen.ICMPEchoRequest(64, 1, 1, nil)
	// Corrupt a header byte without fixing up the checksum.
	frame[14+8] ^= 0xff // TTL byte
	e.HandleFrame(0, frame)
	if len(mock.Sent) != 0 {
		t.Fatal("frame with bad ipv4 checksum should be dropped")
	}
}
