package synth

import (
	"bytes"
	"testing"

	"github.com/Ana-Mirza/dataplane-router/arp"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
	"github.com/Ana-Mirza/dataplane-router/ipv4"
	"github.com/Ana-Mirza/dataplane-router/ipv4/icmpv4"
)

var (
	routerMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	hostMAC   = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	routerIP  = [4]byte{10, 0, 0, 1}
	hostIP    = [4]byte{10, 0, 0, 2}
)

func TestEchoReplyRoundTrip(t *testing.T) {
	payload := []byte("ping")
	buf := make([]byte, linkdriverMaxFrame)
	n, err := EchoReply(buf, routerMAC, hostMAC, routerIP, hostIP, 7, 99, 1, payload)
	if err != nil {
		t.Fatalf("EchoReply: %v", err)
	}
	frame := buf[:n]

	efrm, err := ethernet.NewFrame(frame)
	if err != nil {
		t.Fatalf("ethernet.NewFrame: %v", err)
	}
	if *efrm.DestinationHardwareAddr() != hostMAC || *efrm.SourceHardwareAddr() != routerMAC {
		t.Fatal("unexpected ethernet addressing")
	}

	ifrm, err := ipv4.NewFrame(efrm.Payload())
	if err != nil {
		t.Fatalf("ipv4.NewFrame: %v", err)
	}
	if ifrm.CRC() != ifrm.CalculateHeaderCRC() {
		t.Fatal("bad ipv4 checksum")
	}
	if *ifrm.SourceAddr() != routerIP || *ifrm.DestinationAddr() != hostIP {
		t.Fatal("unexpected ipv4 addressing")
	}

	icfrm, err := icmpv4.NewFrame(ifrm.Payload())
	if err != nil {
		t.Fatalf("icmpv4.NewFrame: %v", err)
	}
	echo := icmpv4.FrameEcho{Frame: icfrm}
	if echo.Type() != icmpv4.TypeEchoReply {
		t.Fatalf("Type() = %v, want echo reply", echo.Type())
	}
	if echo.Identifier() != 99 || echo.SequenceNumber() != 1 {
		t.Fatal("id/seq not preserved")
	}
	if !bytes.Equal(echo.Data(), payload) {
		t.Fatalf("Data() = %q, want %q", echo.Data(), payload)
	}
}

func TestDestinationUnreachableEchoesTrigger(t *testing.T) {
	triggerHeader := make([]byte, 20)
	triggerHeader[0] = 0x45
	triggerPayload := []byte("0123456789abcdef") // longer than 8 bytes

	buf := make([]byte, linkdriverMaxFrame)
	n, err := DestinationUnreachable(buf, routerMAC, hostMAC, routerIP, hostIP, 3, triggerHeader, triggerPayload)
	if err != nil {
		t.Fatalf("DestinationUnreachable: %v", err)
	}
	frame := buf[:n]

	efrm, _ := ethernet.NewFrame(frame)
	ifrm, err := ipv4.NewFrame(efrm.Payload())
	if err != nil {
		t.Fatalf("ipv4.NewFrame: %v", err)
	}
	icfrm, err := icmpv4.NewFrame(ifrm.Payload())
	if err != nil {
		t.Fatalf("icmpv4.NewFrame: %v", err)
	}
	if icfrm.Type() != icmpv4.TypeDestinationUnreachable {
		t.Fatalf("Type() = %v", icfrm.Type())
	}
	body := icfrm.RawData()[4:]
	echoed := body[4:]
	if !bytes.Equal(echoed[:len(triggerHeader)], triggerHeader) {
		t.Fatal("triggering header not echoed back")
	}
	echoedPayload := echoed[len(triggerHeader):]
	if !bytes.Equal(echoedPayload, triggerPayload[:8]) {
		t.Fatalf("echoed payload = %q, want first 8 bytes of %q", echoedPayload, triggerPayload)
	}
}

func TestARPRequestReplyRoundTrip(t *testing.T) {
	buf := make([]byte, linkdriverMaxFrame)
	n, err := ARPRequest(buf, routerMAC, routerIP, hostIP)
	if err != nil {
		t.Fatalf("ARPRequest: %v", err)
	}
	efrm, _ := ethernet.NewFrame(buf[:n])
	if !efrm.IsBroadcast() {
		t.Fatal("ARP request should be broadcast")
	}
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		t.Fatalf("arp.NewFrame: %v", err)
	}
	if afrm.Operation() != arp.OpRequest {
		t.Fatalf("Operation() = %v, want request", afrm.Operation())
	}
	_, targetIP := afrm.Target4()
	if *targetIP != hostIP {
		t.Fatalf("target IP = %v, want %v", *targetIP, hostIP)
	}

	buf2 := make([]byte, linkdriverMaxFrame)
	n2, err := ARPReply(buf2, hostMAC, hostIP, routerMAC, routerIP)
	if err != nil {
		t.Fatalf("ARPReply: %v", err)
	}
	efrm2, _ := ethernet.NewFrame(buf2[:n2])
	if *efrm2.DestinationHardwareAddr() != routerMAC {
		t.Fatal("reply should be unicast to the original requester")
	}
	afrm2, err := arp.NewFrame(efrm2.Payload())
	if err != nil {
		t.Fatalf("arp.NewFrame: %v", err)
	}
	if afrm2.Operation() != arp.OpReply {
		t.Fatalf("Operation() = %v, want reply", afrm2.Operation())
	}
	senderHW, senderIP := afrm2.Sender4()
	if *senderHW != hostMAC || *senderIP != hostIP {
		t.Fatal("reply sender fields should identify the answering host")
	}
}

const linkdriverMaxFrame = 1600
