// Package forwarder implements the router's single-threaded forwarding
// pipeline: one Engine reads frames from a linkdriver.Driver, classifies
// them, and either delivers, forwards, queues or drops them, synthesizing
// ICMP and ARP replies as needed.
package forwarder

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/Ana-Mirza/dataplane-router"
	"github.com/Ana-Mirza/dataplane-router/arp"
	"github.com/Ana-Mirza/dataplane-router/ethernet"
	ilog "github.com/Ana-Mirza/dataplane-router/internal"
	"github.com/Ana-Mirza/dataplane-router/internal/arpcache"
	"github.com/Ana-Mirza/dataplane-router/internal/linkdriver"
	"github.com/Ana-Mirza/dataplane-router/internal/metrics"
	"github.com/Ana-Mirza/dataplane-router/internal/pending"
	"github.com/Ana-Mirza/dataplane-router/internal/rtable"
	"github.com/Ana-Mirza/dataplane-router/internal/synth"
	"github.com/Ana-Mirza/dataplane-router/ipv4"
	"github.com/Ana-Mirza/dataplane-router/ipv4/icmpv4"
)

// Engine is the single-threaded forwarding loop. It is not safe for
// concurrent use: Run and HandleFrame must not be called from more than
// one goroutine at a time, mirroring the original router's single
// select-loop design.
type Engine struct {
	driver linkdriver.Driver
	table  *rtable.Table
	arp    *arpcache.Cache
	queue  pending.Queue
	log    *slog.Logger

	nextIPID uint16

	v      lneto.Validator
	sendBuf [linkdriver.MaxFrameLen]byte
}

// New returns an Engine ready to run, forwarding according to table and
// resolving link addresses through driver.
func New(driver linkdriver.Driver, table *rtable.Table, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		driver: driver,
		table:  table,
		arp:    arpcache.New(),
		log:    log,
	}
}

// Run reads frames from the driver until ctx is cancelled or the driver
// reports an error. It blocks the calling goroutine.
func (e *Engine) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			e.driver.Close()
		case <-stop:
		}
	}()

	var recvBuf [linkdriver.MaxFrameLen]byte
	for {
		iface, n, err := e.driver.RecvAny(recvBuf[:])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		e.HandleFrame(iface, recvBuf[:n])
	}
}

// HandleFrame processes one Ethernet frame received on iface. It never
// blocks and never retains buf past the call, so callers (including tests)
// may reuse the backing array immediately after it returns.
func (e *Engine) HandleFrame(iface int, buf []byte) {
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		e.drop("short ethernet frame", err)
		return
	}
	e.v.ResetErr()
	efrm.ValidateSize(&e.v)
	if e.v.HasError() {
		e.drop("invalid ethernet frame", e.v.Err())
		return
	}

	ourMAC, err := e.driver.InterfaceMAC(iface)
	if err != nil {
		e.drop("interface has no MAC", err)
		return
	}
	if !efrm.IsBroadcast() && *efrm.DestinationHardwareAddr() != ourMAC {
		e.drop("not addressed to us", nil)
		return
	}

	switch efrm.EtherTypeOrSize() {
	case ethernet.TypeIPv4:
		e.handleIPv4(iface, efrm)
	case ethernet.TypeARP:
		e.handleARP(iface, efrm)
	default:
		e.drop("unsupported ethertype", nil)
	}
}

func (e *Engine) drop(reason string, err error) {
	metrics.FramesTotal.WithLabelValues(metrics.ResultDropped).Inc()
	if err != nil {
		e.log.Debug("dropping frame", "reason", reason, "error", err)
	} else {
		e.log.Debug("dropping frame", "reason", reason)
	}
}

func (e *Engine) handleIPv4(iface int, efrm ethernet.Frame) {
	ifrm, err := ipv4.NewFrame(efrm.Payload())
	if err != nil {
		e.drop("short ipv4 header", err)
		return
	}
	e.v.ResetErr()
	ifrm.ValidateExceptCRC(&e.v)
	if e.v.HasError() {
		e.drop("invalid ipv4 header", e.v.Err())
		return
	}
	if ifrm.CRC() != ifrm.CalculateHeaderCRC() {
		e.drop("bad ipv4 checksum", nil)
		return
	}

	ourIP, err := e.driver.InterfaceIPv4(iface)
	if err != nil {
		e.drop("interface has no IPv4 address", err)
		return
	}

	if ifrm.TTL() <= 1 {
		e.sendICMPError(iface, efrm, ifrm, synth.TimeExceeded)
		metrics.ICMPSentTotal.WithLabelValues("time-exceeded").Inc()
		return
	}
	ifrm.SetTTL(ifrm.TTL() - 1)

	dst := *ifrm.DestinationAddr()
	if dst == ourIP.As4() {
		e.deliverLocal(iface, efrm, ifrm)
		return
	}

	route, ok := e.table.Lookup(ip4ToUint32(dst))
	if !ok {
		e.sendICMPError(iface, efrm, ifrm, synth.DestinationUnreachable)
		metrics.ICMPSentTotal.WithLabelValues("destination-unreachable").Inc()
		return
	}

	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	outMAC, err := e.driver.InterfaceMAC(route.OutIface)
	if err != nil {
		e.drop("out interface has no MAC", err)
		return
	}
	*efrm.SourceHardwareAddr() = outMAC

	hop := route.NextHop
	if hop == 0 {
		hop = ip4ToUint32(dst)
	}
	e.forwardOrQueue(efrm, route.OutIface, hop)
}

// deliverLocal handles a datagram addressed to the interface it arrived on:
// only ICMP echo requests are answered, everything else is dropped
// silently, matching the router's lack of any higher-level protocol stack.
func (e *Engine) deliverLocal(iface int, efrm ethernet.Frame, ifrm ipv4.Frame) {
	if ifrm.Protocol() != lneto.IPProtoICMP {
		e.drop("no listener for protocol", nil)
		return
	}
	icfrm, err := icmpv4.NewFrame(ifrm.Payload())
	if err != nil {
		e.drop("short icmp message", err)
		return
	}
	if icfrm.Type() != icmpv4.TypeEcho {
		e.drop("unsupported icmp type for local delivery", nil)
		return
	}
	echo := icmpv4.FrameEcho{Frame: icfrm}

	ourMAC, err := e.driver.InterfaceMAC(iface)
	if err != nil {
		e.drop("interface has no MAC", err)
		return
	}
	ourIP, _ := e.driver.InterfaceIPv4(iface)

	n, err := synth.EchoReply(e.sendBuf[:],
		ourMAC, *efrm.SourceHardwareAddr(),
		ourIP.As4(), *ifrm.SourceAddr(),
		e.nextID(), echo.Identifier(), echo.SequenceNumber(), echo.Data())
	if err != nil {
		e.drop("failed to build echo reply", err)
		return
	}
	if err := e.driver.Send(iface, e.sendBuf[:n]); err != nil {
		e.drop("failed to send echo reply", err)
		return
	}
	metrics.ICMPSentTotal.WithLabelValues("echo-reply").Inc()
	metrics.FramesTotal.WithLabelValues(metrics.ResultDelivered).Inc()
}

// sendICMPError replies on the same interface the triggering datagram
// arrived on, addressed directly back to its Ethernet and IP source.
func (e *Engine) sendICMPError(iface int, efrm ethernet.Frame, ifrm ipv4.Frame,
	build func(buf []byte, srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, ipID uint16, triggerHeader, triggerPayload []byte) (int, error)) {

	ourMAC, err := e.driver.InterfaceMAC(iface)
	if err != nil {
		e.drop("interface has no MAC", err)
		return
	}
	ourIP, err := e.driver.InterfaceIPv4(iface)
	if err != nil {
		e.drop("interface has no IPv4 address", err)
		return
	}
	header := ifrm.RawData()[:ifrm.HeaderLength()]
	n, err := build(e.sendBuf[:], ourMAC, *efrm.SourceHardwareAddr(), ourIP.As4(), *ifrm.SourceAddr(),
		e.nextID(), header, ifrm.Payload())
	if err != nil {
		e.drop("failed to build icmp error", err)
		return
	}
	if err := e.driver.Send(iface, e.sendBuf[:n]); err != nil {
		e.drop("failed to send icmp error", err)
	}
}

// forwardOrQueue resolves hop's MAC address on outIface and either sends
// the frame immediately or buffers it and issues an ARP request.
func (e *Engine) forwardOrQueue(efrm ethernet.Frame, outIface int, hop uint32) {
	if mac, ok := e.arp.Lookup(hop); ok {
		*efrm.DestinationHardwareAddr() = mac
		if err := e.driver.Send(outIface, efrm.RawData()); err != nil {
			e.drop("failed to send forwarded frame", err)
			return
		}
		hopAddr := uint32ToIP4(hop)
		e.log.Debug("forwarded datagram", ilog.SlogAddr4("next_hop", &hopAddr), ilog.SlogAddr6("next_hop_mac", &mac), "out_iface", outIface)
		metrics.FramesTotal.WithLabelValues(metrics.ResultForwarded).Inc()
		return
	}

	e.queue.Enqueue(efrm.RawData(), outIface, hop)
	metrics.PendingQueueDepth.Set(float64(e.queue.Len()))
	metrics.FramesTotal.WithLabelValues(metrics.ResultQueued).Inc()

	outMAC, err := e.driver.InterfaceMAC(outIface)
	if err != nil {
		e.drop("out interface has no MAC", err)
		return
	}
	outIP, err := e.driver.InterfaceIPv4(outIface)
	if err != nil {
		e.drop("out interface has no IPv4 address", err)
		return
	}
	n, err := synth.ARPRequest(e.sendBuf[:], outMAC, outIP.As4(), uint32ToIP4(hop))
	if err != nil {
		e.drop("failed to build arp request", err)
		return
	}
	if err := e.driver.Send(outIface, e.sendBuf[:n]); err != nil {
		e.drop("failed to send arp request", err)
	}
}

func (e *Engine) handleARP(iface int, efrm ethernet.Frame) {
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		e.drop("short arp packet", err)
		return
	}
	e.v.ResetErr()
	afrm.ValidateSize(&e.v)
	if e.v.HasError() {
		e.drop("invalid arp packet", e.v.Err())
		return
	}

	senderHW, senderIP := afrm.Sender4()
	switch afrm.Operation() {
	case arp.OpReply:
		e.arp.Insert(ip4ToUint32(*senderIP), *senderHW)
		metrics.ARPCacheSize.Set(float64(e.arp.Len()))
		e.drainPending()
		metrics.FramesTotal.WithLabelValues(metrics.ResultDelivered).Inc()

	case arp.OpRequest:
		_, targetIP := afrm.Target4()
		ourIP, err := e.driver.InterfaceIPv4(iface)
		if err != nil || ourIP.As4() != *targetIP {
			e.drop("arp request not for our address", nil)
			return
		}
		ourMAC, err := e.driver.InterfaceMAC(iface)
		if err != nil {
			e.drop("interface has no MAC", err)
			return
		}
		n, err := synth.ARPReply(e.sendBuf[:], ourMAC, ourIP.As4(), *senderHW, *senderIP)
		if err != nil {
			e.drop("failed to build arp reply", err)
			return
		}
		if err := e.driver.Send(iface, e.sendBuf[:n]); err != nil {
			e.drop("failed to send arp reply", err)
			return
		}
		metrics.FramesTotal.WithLabelValues(metrics.ResultDelivered).Inc()

	default:
		e.drop("unsupported arp operation", nil)
	}
}

// drainPending resends every queued datagram whose next hop is now
// resolvable, implementing the drain-all policy for ARP replies.
func (e *Engine) drainPending() {
	e.queue.Drain(func(d pending.Datagram) bool {
		mac, ok := e.arp.Lookup(d.NextHop)
		if !ok {
			return false
		}
		efrm, err := ethernet.NewFrame(d.Bytes)
		if err != nil {
			e.log.Warn("dropping malformed pending datagram", "error", err)
			return true
		}
		*efrm.DestinationHardwareAddr() = mac
		if err := e.driver.Send(d.OutIface, d.Bytes); err != nil {
			e.log.Warn("failed to send drained datagram", "error", err)
			return true
		}
		metrics.FramesTotal.WithLabelValues(metrics.ResultForwarded).Inc()
		return true
	})
	metrics.PendingQueueDepth.Set(float64(e.queue.Len()))
}

func (e *Engine) nextID() uint16 {
	e.nextIPID++
	return e.nextIPID
}

func ip4ToUint32(a [4]byte) uint32 { return binary.BigEndian.Uint32(a[:]) }

func uint32ToIP4(v uint32) (a [4]byte) {
	binary.BigEndian.PutUint32(a[:], v)
	return a
}
