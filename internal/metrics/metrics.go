// Package metrics exposes the router's Prometheus instrumentation:
// counters and gauges updated by the forwarding engine and scraped over
// the optional metrics HTTP listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelResult = "result"
	labelType   = "type"

	ResultForwarded = "forwarded"
	ResultDelivered = "delivered"
	ResultDropped   = "dropped"
	ResultQueued    = "queued"
)

var (
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_frames_total",
			Help: "Total number of Ethernet frames processed by the forwarding engine, by outcome",
		},
		[]string{labelResult},
	)

	ICMPSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_icmp_sent_total",
			Help: "Total number of ICMP messages originated by the router, by type",
		},
		[]string{labelType},
	)

	ARPCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_arp_cache_size",
			Help: "Number of entries currently held in the ARP cache",
		},
	)

	PendingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_pending_queue_depth",
			Help: "Number of datagrams currently buffered awaiting ARP resolution",
		},
	)
)
