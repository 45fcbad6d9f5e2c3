// Package pending implements the FIFO queue of datagrams buffered while
// their next-hop MAC address is unresolved.
package pending

// Datagram is one buffered datagram awaiting ARP resolution before it can
// be forwarded. Bytes is an owned copy: the queue, not the caller, is
// responsible for its lifetime once enqueued.
type Datagram struct {
	Bytes    []byte
	OutIface int
	NextHop  uint32
}

// Queue is an unbounded FIFO of pending Datagrams. The zero value is ready
// to use.
type Queue struct {
	items []Datagram
}

// Enqueue appends a datagram to the tail of the queue. bytes is copied so
// the caller's receive buffer can be reused immediately.
func (q *Queue) Enqueue(bytes []byte, outIface int, nextHop uint32) {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	q.items = append(q.items, Datagram{Bytes: cp, OutIface: outIface, NextHop: nextHop})
}

// Len returns the number of datagrams currently queued.
func (q *Queue) Len() int { return len(q.items) }

// Drain calls resolve for each queued datagram in FIFO order. If resolve
// reports ok, the datagram is removed from the queue; otherwise it is kept,
// preserving its position relative to other unresolved datagrams. This
// implements the drain-all policy decided for ARP replies: every datagram
// whose next hop is now resolvable is sent, not just the first (see design
// notes on the ARP reply drain policy).
func (q *Queue) Drain(resolve func(Datagram) (ok bool)) {
	if len(q.items) == 0 {
		return
	}
	kept := q.items[:0]
	for _, d := range q.items {
		if !resolve(d) {
			kept = append(kept, d)
		}
	}
	q.items = kept
}
