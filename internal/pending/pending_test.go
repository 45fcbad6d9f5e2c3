package pending

import "testing"

func TestEnqueueCopiesBytes(t *testing.T) {
	var q Queue
	src := []byte{1, 2, 3}
	q.Enqueue(src, 0, 42)
	src[0] = 0xff
	if q.items[0].Bytes[0] != 1 {
		t.Fatal("Enqueue must copy, not alias, the caller's buffer")
	}
}

func TestDrainAllResolvable(t *testing.T) {
	var q Queue
	q.Enqueue([]byte{1}, 0, 10)
	q.Enqueue([]byte{2}, 0, 20)
	q.Enqueue([]byte{3}, 0, 10)

	var sent []uint32
	q.Drain(func(d Datagram) bool {
		if d.NextHop == 10 {
			sent = append(sent, d.NextHop)
			return true
		}
		return false
	})
	if len(sent) != 2 {
		t.Fatalf("expected both next-hop-10 datagrams drained, got %d", len(sent))
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (the unresolved next-hop-20 datagram)", q.Len())
	}
	if q.items[0].NextHop != 20 {
		t.Fatalf("remaining datagram has next hop %d, want 20", q.items[0].NextHop)
	}
}

func TestDrainPreservesOrderOfUnresolved(t *testing.T) {
	var q Queue
	q.Enqueue([]byte{1}, 0, 1)
	q.Enqueue([]byte{2}, 0, 2)
	q.Enqueue([]byte{3}, 0, 3)

	q.Drain(func(d Datagram) bool { return d.NextHop == 2 })

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	if q.items[0].NextHop != 1 || q.items[1].NextHop != 3 {
		t.Fatalf("order not preserved: %+v", q.items)
	}
}

func TestDrainEmptyQueueIsNoop(t *testing.T) {
	var q Queue
	called := false
	q.Drain(func(Datagram) bool { called = true; return true })
	if called {
		t.Fatal("Drain should not invoke resolve on an empty queue")
	}
}
