package arpcache

import "testing"

func TestLookupMiss(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(1); ok {
		t.Fatal("empty cache should never hit")
	}
}

func TestInsertAndLookup(t *testing.T) {
	c := New()
	mac := [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	c.Insert(10, mac)
	got, ok := c.Lookup(10)
	if !ok || got != mac {
		t.Fatalf("Lookup(10) = %v, %v, want %v, true", got, ok, mac)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestInsertFirstMatchWins(t *testing.T) {
	c := New()
	first := [6]byte{1, 1, 1, 1, 1, 1}
	second := [6]byte{2, 2, 2, 2, 2, 2}
	c.Insert(10, first)
	c.Insert(10, second)
	got, ok := c.Lookup(10)
	if !ok || got != first {
		t.Fatalf("Lookup(10) = %v, %v, want first entry %v", got, ok, first)
	}
}

func TestGrowthPastInitialCapacity(t *testing.T) {
	c := New()
	for i := uint32(0); i < initialCapacity+10; i++ {
		c.Insert(i, [6]byte{byte(i)})
	}
	if c.Len() != initialCapacity+10 {
		t.Fatalf("Len() = %d, want %d", c.Len(), initialCapacity+10)
	}
	for i := uint32(0); i < initialCapacity+10; i++ {
		mac, ok := c.Lookup(i)
		if !ok || mac[0] != byte(i) {
			t.Fatalf("Lookup(%d) = %v, %v", i, mac, ok)
		}
	}
}
