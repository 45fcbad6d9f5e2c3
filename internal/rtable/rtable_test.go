package rtable

import (
	"strings"
	"testing"
)

func addr(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func TestLookupLongestPrefixWins(t *testing.T) {
	table := New([]Route{
		{Prefix: addr(10, 0, 0, 0), Mask: addr(255, 0, 0, 0), OutIface: 0},
		{Prefix: addr(10, 0, 1, 0), Mask: addr(255, 255, 255, 0), OutIface: 1},
		{Prefix: addr(192, 168, 1, 0), Mask: addr(255, 255, 255, 0), OutIface: 2},
	})

	tests := []struct {
		name    string
		ip      uint32
		wantOK  bool
		wantIfc int
	}{
		{"exact subnet beats supernet", addr(10, 0, 1, 5), true, 1},
		{"falls back to supernet", addr(10, 0, 2, 5), true, 0},
		{"unrelated network", addr(192, 168, 1, 1), true, 2},
		{"no match", addr(8, 8, 8, 8), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := table.Lookup(tt.ip)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%d) ok = %v, want %v", tt.ip, ok, tt.wantOK)
			}
			if ok && route.OutIface != tt.wantIfc {
				t.Fatalf("Lookup(%d) iface = %d, want %d", tt.ip, route.OutIface, tt.wantIfc)
			}
		})
	}
}

func TestLookupEmptyTable(t *testing.T) {
	table := New(nil)
	if _, ok := table.Lookup(addr(1, 2, 3, 4)); ok {
		t.Fatal("empty table should never match")
	}
}

func TestLoadParsesAndSorts(t *testing.T) {
	data := `# comment
10.0.0.0 0.0.0.0 255.0.0.0 0

192.168.1.0 192.168.1.1 255.255.255.0 1
`
	table, err := Load(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	route, ok := table.Lookup(addr(192, 168, 1, 42))
	if !ok || route.OutIface != 1 {
		t.Fatalf("Lookup = %+v, %v", route, ok)
	}
	route, ok = table.Lookup(addr(192, 168, 1, 42))
	if !ok || route.NextHop != addr(192, 168, 1, 1) {
		t.Fatalf("unexpected next hop: %+v", route)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(strings.NewReader("not a valid line\n"))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("error should name the offending line, got: %v", err)
	}
}
