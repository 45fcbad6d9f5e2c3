// Package rtable implements the static longest-prefix-match routing table:
// loaded once from a configuration file, immutable thereafter, and queried
// once per forwarded datagram.
package rtable

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// Route is one entry of the routing table: reach Prefix&Mask via NextHop,
// transmitting on OutIface.
type Route struct {
	Prefix   uint32
	Mask     uint32
	NextHop  uint32
	OutIface int
}

// maskBucket holds every route sharing one prefix length, sorted ascending
// by masked prefix so Lookup can binary search within it.
type maskBucket struct {
	mask   uint32
	routes []Route
}

// Table is an immutable routing table built once at startup. Routes are
// grouped into one sorted bucket per prefix length (lengths 0 through 32),
// and Lookup binary searches the buckets from longest prefix to shortest.
// A single sorted array binary searched with each candidate's own mask -
// the original router's approach - is not actually correct: the sort
// order it relies on is only consistent within one prefix length, so a
// query that must fall back from a specific subnet to a covering
// supernet can search right past the supernet's entry. Bucketing by
// length first keeps every comparison within a bucket that shares one
// mask, so the binary search inside it is sound, while the lookup as a
// whole stays logarithmic in the size of the table - the property that
// matters at the scale (hundreds of thousands of routes) a real
// installation's table reaches.
type Table struct {
	buckets [33]maskBucket
	size    int
}

// New builds a Table from an unordered slice of routes. It does not
// validate that routes are well formed; callers parsing from a file
// should use Load, which does.
func New(routes []Route) *Table {
	t := &Table{size: len(routes)}
	for _, r := range routes {
		b := &t.buckets[bits.OnesCount32(r.Mask)]
		b.mask = r.Mask
		b.routes = append(b.routes, r)
	}
	for i := range t.buckets {
		b := &t.buckets[i]
		sort.Slice(b.routes, func(i, j int) bool { return b.routes[i].Prefix < b.routes[j].Prefix })
	}
	return t
}

// Load parses a routing table file with one route per line in the format
// "prefix next_hop mask iface", all addresses in dotted-quad and iface as a
// small non-negative integer index into the router's interface list. Blank
// lines and lines starting with '#' are ignored.
func Load(r io.Reader) (*Table, error) {
	var routes []Route
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		route, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("rtable: line %d: %w", lineNo, err)
		}
		routes = append(routes, route)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rtable: %w", err)
	}
	return New(routes), nil
}

func parseLine(line string) (Route, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Route{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	prefix, err := parseAddr(fields[0])
	if err != nil {
		return Route{}, fmt.Errorf("prefix: %w", err)
	}
	nextHop, err := parseAddr(fields[1])
	if err != nil {
		return Route{}, fmt.Errorf("next_hop: %w", err)
	}
	mask, err := parseAddr(fields[2])
	if err != nil {
		return Route{}, fmt.Errorf("mask: %w", err)
	}
	iface, err := strconv.Atoi(fields[3])
	if err != nil || iface < 0 {
		return Route{}, fmt.Errorf("iface: invalid interface index %q", fields[3])
	}
	return Route{Prefix: prefix & mask, Mask: mask, NextHop: nextHop, OutIface: iface}, nil
}

func parseAddr(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	a4 := addr.As4()
	return uint32(a4[0])<<24 | uint32(a4[1])<<16 | uint32(a4[2])<<8 | uint32(a4[3]), nil
}

// Lookup returns the route with the longest mask matching ip, and reports
// whether a match was found. It tries each prefix length from 32 down to
// 0, binary searching that length's bucket for an exact match of ip
// masked to that length; the first hit is necessarily the longest match,
// since longer lengths are tried first.
func (t *Table) Lookup(ip uint32) (Route, bool) {
	for length := 32; length >= 0; length-- {
		b := &t.buckets[length]
		if len(b.routes) == 0 {
			continue
		}
		masked := ip & b.mask
		routes := b.routes
		i := sort.Search(len(routes), func(i int) bool { return routes[i].Prefix >= masked })
		if i < len(routes) && routes[i].Prefix == masked {
			return routes[i], true
		}
	}
	return Route{}, false
}

// Len returns the number of routes in the table.
func (t *Table) Len() int { return t.size }
