// Package arpcache implements the router's IPv4-to-MAC resolution cache: an
// append-only table with no eviction or expiry, grown in entries (not
// bytes) as it fills.
package arpcache

// initialCapacity mirrors the original implementation's starting
// arp_table_capacity of 100 entries.
const initialCapacity = 100

// entry is one resolved IPv4-to-MAC binding.
type entry struct {
	ip  uint32
	mac [6]byte
}

// Cache is a linear-scan ARP table. The zero value is not usable; use New.
// Entries are never evicted or expired (see design notes on ARP entry
// expiry): the cache's size is the caller's responsibility to monitor.
type Cache struct {
	entries []entry
}

// New returns a Cache pre-sized to hold initialCapacity entries before its
// first growth, matching the original router's starting capacity.
func New() *Cache {
	return &Cache{entries: make([]entry, 0, initialCapacity)}
}

// Lookup returns the MAC address bound to ip, if any. When multiple entries
// exist for the same IP (Insert does not deduplicate), the first match
// added wins.
func (c *Cache) Lookup(ip uint32) (mac [6]byte, ok bool) {
	for _, e := range c.entries {
		if e.ip == ip {
			return e.mac, true
		}
	}
	return mac, false
}

// Insert records a binding of ip to mac, growing the backing slice by
// doubling its capacity when full. Growth is counted in entries: the
// original C implementation doubled arp_table_capacity but reallocated
// arp_table_capacity*2 bytes, silently undersizing the buffer for any
// entry larger than one byte. Sizing the new slice in entries makes that
// class of bug unrepresentable here.
func (c *Cache) Insert(ip uint32, mac [6]byte) {
	if len(c.entries) == cap(c.entries) && cap(c.entries) > 0 {
		grown := make([]entry, len(c.entries), 2*cap(c.entries))
		copy(grown, c.entries)
		c.entries = grown
	}
	c.entries = append(c.entries, entry{ip: ip, mac: mac})
}

// Len returns the number of entries currently held, for metrics/observability.
func (c *Cache) Len() int { return len(c.entries) }
