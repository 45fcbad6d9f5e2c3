// Package linkdriver defines the narrow capability the forwarding engine
// needs from the link layer: bind to a fixed set of named interfaces, learn
// their MAC/IPv4 addresses, and exchange whole Ethernet frames with them.
package linkdriver

import "net/netip"

// Frame is a single Ethernet frame received from an interface.
type Frame struct {
	// Iface is the index into the slice of interfaces the driver was
	// opened with, not a kernel interface index.
	Iface int
	// Bytes is the raw frame, destination MAC through payload. Its
	// backing array is owned by the driver and is only valid until the
	// next call to RecvAny.
	Bytes []byte
}

// Driver is the capability set the forwarding engine requires of the link
// layer. Implementations bind to a fixed, ordered list of interfaces at
// construction time; Iface arguments and results index into that list.
type Driver interface {
	// NumIface returns the number of interfaces the driver was opened with.
	NumIface() int
	// RecvAny blocks until a frame is available on any bound interface and
	// copies it into buf, returning the interface it arrived on and the
	// frame length. It returns an error if the driver is closed or the
	// underlying transport fails.
	RecvAny(buf []byte) (iface int, n int, err error)
	// Send transmits a complete Ethernet frame on the given interface.
	Send(iface int, frame []byte) error
	// InterfaceMAC returns the hardware address of the given interface.
	InterfaceMAC(iface int) ([6]byte, error)
	// InterfaceIPv4 returns the configured IPv4 address of the given
	// interface.
	InterfaceIPv4(iface int) (netip.Addr, error)
	// Close releases all resources held by the driver.
	Close() error
}

// MaxFrameLen is a safe upper bound on the Ethernet frames this router
// handles; it excludes jumbo frames and VLAN double-tagging.
const MaxFrameLen = 1600
