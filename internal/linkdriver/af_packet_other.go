//go:build !linux

package linkdriver

import (
	"errors"
	"net/netip"
)

// AFPacket is unsupported outside Linux; raw AF_PACKET sockets are a
// Linux-specific facility. Build with the mock driver for other platforms.
type AFPacket struct{}

func Open(names []string) (*AFPacket, error) {
	return nil, errors.ErrUnsupported
}

func (d *AFPacket) NumIface() int                { return 0 }
func (d *AFPacket) Close() error                 { return nil }
func (d *AFPacket) Send(iface int, frame []byte) error {
	return errors.ErrUnsupported
}
func (d *AFPacket) RecvAny(buf []byte) (int, int, error) {
	return 0, 0, errors.ErrUnsupported
}
func (d *AFPacket) InterfaceMAC(iface int) ([6]byte, error) {
	return [6]byte{}, errors.ErrUnsupported
}
func (d *AFPacket) InterfaceIPv4(iface int) (netip.Addr, error) {
	return netip.Addr{}, errors.ErrUnsupported
}
