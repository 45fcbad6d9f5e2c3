//go:build linux

package linkdriver

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// AFPacket binds one AF_PACKET/SOCK_RAW socket per named interface and
// multiplexes their readiness with poll(2) across the router's fixed
// interface list.
type AFPacket struct {
	ifaces []boundIface
	pollfd []unix.PollFd
	closed bool
}

type boundIface struct {
	name  string
	fd    int
	index int
	mac   [6]byte
	addr  netip.Addr
}

// Open binds a raw socket to each named interface, in order. The returned
// driver's interface indices correspond to the position of each name in
// names.
func Open(names []string) (*AFPacket, error) {
	d := &AFPacket{
		ifaces: make([]boundIface, 0, len(names)),
		pollfd: make([]unix.PollFd, 0, len(names)),
	}
	for _, name := range names {
		bi, err := bindInterface(name)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("linkdriver: bind %q: %w", name, err)
		}
		d.ifaces = append(d.ifaces, bi)
		d.pollfd = append(d.pollfd, unix.PollFd{Fd: int32(bi.fd), Events: unix.POLLIN})
	}
	return d, nil
}

func bindInterface(name string) (boundIface, error) {
	iface, err := interfaceByName(name)
	if err != nil {
		return boundIface{}, err
	}
	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return boundIface{}, err
	}
	sll := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  iface.index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return boundIface{}, err
	}
	mac, err := getSocketHW(fd, name)
	if err != nil {
		unix.Close(fd)
		return boundIface{}, err
	}
	addr, err := getSocketIP(fd, name)
	if err != nil {
		unix.Close(fd)
		return boundIface{}, err
	}
	return boundIface{name: name, fd: fd, index: iface.index, mac: mac, addr: addr}, nil
}

func (d *AFPacket) NumIface() int { return len(d.ifaces) }

// RecvAny polls every bound socket and reads the first one ready, blocking
// indefinitely. Mirrors the original router's single recv_any call that
// services a fixed descriptor set.
func (d *AFPacket) RecvAny(buf []byte) (iface int, n int, err error) {
	for {
		for i := range d.pollfd {
			d.pollfd[i].Revents = 0
		}
		_, err = unix.Poll(d.pollfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		for i, pfd := range d.pollfd {
			if pfd.Revents&unix.POLLIN == 0 {
				continue
			}
			n, err = unix.Read(int(pfd.Fd), buf)
			if err != nil {
				return i, 0, err
			}
			return i, n, nil
		}
	}
}

func (d *AFPacket) Send(iface int, frame []byte) error {
	if iface < 0 || iface >= len(d.ifaces) {
		return fmt.Errorf("linkdriver: interface index %d out of range", iface)
	}
	_, err := unix.Write(d.ifaces[iface].fd, frame)
	return err
}

func (d *AFPacket) InterfaceMAC(iface int) ([6]byte, error) {
	if iface < 0 || iface >= len(d.ifaces) {
		return [6]byte{}, fmt.Errorf("linkdriver: interface index %d out of range", iface)
	}
	return d.ifaces[iface].mac, nil
}

func (d *AFPacket) InterfaceIPv4(iface int) (netip.Addr, error) {
	if iface < 0 || iface >= len(d.ifaces) {
		return netip.Addr{}, fmt.Errorf("linkdriver: interface index %d out of range", iface)
	}
	return d.ifaces[iface].addr, nil
}

func (d *AFPacket) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var firstErr error
	for _, bi := range d.ifaces {
		if err := unix.Close(bi.fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func htons(i uint16) uint16 { return (i<<8)&0xff00 | i>>8 }

type netInterface struct {
	name  string
	index int
}

func interfaceByName(name string) (netInterface, error) {
	iface, err := netInterfaceByName(name)
	if err != nil {
		return netInterface{}, err
	}
	return netInterface{name: iface.Name, index: iface.Index}, nil
}
