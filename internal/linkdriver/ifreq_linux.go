//go:build linux

package linkdriver

import (
	"fmt"
	"net"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"
)

const safamilyHW6 = 1

// ifreq mirrors struct ifreq from <net/if.h>: a fixed interface-name field
// followed by a union of request-specific data, exactly as used by the
// teacher's tap/bridge ioctl helpers.
type ifreq struct {
	Name [unix.IFNAMSIZ]byte
	Data [64]byte
}

func makeifreq(name string) ifreq {
	var ifr ifreq
	copy(ifr.Name[:], name)
	return ifr
}

func (ifr *ifreq) ptr() unsafe.Pointer { return unsafe.Pointer(ifr) }

func ioctl(fd int, request uintptr, argp unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(argp))
	if errno != 0 {
		return errno
	}
	return nil
}

func getSocketHW(sockfd int, ifaceName string) (hw [6]byte, err error) {
	ifr := makeifreq(ifaceName)
	if err := ioctl(sockfd, unix.SIOCGIFHWADDR, ifr.ptr()); err != nil {
		return hw, err
	}
	family := *(*uint16)(unsafe.Pointer(&ifr.Data[0]))
	if family != safamilyHW6 {
		return hw, fmt.Errorf("linkdriver: unexpected sa_family=%d for %s hwaddr", family, ifaceName)
	}
	copy(hw[:], ifr.Data[2:8])
	return hw, nil
}

func getSocketIP(sockfd int, ifaceName string) (netip.Addr, error) {
	ifr := makeifreq(ifaceName)
	if err := ioctl(sockfd, unix.SIOCGIFADDR, ifr.ptr()); err != nil {
		return netip.Addr{}, err
	}
	family := *(*uint16)(unsafe.Pointer(&ifr.Data[0]))
	if family != unix.AF_INET {
		return netip.Addr{}, fmt.Errorf("linkdriver: unsupported sa_family=%d for %s addr", family, ifaceName)
	}
	addr, ok := netip.AddrFromSlice(ifr.Data[4:8])
	if !ok {
		return netip.Addr{}, fmt.Errorf("linkdriver: malformed IPv4 address for %s", ifaceName)
	}
	return addr, nil
}

func netInterfaceByName(name string) (*net.Interface, error) {
	return net.InterfaceByName(name)
}
