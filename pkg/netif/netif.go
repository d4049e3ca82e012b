// Package netif resolves the local address a device should call back on.
//
// On multi-homed hosts the address of the default route is often not the one
// players can reach, so the interface is always chosen explicitly: by name
// ("eth0", "en0"), by literal IP address, or with the keyword Public, which
// selects the first IPv4 address of an up, non-loopback interface.
package netif

import (
	"errors"
	"fmt"
	"net"
)

// Public selects the first usable external IPv4 address.
const Public = "public"

// Resolution errors.
var (
	ErrNoInterface = errors.New("no interface configured")
	ErrNoAddress   = errors.New("interface has no usable IPv4 address")
)

// Resolve returns the IPv4 address for target (interface name, IP literal or Public).
func Resolve(target string) (net.IP, error) {
	switch target {
	case "":
		return nil, ErrNoInterface
	case Public:
		return publicAddress(net.Interfaces)
	}

	if ip := net.ParseIP(target); ip != nil {
		return ip, nil
	}

	iface, err := net.InterfaceByName(target)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", target, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", target, err)
	}
	if ip := firstIPv4(addrs); ip != nil {
		return ip, nil
	}
	return nil, fmt.Errorf("interface %q: %w", target, ErrNoAddress)
}

// interfaceAddrs abstracts an interface for tests.
type interfaceAddrs interface {
	up() bool
	loopback() bool
	addrs() ([]net.Addr, error)
}

type netInterface struct{ net.Interface }

func (i netInterface) up() bool                   { return i.Flags&net.FlagUp != 0 }
func (i netInterface) loopback() bool             { return i.Flags&net.FlagLoopback != 0 }
func (i netInterface) addrs() ([]net.Addr, error) { return i.Addrs() }

func publicAddress(list func() ([]net.Interface, error)) (net.IP, error) {
	ifaces, err := list()
	if err != nil {
		return nil, err
	}
	wrapped := make([]interfaceAddrs, 0, len(ifaces))
	for _, iface := range ifaces {
		wrapped = append(wrapped, netInterface{iface})
	}
	return pickPublic(wrapped)
}

func pickPublic(ifaces []interfaceAddrs) (net.IP, error) {
	for _, iface := range ifaces {
		if !iface.up() || iface.loopback() {
			continue
		}
		addrs, err := iface.addrs()
		if err != nil {
			continue
		}
		if ip := firstIPv4(addrs); ip != nil && !ip.IsLoopback() {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", Public, ErrNoAddress)
}

func firstIPv4(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}
