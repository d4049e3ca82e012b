package netif

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIface struct {
	isUp, isLoopback bool
	list             []net.Addr
	err              error
}

func (f fakeIface) up() bool                   { return f.isUp }
func (f fakeIface) loopback() bool             { return f.isLoopback }
func (f fakeIface) addrs() ([]net.Addr, error) { return f.list, f.err }

func ipNet(s string) *net.IPNet {
	ip, n, _ := net.ParseCIDR(s)
	n.IP = ip
	return n
}

func TestResolveLiteral(t *testing.T) {
	ip, err := Resolve("192.168.1.50")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", ip.String())
}

func TestResolveEmpty(t *testing.T) {
	_, err := Resolve("")
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestResolveUnknownInterface(t *testing.T) {
	_, err := Resolve("does-not-exist0")
	assert.Error(t, err)
}

func TestPickPublic(t *testing.T) {
	ifaces := []interfaceAddrs{
		fakeIface{isUp: true, isLoopback: true, list: []net.Addr{ipNet("127.0.0.1/8")}},
		fakeIface{isUp: false, list: []net.Addr{ipNet("10.9.9.9/24")}},
		fakeIface{isUp: true, err: errors.New("boom")},
		fakeIface{isUp: true, list: []net.Addr{ipNet("fe80::1/64"), ipNet("192.168.0.7/24")}},
		fakeIface{isUp: true, list: []net.Addr{ipNet("10.0.0.1/24")}},
	}

	ip, err := pickPublic(ifaces)
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.7", ip.String())
}

func TestPickPublicNone(t *testing.T) {
	_, err := pickPublic([]interfaceAddrs{
		fakeIface{isUp: true, list: []net.Addr{ipNet("fe80::1/64")}},
	})
	assert.ErrorIs(t, err, ErrNoAddress)
}
