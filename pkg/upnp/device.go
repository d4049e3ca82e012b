package upnp

import (
	"net"
	"strconv"
)

// DefaultPort is the HTTP port players serve UPnP control and eventing on.
const DefaultPort = 1400

// NotifyPath is the fixed path of the local callback server.
const NotifyPath = "/notify"

// Device identifies a player on the network.
type Device struct {
	// Host is the IP address or host name of the player.
	Host string

	// Port is the UPnP HTTP port. Zero means DefaultPort.
	Port int
}

// Addr returns host:port for the device.
func (d Device) Addr() string {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// URL returns the absolute URL of a path on the device.
func (d Device) URL(path string) string {
	return "http://" + d.Addr() + path
}

// String returns host:port.
func (d Device) String() string {
	return d.Addr()
}

// CallbackURL returns the NOTIFY callback URL for a local address and port.
func CallbackURL(ip net.IP, port int) string {
	return "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(port)) + NotifyPath
}
