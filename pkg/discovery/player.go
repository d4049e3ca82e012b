package discovery

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/enbility/zeroconf/v3"

	"github.com/faytom/node-sonos/pkg/upnp"
)

// mDNS constants.
const (
	ServiceType = "_sonos._tcp"
	Domain      = "local"
)

// TXT record keys.
const (
	TXTKeyLocation  = "location"
	TXTKeyHousehold = "mhhid"
	TXTKeyModel     = "mdl"
	TXTKeyVersion   = "vers"
)

// TXTRecordMap holds decoded TXT key/value pairs.
type TXTRecordMap map[string]string

// StringsToTXTRecords parses "key=value" strings. Keys without a value map
// to the empty string.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, _ := strings.Cut(s, "=")
		if key != "" {
			txt[key] = value
		}
	}
	return txt
}

// Player is a discovered player.
type Player struct {
	// InstanceName is the full mDNS instance name.
	InstanceName string

	// RoomName is the part of the instance name after "@", if any.
	RoomName string

	// Host is the advertised host name.
	Host string

	// Addresses are the IP addresses seen across interfaces, IPv4 first.
	Addresses []string

	// Port is the UPnP HTTP port, from the location record or upnp.DefaultPort.
	Port int

	// Model is the advertised model, if any.
	Model string

	// Household is the household the player belongs to.
	Household string

	// Location is the device description URL.
	Location string
}

// Device returns the UPnP address of the player. The first IPv4 address is
// preferred over the host name.
func (p *Player) Device() upnp.Device {
	host := p.Host
	for _, a := range p.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			host = a
			break
		}
	}
	if host == p.Host && len(p.Addresses) > 0 {
		host = p.Addresses[0]
	}
	return upnp.Device{Host: host, Port: p.Port}
}

// String returns the room name, or the instance name when there is none.
func (p *Player) String() string {
	if p.RoomName != "" {
		return p.RoomName
	}
	return p.InstanceName
}

// entryToPlayer converts a zeroconf entry to a Player.
func entryToPlayer(entry *zeroconf.ServiceEntry) *Player {
	if entry == nil || entry.Instance == "" {
		return nil
	}
	txt := StringsToTXTRecords(entry.Text)

	p := &Player{
		InstanceName: entry.Instance,
		Host:         strings.TrimSuffix(entry.HostName, "."),
		Addresses:    entryAddresses(entry),
		Port:         upnp.DefaultPort,
		Model:        txt[TXTKeyModel],
		Household:    txt[TXTKeyHousehold],
		Location:     txt[TXTKeyLocation],
	}
	if _, room, ok := strings.Cut(entry.Instance, "@"); ok {
		p.RoomName = room
	}
	if port := locationPort(p.Location); port != 0 {
		p.Port = port
	}
	return p
}

// locationPort returns the port of a description URL, or 0.
func locationPort(location string) int {
	if location == "" {
		return 0
	}
	u, err := url.Parse(location)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0
	}
	return port
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses of entry from addresses.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	gone := make(map[string]bool)
	for _, addr := range entryAddresses(entry) {
		gone[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !gone[addr] {
			result = append(result, addr)
		}
	}
	return result
}
