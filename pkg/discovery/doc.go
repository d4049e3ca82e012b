// Package discovery finds players on the local network via mDNS/DNS-SD.
//
// Players advertise the _sonos._tcp service. Each advertisement carries TXT
// records describing the player:
//
//	location  Device description URL (http://<ip>:1400/xml/device_description.xml)
//	mhhid     Household identifier
//	mdl       Model, when advertised
//	vers      Advertisement version
//
// The instance name has the form "<id>@<room name>".
//
// Browsing aggregates entries by instance name: addresses seen on several
// interfaces are merged into one Player, and a player is emitted once.
//
//	b := discovery.NewBrowser(discovery.DefaultBrowserConfig())
//	players, err := b.Browse(ctx)
//	for p := range players {
//	    client := upnp.NewClient(p.Device(), nil)
//	    ...
//	}
package discovery
