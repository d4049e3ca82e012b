// Package events maintains UPnP event subscriptions with a player and
// delivers its NOTIFY callbacks.
//
// A Listener owns a local HTTP callback server, the registry of live
// subscriptions keyed by device-issued SID, and a background renewal loop.
//
//	l := events.NewListener(upnp.NewClient(device, nil), events.DefaultConfig())
//	l.OnServiceEvent(func(ev events.ServiceEvent) { ... })
//	l.OnError(func(ev events.ErrorEvent) { ... })
//
//	port, err := l.Listen(ctx)
//	sid, err := l.Subscribe(ctx, "/MediaRenderer/AVTransport/Event")
//	...
//	l.Close(ctx)
//
// # Notifications
//
// Only NOTIFY requests on /notify are accepted. The body is read and decoded
// before the registry is consulted; properties are merged into the
// subscription's accumulated state and the full state is dispatched.
// Notifications for one SID are dispatched in the order they were received.
// Unknown SIDs are acknowledged and dropped.
//
// # Renewal
//
// Each subscription is renewed once its deadline passes. The deadline is
// the device's lease minus 15 seconds, clamped to [15s, 300s]. A 412 on
// renewal means the player restarted: the stale entry is replaced by a fresh
// subscription to the same endpoint. Other failures are reported as error
// events and retried with exponential backoff.
package events
