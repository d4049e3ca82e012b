// Package upnp implements the lease-management side of UPnP eventing (GENA)
// against a single device's event endpoints.
//
// Three requests are supported, each with a fixed header set that devices
// in the field depend on:
//
//	SUBSCRIBE   CALLBACK: <http://{ip}:{port}/notify>, NT: upnp:event, Timeout: Second-3600
//	SUBSCRIBE   SID: {sid}, Timeout: Second-3600        (renewal)
//	UNSUBSCRIBE SID: {sid}
//
// # Leases
//
// Devices answer with a Timeout header of the form "Second-<n>". The renewal
// deadline derived from it is now + clamp(n-15, 15s, 300s): renewals happen at
// least every five minutes so a restarted device (which answers a renewal with
// 412 Precondition Failed) is noticed quickly, and never sooner than fifteen
// seconds out.
//
// # Errors
//
// Failures are classified with the sentinels ErrTransport, ErrRemoteRejected,
// ErrPreconditionFailed and ErrRenewalFailed. Use errors.Is to test for them;
// HTTP status failures are returned as *StatusError.
package upnp
