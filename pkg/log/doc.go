// Package log captures UPnP eventing traffic as structured protocol events.
//
// It is separate from operational logging (slog): protocol capture records
// every lease exchange (SUBSCRIBE, renewal, UNSUBSCRIBE), every inbound
// NOTIFY with its decoded properties, listener and subscription state
// changes, and errors, in a machine-readable trace.
//
// # Basic Usage
//
//	// Development: protocol events on the console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Capture to file
//	fl, _ := log.NewFileLogger("/var/log/sonos/events.evlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys
// (.evlog). Reader iterates them, optionally through a Filter.
package log
