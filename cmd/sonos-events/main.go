// Command sonos-events subscribes to the UPnP event endpoints of a Sonos
// player and prints every state change it reports.
//
// It demonstrates the events package end to end:
//   - Player discovery over mDNS when no host is given
//   - A local callback server that keeps subscriptions renewed
//   - Resubscription after a player restart
//   - Protocol capture files readable with sonos-log
//   - An optional WebSocket bridge and interactive console
//
// Usage:
//
//	sonos-events [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-host string            Player IP address or host name (empty: discover)
//	-port int               Player UPnP port (default 1400)
//	-listen-port int        Local callback port (0: ephemeral)
//	-interface string       Callback interface: name, IP address, or "public" (default "public")
//	-renew-interval dur     How often due subscriptions are checked (default 1s)
//	-endpoints string       Comma-separated event endpoints
//	-discover               Discover a player over mDNS even if -host is set
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-interactive            Enable interactive command mode
//	-protocol-log string    Write a protocol capture (.evlog) to this file
//	-ws-addr string         Serve events to WebSocket clients on this address
//
// Examples:
//
//	# Follow transport and topology events of a known player
//	sonos-events -host 192.168.1.20
//
//	# Discover a player, call back on eth0, capture the exchange
//	sonos-events -interface eth0 -protocol-log session.evlog
//
//	# Bridge events to browsers
//	sonos-events -host 192.168.1.20 -ws-addr :8080
//
// Configuration file:
//
//	device:
//	  host: 192.168.1.20
//	listener:
//	  port: 3500
//	  interface: eth0
//	endpoints:
//	  - /MediaRenderer/AVTransport/Event
//	  - /MediaRenderer/RenderingControl/Event
//	websocket:
//	  addr: ":8080"
//
// Flags set on the command line override the file.
//
// Interactive Commands:
//
//	list                 - List active subscriptions
//	subscribe <endpoint> - Subscribe to an event endpoint
//	unsubscribe <sid>    - Cancel a subscription
//	state <sid>          - Show accumulated state
//	status               - Show listener status
//	quit                 - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/faytom/node-sonos/cmd/sonos-events/interactive"
	"github.com/faytom/node-sonos/pkg/discovery"
	"github.com/faytom/node-sonos/pkg/events"
	"github.com/faytom/node-sonos/pkg/eventstream"
	plog "github.com/faytom/node-sonos/pkg/log"
	"github.com/faytom/node-sonos/pkg/netif"
	"github.com/faytom/node-sonos/pkg/upnp"
)

// shutdownTimeout bounds unsubscribing and closing on exit.
const shutdownTimeout = 10 * time.Second

var flags flagValues

func init() {
	flags.register(flag.CommandLine)
}

func main() {
	flag.Parse()

	config, err := buildConfig(flag.CommandLine, &flags)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(config.LogLevel)

	log.Println("Sonos Event Listener")
	log.Println("====================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	device, err := resolveDevice(ctx, config)
	if err != nil {
		log.Fatalf("No player: %v", err)
	}
	log.Printf("Player: %s", device)

	// Protocol capture
	var protocolLoggers []plog.Logger
	protocolLoggers = append(protocolLoggers, plog.NewSlogAdapter(slog.Default()))
	var capture *plog.FileLogger
	if config.ProtocolLog != "" {
		capture, err = plog.NewFileLogger(config.ProtocolLog)
		if err != nil {
			log.Fatalf("Failed to open protocol log: %v", err)
		}
		protocolLoggers = append(protocolLoggers, capture)
		log.Printf("Protocol capture: %s", config.ProtocolLog)
	}

	listenerConfig := events.DefaultConfig()
	listenerConfig.Port = config.Listener.Port
	listenerConfig.Interface = config.Listener.Interface
	if config.Listener.RenewInterval > 0 {
		listenerConfig.RenewInterval = config.Listener.RenewInterval
	}
	listenerConfig.Logger = slog.Default()
	listenerConfig.ProtocolLogger = plog.NewMultiLogger(protocolLoggers...)

	listener := events.NewListener(upnp.NewClient(device, nil), listenerConfig)
	listener.OnServiceEvent(func(ev events.ServiceEvent) {
		for _, line := range formatServiceEvent(ev) {
			log.Print(line)
		}
	})
	listener.OnError(func(ev events.ErrorEvent) {
		log.Print(formatErrorEvent(ev))
	})

	// WebSocket bridge
	var hub *eventstream.Hub
	if config.WebSocket.Addr != "" {
		hub = eventstream.NewHub(slog.Default())
		addr, err := hub.Start(config.WebSocket.Addr)
		if err != nil {
			log.Fatalf("Failed to start event stream: %v", err)
		}
		log.Printf("Event stream: ws://%s%s", addr, eventstream.Path)

		listener.OnServiceEvent(func(ev events.ServiceEvent) {
			_ = hub.Broadcast(eventstream.ServiceMessage(device.String(), ev))
		})
		listener.OnError(func(ev events.ErrorEvent) {
			_ = hub.Broadcast(eventstream.ErrorMessage(device.String(), ev))
		})
	}

	port, err := listener.Listen(ctx)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	log.Printf("Listening on port %d (callback %s)", port, listener.CallbackURL())

	for _, endpoint := range config.Endpoints {
		sid, err := listener.Subscribe(ctx, endpoint)
		if err != nil {
			log.Printf("Failed to subscribe to %s: %v", endpoint, err)
			continue
		}
		log.Printf("Subscribed to %s (sid %s)", endpoint, sid)
	}

	// Run interactive mode or wait for signal
	if config.Interactive {
		console, err := interactive.New(listener, device.String())
		if err != nil {
			log.Fatalf("Failed to create interactive console: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(console.Stdout())
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, sub := range listener.Subscriptions() {
		if err := listener.Unsubscribe(shutdownCtx, sub.SID); err != nil {
			log.Printf("Unsubscribe %s: %v", sub.SID, err)
		}
	}
	if err := listener.Close(shutdownCtx); err != nil {
		log.Printf("Error closing listener: %v", err)
	}
	if hub != nil {
		if err := hub.Close(shutdownCtx); err != nil {
			log.Printf("Error closing event stream: %v", err)
		}
	}
	if capture != nil {
		capture.Close()
	}

	log.Println("Goodbye!")
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}

	// slog.Default writes through the log package and follows log.SetOutput.
	lvl, _ := parseLevel(level)
	slog.SetLogLoggerLevel(lvl)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}

// resolveDevice returns the configured player, or the first one found over
// mDNS.
func resolveDevice(ctx context.Context, config Config) (upnp.Device, error) {
	if config.Device.Host != "" && !config.Discover {
		return upnp.Device{Host: config.Device.Host, Port: config.Device.Port}, nil
	}

	browserConfig := discovery.DefaultBrowserConfig()
	browserConfig.Interface = browseInterface(config.Listener.Interface)
	browser := discovery.NewBrowser(browserConfig)
	defer browser.Stop()

	log.Printf("Discovering players (%s)...", discovery.ServiceType)
	player, err := browser.FindFirst(ctx)
	if err != nil {
		return upnp.Device{}, err
	}
	log.Printf("Found %s", player)
	return player.Device(), nil
}

// browseInterface maps the callback interface setting to an mDNS interface
// name. The public keyword and IP literals browse on all interfaces.
func browseInterface(target string) string {
	if target == netif.Public || net.ParseIP(target) != nil {
		return ""
	}
	return target
}

// formatServiceEvent renders a service event as log lines. An AVTransport
// LastChange document is expanded into its variables.
func formatServiceEvent(ev events.ServiceEvent) []string {
	header := fmt.Sprintf("[EVENT] %s sid=%s", ev.Endpoint, ev.SID)
	if ev.Seq != nil {
		header += fmt.Sprintf(" seq=%d", *ev.Seq)
	}
	lines := []string{header}

	changed := append([]string(nil), ev.Changed...)
	sort.Strings(changed)
	for _, name := range changed {
		value := ev.State[name]
		if name == "LastChange" {
			if vars, err := events.ParseLastChange(value); err == nil && len(vars) > 0 {
				keys := make([]string, 0, len(vars))
				for k := range vars {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					lines = append(lines, fmt.Sprintf("     %s = %s", k, vars[k]))
				}
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("     %s = %s", name, abbreviate(value, 160)))
	}
	return lines
}

func formatErrorEvent(ev events.ErrorEvent) string {
	s := fmt.Sprintf("[ERROR] %v", ev.Err)
	if ev.Endpoint != "" {
		s += " endpoint=" + ev.Endpoint
	}
	if ev.SID != "" {
		s += " sid=" + ev.SID
	}
	if ev.PreviousSID != "" {
		s += " previous_sid=" + ev.PreviousSID
	}
	return s
}

// abbreviate trims s to at most n bytes without splitting a rune.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
