package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/faytom/node-sonos/pkg/netif"
)

// Default event endpoints: transport state and zone topology.
var defaultEndpoints = []string{
	"/MediaRenderer/AVTransport/Event",
	"/ZoneGroupTopology/Event",
}

// Config holds the sonos-events configuration. It is read from an optional
// YAML file and overlaid by command-line flags that were set explicitly.
type Config struct {
	ConfigFile string `yaml:"-"`

	Device    DeviceConfig    `yaml:"device"`
	Listener  ListenerConfig  `yaml:"listener"`
	Endpoints []string        `yaml:"endpoints"`
	Discover  bool            `yaml:"discover"`
	WebSocket WebSocketConfig `yaml:"websocket"`

	LogLevel    string `yaml:"logLevel"`
	ProtocolLog string `yaml:"protocolLog"`
	Interactive bool   `yaml:"interactive"`
}

// DeviceConfig selects the player to subscribe to.
type DeviceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ListenerConfig configures the local callback server.
type ListenerConfig struct {
	Port          int           `yaml:"port"`
	Interface     string        `yaml:"interface"`
	RenewInterval time.Duration `yaml:"renewInterval"`
}

// WebSocketConfig enables the event stream bridge when Addr is set.
type WebSocketConfig struct {
	Addr string `yaml:"addr"`
}

// defaultConfig returns the configuration used when neither file nor flags
// set a value.
func defaultConfig() Config {
	return Config{
		Listener: ListenerConfig{
			Interface: netif.Public,
		},
		Endpoints: append([]string(nil), defaultEndpoints...),
		LogLevel:  "info",
	}
}

// loadConfigFile decodes path over cfg. Unknown keys are rejected.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// flagValues holds the raw command-line values before they are merged.
type flagValues struct {
	configFile    string
	host          string
	port          int
	listenPort    int
	iface         string
	renewInterval time.Duration
	endpoints     string
	discover      bool
	logLevel      string
	interactive   bool
	protocolLog   string
	wsAddr        string
}

// register binds the flags to fs. Defaults mirror defaultConfig.
func (v *flagValues) register(fs *flag.FlagSet) {
	def := defaultConfig()
	fs.StringVar(&v.configFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&v.host, "host", "", "Player IP address or host name (empty: discover)")
	fs.IntVar(&v.port, "port", 0, "Player UPnP port (default 1400)")
	fs.IntVar(&v.listenPort, "listen-port", 0, "Local callback port (0: ephemeral)")
	fs.StringVar(&v.iface, "interface", def.Listener.Interface, "Callback interface: name, IP address, or \"public\"")
	fs.DurationVar(&v.renewInterval, "renew-interval", 0, "How often due subscriptions are checked (default 1s)")
	fs.StringVar(&v.endpoints, "endpoints", strings.Join(def.Endpoints, ","), "Comma-separated event endpoints")
	fs.BoolVar(&v.discover, "discover", false, "Discover a player over mDNS even if -host is set")
	fs.StringVar(&v.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&v.interactive, "interactive", false, "Enable interactive command mode")
	fs.StringVar(&v.protocolLog, "protocol-log", "", "Write a protocol capture (.evlog) to this file")
	fs.StringVar(&v.wsAddr, "ws-addr", "", "Serve events to WebSocket clients on this address")
}

// buildConfig loads the config file (if any) and applies every flag that was
// set on fs.
func buildConfig(fs *flag.FlagSet, v *flagValues) (Config, error) {
	cfg := defaultConfig()
	if v.configFile != "" {
		if err := loadConfigFile(v.configFile, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ConfigFile = v.configFile

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Device.Host = v.host
		case "port":
			cfg.Device.Port = v.port
		case "listen-port":
			cfg.Listener.Port = v.listenPort
		case "interface":
			cfg.Listener.Interface = v.iface
		case "renew-interval":
			cfg.Listener.RenewInterval = v.renewInterval
		case "endpoints":
			cfg.Endpoints = splitList(v.endpoints)
		case "discover":
			cfg.Discover = v.discover
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "interactive":
			cfg.Interactive = v.interactive
		case "protocol-log":
			cfg.ProtocolLog = v.protocolLog
		case "ws-addr":
			cfg.WebSocket.Addr = v.wsAddr
		}
	})
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no event endpoints configured")
	}
	for _, ep := range c.Endpoints {
		if !strings.HasPrefix(ep, "/") {
			return fmt.Errorf("endpoint %q must be an absolute path", ep)
		}
	}
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device port %d out of range", c.Device.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
