package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) (*flag.FlagSet, *flagValues) {
	t.Helper()
	fs := flag.NewFlagSet("sonos-events", flag.ContinueOnError)
	v := &flagValues{}
	v.register(fs)
	require.NoError(t, fs.Parse(args))
	return fs, v
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sonos-events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildConfigDefaults(t *testing.T) {
	fs, v := parseFlags(t)

	cfg, err := buildConfig(fs, v)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Listener.Interface)
	assert.Equal(t, defaultEndpoints, cfg.Endpoints)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Device.Host)
}

func TestBuildConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 192.168.1.20
  port: 1443
listener:
  port: 3500
  interface: eth0
  renewInterval: 2s
endpoints:
  - /MediaRenderer/RenderingControl/Event
websocket:
  addr: ":8080"
logLevel: debug
protocolLog: session.evlog
`)
	fs, v := parseFlags(t, "-config", path)

	cfg, err := buildConfig(fs, v)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, DeviceConfig{Host: "192.168.1.20", Port: 1443}, cfg.Device)
	assert.Equal(t, ListenerConfig{Port: 3500, Interface: "eth0", RenewInterval: 2 * time.Second}, cfg.Listener)
	assert.Equal(t, []string{"/MediaRenderer/RenderingControl/Event"}, cfg.Endpoints)
	assert.Equal(t, ":8080", cfg.WebSocket.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "session.evlog", cfg.ProtocolLog)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 192.168.1.20
listener:
  interface: eth0
logLevel: debug
`)
	fs, v := parseFlags(t,
		"-config", path,
		"-host", "10.0.0.7",
		"-endpoints", "/A/Event, /B/Event,",
		"-ws-addr", "127.0.0.1:9000",
	)

	cfg, err := buildConfig(fs, v)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", cfg.Device.Host)
	assert.Equal(t, []string{"/A/Event", "/B/Event"}, cfg.Endpoints)
	assert.Equal(t, "127.0.0.1:9000", cfg.WebSocket.Addr)

	// Unset flags keep the file values even when their defaults differ.
	assert.Equal(t, "eth0", cfg.Listener.Interface)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBuildConfigEmptyFile(t *testing.T) {
	fs, v := parseFlags(t, "-config", writeConfig(t, ""))

	cfg, err := buildConfig(fs, v)
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoints, cfg.Endpoints)
}

func TestBuildConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
	}{
		{name: "unknown key", file: "color: blue\n"},
		{name: "malformed yaml", file: "device: [\n"},
		{name: "relative endpoint", args: []string{"-endpoints", "MediaRenderer/AVTransport/Event"}},
		{name: "no endpoints", args: []string{"-endpoints", ","}},
		{name: "bad log level", args: []string{"-log-level", "verbose"}},
		{name: "bad device port", args: []string{"-port", "70000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append([]string{"-config", writeConfig(t, tt.file)}, args...)
			}
			fs, v := parseFlags(t, args...)

			_, err := buildConfig(fs, v)
			assert.Error(t, err)
		})
	}
}

func TestBuildConfigMissingFile(t *testing.T) {
	fs, v := parseFlags(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := buildConfig(fs, v)
	assert.Error(t, err)
}
