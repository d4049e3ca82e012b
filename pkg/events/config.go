package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/faytom/node-sonos/pkg/backoff"
	"github.com/faytom/node-sonos/pkg/log"
	"github.com/faytom/node-sonos/pkg/netif"
)

// Defaults.
const (
	DefaultRenewInterval         = 1 * time.Second
	DefaultMaxConcurrentRenewals = 16
	DefaultMaxNotifyBody         = 1 << 20
	DefaultReadHeaderTimeout     = 10 * time.Second

	// maxPendingNotifications bounds notifications held for SIDs whose
	// SUBSCRIBE response has not been processed yet.
	maxPendingNotifications = 64
)

// Config configures a Listener.
type Config struct {
	// Port is the local callback port. 0 binds an ephemeral port.
	Port int

	// Interface selects the address players call back on: an interface
	// name, an IP address, or netif.Public. Required.
	Interface string

	// RenewInterval is how often due subscriptions are checked.
	RenewInterval time.Duration

	// MaxConcurrentRenewals bounds renewal requests in flight.
	MaxConcurrentRenewals int

	// MaxNotifyBody bounds the NOTIFY body size in bytes.
	MaxNotifyBody int64

	// RetryBackoff paces retries of failing renewals.
	RetryBackoff backoff.Config

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default configuration, calling back on the
// first public interface.
func DefaultConfig() Config {
	return Config{
		Interface:             netif.Public,
		RenewInterval:         DefaultRenewInterval,
		MaxConcurrentRenewals: DefaultMaxConcurrentRenewals,
		MaxNotifyBody:         DefaultMaxNotifyBody,
		RetryBackoff:          backoff.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Interface == "" {
		return fmt.Errorf("%w: interface is required", ErrInvalidConfig)
	}
	if c.RenewInterval < 0 {
		return fmt.Errorf("%w: negative renew interval", ErrInvalidConfig)
	}
	if c.MaxConcurrentRenewals < 0 {
		return fmt.Errorf("%w: negative renewal concurrency", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RenewInterval == 0 {
		c.RenewInterval = DefaultRenewInterval
	}
	if c.MaxConcurrentRenewals == 0 {
		c.MaxConcurrentRenewals = DefaultMaxConcurrentRenewals
	}
	if c.MaxNotifyBody <= 0 {
		c.MaxNotifyBody = DefaultMaxNotifyBody
	}
	if c.RetryBackoff == (backoff.Config{}) {
		c.RetryBackoff = backoff.DefaultConfig()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
}
