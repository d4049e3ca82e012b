package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowseTimeout is the default timeout for FindFirst.
const BrowseTimeout = 10 * time.Second

// Discovery errors.
var (
	ErrNotFound       = errors.New("no player found")
	ErrBrowserStopped = errors.New("browser stopped")
)

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// BrowseTimeout bounds FindFirst. Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// Browser browses for players over mDNS.
type Browser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse emits each player once as it is discovered. The channel is closed
// when ctx is done or the browser is stopped.
func (b *Browser) Browse(ctx context.Context) (<-chan *Player, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrBrowserStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	opts, err := b.browserOptions()
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan *Player)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go aggregate(ctx, entries, removed, out)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindFirst returns the first player discovered within the browse timeout.
func (b *Browser) FindFirst(ctx context.Context) (*Player, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	players, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case p, ok := <-players:
		if !ok {
			return nil, ErrNotFound
		}
		return p, nil
	case <-ctx.Done():
		return nil, ErrNotFound
	}
}

// Stop cancels all browse operations.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *Browser) browserOptions() ([]zeroconf.ClientOption, error) {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err != nil {
			return nil, fmt.Errorf("browse interface %q: %w", b.config.Interface, err)
		}
		opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
	}
	return opts, nil
}

// aggregate merges entries by instance name and emits each new player once.
// A player whose addresses have all been removed is forgotten and emitted
// again if it reappears.
func aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Player) {
	defer close(out)

	players := make(map[string]*Player)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			p := entryToPlayer(entry)
			if p == nil {
				continue
			}

			if existing, found := players[p.InstanceName]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, p.Addresses)
				continue
			}
			players[p.InstanceName] = p

			emitted := *p
			emitted.Addresses = append([]string(nil), p.Addresses...)
			select {
			case out <- &emitted:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := players[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(players, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
