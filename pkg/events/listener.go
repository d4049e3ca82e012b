package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"github.com/faytom/node-sonos/pkg/log"
	"github.com/faytom/node-sonos/pkg/netif"
	"github.com/faytom/node-sonos/pkg/upnp"
)

// EventService performs lease requests against one player.
// *upnp.Client satisfies it.
type EventService interface {
	Subscribe(ctx context.Context, endpoint, callbackURL string) (upnp.Lease, error)
	Renew(ctx context.Context, endpoint, sid string) (upnp.Lease, error)
	Unsubscribe(ctx context.Context, endpoint, sid string) error
}

// listenerState is the lifecycle state of a Listener.
type listenerState uint8

const (
	stateIdle listenerState = iota
	stateListening
	stateClosed
)

func (s listenerState) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateListening:
		return "LISTENING"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Listener is the notification server for one player: it serves NOTIFY
// callbacks, holds the subscription registry and renews leases.
type Listener struct {
	client     EventService
	config     Config
	logger     *slog.Logger
	plog       log.Logger
	id         string
	remote     string
	registry   *Registry
	dispatcher *Dispatcher
	pending    *pendingNotifications

	// now is replaceable in tests.
	now func() time.Time

	mu          sync.Mutex
	state       listenerState
	server      *http.Server
	port        int
	callbackURL string
	pool        *ants.Pool
	cancel      context.CancelFunc
	loopWg      sync.WaitGroup
	serveWg     sync.WaitGroup
	serveErr    error

	// inflight tracks renewals submitted to the pool.
	inflight sync.WaitGroup
}

// NewListener creates a listener that leases through client.
func NewListener(client EventService, cfg Config) *Listener {
	cfg.applyDefaults()

	l := &Listener{
		client:     client,
		config:     cfg,
		logger:     cfg.Logger,
		plog:       cfg.ProtocolLogger,
		id:         uuid.NewString(),
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(),
		pending:    newPendingNotifications(maxPendingNotifications),
		now:        time.Now,
	}
	if d, ok := client.(interface{ Device() upnp.Device }); ok {
		l.remote = d.Device().Addr()
	}
	return l
}

// ID returns the listener's protocol capture identifier.
func (l *Listener) ID() string {
	return l.id
}

// OnServiceEvent registers a handler for merged notifications.
func (l *Listener) OnServiceEvent(h func(ServiceEvent)) {
	l.dispatcher.OnServiceEvent(h)
}

// OnError registers a handler for background errors.
func (l *Listener) OnError(h func(ErrorEvent)) {
	l.dispatcher.OnError(h)
}

// Listen binds the callback server and starts the renewal loop. It returns
// the bound port.
func (l *Listener) Listen(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateListening:
		return 0, ErrAlreadyListening
	case stateClosed:
		return 0, ErrClosed
	}

	if err := l.config.Validate(); err != nil {
		return 0, err
	}

	ip, err := netif.Resolve(l.config.Interface)
	if err != nil {
		return 0, fmt.Errorf("%w: callback address: %w", upnp.ErrTransport, err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(l.config.Port)))
	if err != nil {
		return 0, fmt.Errorf("%w: listen: %w", upnp.ErrTransport, err)
	}

	pool, err := ants.NewPool(l.config.MaxConcurrentRenewals)
	if err != nil {
		_ = ln.Close()
		return 0, fmt.Errorf("renewal pool: %w", err)
	}

	l.port = ln.Addr().(*net.TCPAddr).Port
	l.callbackURL = upnp.CallbackURL(ip, l.port)
	l.pool = pool
	l.server = &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	l.serveWg.Add(1)
	go func() {
		defer l.serveWg.Done()
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.warnLog("callback server stopped", "error", err)
			l.serveErr = err
		}
	}()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel
	l.loopWg.Add(1)
	go l.renewLoop(loopCtx)

	l.setState(stateListening, "")
	l.infoLog("listening for notifications", "port", l.port, "callback", l.callbackURL)
	return l.port, nil
}

// Port returns the bound callback port, or 0 when not listening.
func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateListening {
		return 0
	}
	return l.port
}

// CallbackURL returns the URL players send notifications to.
func (l *Listener) CallbackURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateListening {
		return ""
	}
	return l.callbackURL
}

// Subscribe opens a lease on endpoint and returns the device-issued SID.
func (l *Listener) Subscribe(ctx context.Context, endpoint string) (string, error) {
	callbackURL := l.CallbackURL()
	if callbackURL == "" {
		return "", ErrNotListening
	}

	sub, err := l.subscribe(ctx, endpoint, callbackURL)
	if err != nil {
		return "", err
	}
	return sub.sid, nil
}

// subscribe issues SUBSCRIBE and installs the resulting subscription.
func (l *Listener) subscribe(ctx context.Context, endpoint, callbackURL string) (*Subscription, error) {
	l.pending.begin()
	defer l.pending.end()

	start := l.now()
	lease, err := l.client.Subscribe(ctx, endpoint, callbackURL)
	l.logExchange(log.ExchangeSubscribe, endpoint, lease.SID, lease.Timeout, l.now().Sub(start), err)
	if err != nil {
		l.warnLog("subscribe failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("subscribe %s: %w", endpoint, err)
	}

	sub := newSubscription(lease.SID, endpoint, upnp.RenewalDeadline(l.now(), lease.Timeout), l.config.RetryBackoff)
	l.install(sub)
	l.logSubscriptionState(sub, "", "ACTIVE", "subscribed")
	l.debugLog("subscribed", "endpoint", endpoint, "sid", sub.sid, "expiresAt", sub.ExpiresAt())
	return sub, nil
}

// install adds sub to the registry and delivers notifications that arrived
// for its SID before the SUBSCRIBE response was processed.
func (l *Listener) install(sub *Subscription) {
	sub.notifyMu.Lock()
	defer sub.notifyMu.Unlock()

	held := l.pending.install(sub, l.registry)
	for _, n := range held {
		l.deliverLocked(sub, n)
	}
}

// Unsubscribe cancels the lease sid. The subscription is removed locally
// before the request is sent.
func (l *Listener) Unsubscribe(ctx context.Context, sid string) error {
	if l.CallbackURL() == "" {
		return ErrNotListening
	}

	sub, ok := l.registry.Remove(sid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, sid)
	}
	l.logSubscriptionState(sub, "ACTIVE", "REMOVED", "unsubscribed")

	start := l.now()
	err := l.client.Unsubscribe(ctx, sub.endpoint, sid)
	l.logExchange(log.ExchangeUnsubscribe, sub.endpoint, sid, "", l.now().Sub(start), err)
	if err != nil {
		l.warnLog("unsubscribe failed", "endpoint", sub.endpoint, "sid", sid, "error", err)
		return fmt.Errorf("unsubscribe %s: %w", sid, err)
	}
	l.debugLog("unsubscribed", "endpoint", sub.endpoint, "sid", sid)
	return nil
}

// Lookup returns a snapshot of the subscription sid.
func (l *Listener) Lookup(sid string) (SubscriptionInfo, bool) {
	sub, ok := l.registry.Get(sid)
	if !ok {
		return SubscriptionInfo{}, false
	}
	return sub.Info(), true
}

// Subscriptions returns snapshots of all subscriptions ordered by endpoint.
func (l *Listener) Subscriptions() []SubscriptionInfo {
	subs := l.registry.All()
	infos := make([]SubscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		infos = append(infos, sub.Info())
	}
	return infos
}

// Close stops the renewal loop, waits for in-flight renewals and shuts the
// callback server down gracefully, letting in-flight notifications finish
// until ctx is done. Leases are not cancelled on the players.
func (l *Listener) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.state != stateListening {
		l.state = stateClosed
		l.mu.Unlock()
		return nil
	}
	l.setState(stateClosed, "close")
	server, pool, cancel := l.server, l.pool, l.cancel
	l.mu.Unlock()

	cancel()
	l.loopWg.Wait()
	l.inflight.Wait()

	var result *multierror.Error
	if err := server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown callback server: %w", err))
	}
	l.serveWg.Wait()
	if l.serveErr != nil {
		result = multierror.Append(result, fmt.Errorf("callback server: %w", l.serveErr))
	}
	pool.Release()

	l.infoLog("listener closed", "subscriptions", l.registry.Len())
	return result.ErrorOrNil()
}

// setState must be called with l.mu held.
func (l *Listener) setState(state listenerState, reason string) {
	old := l.state
	l.state = state
	l.plog.Log(log.Event{
		Timestamp:  l.now(),
		ListenerID: l.id,
		Direction:  log.DirectionOut,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityListener,
			OldState: old.String(),
			NewState: state.String(),
			Reason:   reason,
		},
	})
}

func (l *Listener) debugLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Listener) infoLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Listener) warnLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
