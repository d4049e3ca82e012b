package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faytom/node-sonos/pkg/log"
	"github.com/faytom/node-sonos/pkg/upnp"
)

// renewLoop checks for due subscriptions every RenewInterval until ctx is
// cancelled.
func (l *Listener) renewLoop(ctx context.Context) {
	defer l.loopWg.Done()

	ticker := time.NewTicker(l.config.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.renewDue(ctx, l.now())
		}
	}
}

// renewDue submits one renewal per due subscription to the pool and returns
// the number submitted.
func (l *Listener) renewDue(ctx context.Context, now time.Time) int {
	submitted := 0
	for _, sub := range l.registry.Due(now) {
		l.inflight.Add(1)
		err := l.pool.Submit(func() {
			defer l.inflight.Done()
			l.renew(ctx, sub)
		})
		if err != nil {
			l.inflight.Done()
			sub.release()
			l.debugLog("renewal not scheduled", "sid", sub.sid, "error", err)
			continue
		}
		submitted++
	}
	return submitted
}

// renew extends sub's lease, replacing the subscription if the player no
// longer knows it.
func (l *Listener) renew(ctx context.Context, sub *Subscription) {
	start := l.now()
	lease, err := l.client.Renew(ctx, sub.endpoint, sub.sid)
	if ctx.Err() != nil {
		sub.release()
		return
	}
	l.logExchange(log.ExchangeRenew, sub.endpoint, sub.sid, lease.Timeout, l.now().Sub(start), err)

	switch {
	case err == nil:
		sub.renewed(upnp.RenewalDeadline(l.now(), lease.Timeout))
		l.debugLog("renewed", "endpoint", sub.endpoint, "sid", sub.sid, "expiresAt", sub.ExpiresAt())

	case errors.Is(err, upnp.ErrPreconditionFailed):
		l.resubscribe(ctx, sub)

	default:
		delay := sub.renewFailed(l.now())
		l.warnLog("renewal failed", "endpoint", sub.endpoint, "sid", sub.sid, "retryIn", delay, "error", err)
		l.logError(sub.endpoint, sub.sid, "renew", err)
		l.dispatcher.DispatchError(ErrorEvent{Err: err, Endpoint: sub.endpoint, SID: sub.sid})
	}
}

// resubscribe replaces a subscription the player lost in a restart with a
// new one on the same endpoint.
func (l *Listener) resubscribe(ctx context.Context, stale *Subscription) {
	if !l.registry.RemoveIf(stale) {
		// Unsubscribed meanwhile.
		return
	}
	l.logSubscriptionState(stale, "ACTIVE", "REMOVED", "player restarted")
	l.infoLog("player restarted, resubscribing", "endpoint", stale.endpoint, "sid", stale.sid)

	callbackURL := l.CallbackURL()
	if callbackURL == "" {
		return
	}

	sub, err := l.subscribe(ctx, stale.endpoint, callbackURL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("resubscribe after restart: %w", err)
		l.logError(stale.endpoint, stale.sid, "resubscribe", err)
		l.dispatcher.DispatchError(ErrorEvent{
			Err:         err,
			Endpoint:    stale.endpoint,
			PreviousSID: stale.sid,
		})
		return
	}
	l.debugLog("resubscribed", "endpoint", sub.endpoint, "sid", sub.sid, "previous", stale.sid)
}
