package events

import (
	"errors"
	"net/http"
	"time"

	"github.com/faytom/node-sonos/pkg/log"
	"github.com/faytom/node-sonos/pkg/upnp"
)

// logExchange captures the outcome of an outbound lease request.
func (l *Listener) logExchange(kind log.ExchangeKind, endpoint, sid, timeout string, d time.Duration, err error) {
	status := http.StatusOK
	var se *upnp.StatusError
	switch {
	case errors.As(err, &se):
		status = se.StatusCode
	case err != nil:
		status = 0
	}

	l.plog.Log(log.Event{
		Timestamp:  l.now(),
		ListenerID: l.id,
		Direction:  log.DirectionOut,
		Category:   log.CategoryLease,
		RemoteAddr: l.remote,
		Endpoint:   endpoint,
		SID:        sid,
		Exchange: &log.ExchangeEvent{
			Kind:       kind,
			StatusCode: status,
			Timeout:    timeout,
			Duration:   &d,
		},
	})
	if err != nil && status == 0 {
		l.logError(endpoint, sid, kind.String(), err)
	}
}

// logNotify captures an inbound notification.
func (l *Listener) logNotify(sub *Subscription, n notification) {
	l.plog.Log(log.Event{
		Timestamp:  l.now(),
		ListenerID: l.id,
		Direction:  log.DirectionIn,
		Category:   log.CategoryNotify,
		RemoteAddr: n.remote,
		Endpoint:   sub.endpoint,
		SID:        sub.sid,
		Exchange: &log.ExchangeEvent{
			Kind:       log.ExchangeNotify,
			StatusCode: http.StatusOK,
			Seq:        n.seq,
			Properties: propertyMap(n.props),
		},
	})
}

func (l *Listener) logSubscriptionState(sub *Subscription, old, state, reason string) {
	l.plog.Log(log.Event{
		Timestamp:  l.now(),
		ListenerID: l.id,
		Direction:  log.DirectionOut,
		Category:   log.CategoryState,
		RemoteAddr: l.remote,
		Endpoint:   sub.endpoint,
		SID:        sub.sid,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}

func (l *Listener) logError(endpoint, sid, context string, err error) {
	l.plog.Log(log.Event{
		Timestamp:  l.now(),
		ListenerID: l.id,
		Category:   log.CategoryError,
		RemoteAddr: l.remote,
		Endpoint:   endpoint,
		SID:        sid,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
