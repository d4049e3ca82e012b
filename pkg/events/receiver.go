package events

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/faytom/node-sonos/pkg/upnp"
)

// Handler returns the callback server's HTTP handler. It accepts only
// NOTIFY on /notify; method and path match case-insensitively.
func (l *Listener) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.URL.Path, upnp.NotifyPath) {
			http.NotFound(w, r)
			return
		}
		if !strings.EqualFold(r.Method, upnp.MethodNotify) {
			w.Header().Set("Allow", upnp.MethodNotify)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		l.handleNotify(w, r)
	})
}

func (l *Listener) handleNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, l.config.MaxNotifyBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			l.warnLog("notification body too large", "remote", r.RemoteAddr, "limit", tooLarge.Limit)
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		l.debugLog("reading notification body failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	props, decodeErr := DecodePropertySet(body)
	l.deliver(notification{
		sid:       r.Header.Get("SID"),
		seq:       parseSeq(r.Header.Get("SEQ")),
		props:     props,
		decodeErr: decodeErr,
		remote:    r.RemoteAddr,
	})
	w.WriteHeader(http.StatusOK)
}

// deliver routes n to its subscription. Notifications for unknown SIDs are
// dropped unless a SUBSCRIBE that may issue the SID is in flight.
func (l *Listener) deliver(n notification) {
	sub, ok := l.registry.Get(n.sid)
	if !ok {
		var held bool
		sub, held = l.pending.hold(n, l.registry)
		if sub == nil {
			if held {
				l.debugLog("holding notification for pending subscription", "sid", n.sid)
			} else {
				l.debugLog("ignoring notification for unknown subscription", "sid", n.sid, "remote", n.remote)
			}
			return
		}
	}

	sub.notifyMu.Lock()
	defer sub.notifyMu.Unlock()
	l.deliverLocked(sub, n)
}

// deliverLocked merges and dispatches n. The caller holds sub.notifyMu.
func (l *Listener) deliverLocked(sub *Subscription, n notification) {
	state, changed, ok := sub.apply(n.props)
	if !ok {
		return
	}
	l.logNotify(sub, n)

	if n.decodeErr == nil || len(n.props) > 0 {
		l.dispatcher.DispatchService(ServiceEvent{
			Endpoint: sub.endpoint,
			SID:      sub.sid,
			Seq:      n.seq,
			State:    state,
			Changed:  changed,
		})
	}

	if n.decodeErr != nil {
		err := &DecodeError{SID: sub.sid, Decoded: len(n.props), Err: n.decodeErr}
		l.warnLog("malformed notification", "endpoint", sub.endpoint, "sid", sub.sid, "error", err)
		l.logError(sub.endpoint, sub.sid, "notify", err)
		l.dispatcher.DispatchError(ErrorEvent{Err: err, Endpoint: sub.endpoint, SID: sub.sid})
	}
}

func parseSeq(header string) *uint32 {
	if header == "" {
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(header), 10, 32)
	if err != nil {
		return nil
	}
	seq := uint32(n)
	return &seq
}

func propertyMap(props []Property) map[string]string {
	if len(props) == 0 {
		return nil
	}
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p.Name] = p.Value
	}
	return m
}
