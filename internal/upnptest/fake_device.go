// Package upnptest provides an in-process player that speaks the UPnP
// eventing lease protocol, for tests.
package upnptest

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/faytom/node-sonos/pkg/upnp"
)

// Request is a lease request received by a FakeDevice.
type Request struct {
	Method string
	Path   string
	Header http.Header
}

// Prop is a property sent in a notification.
type Prop struct {
	Name  string
	Value string
}

type lease struct {
	endpoint string
	callback string
	seq      uint32
}

// FakeDevice accepts SUBSCRIBE and UNSUBSCRIBE on any path, issues uuid:
// SIDs and can push NOTIFY requests to subscribers.
type FakeDevice struct {
	server *httptest.Server

	mu       sync.Mutex
	leases   map[string]*lease
	requests []Request
	timeout  string
	status   map[string]int
}

// NewFakeDevice starts a fake device. Close it when done.
func NewFakeDevice() *FakeDevice {
	f := &FakeDevice{
		leases:  make(map[string]*lease),
		timeout: upnp.RequestedTimeout,
		status:  make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	return f
}

// Close shuts the device down.
func (f *FakeDevice) Close() {
	f.server.Close()
}

// Device returns the address of the fake device.
func (f *FakeDevice) Device() upnp.Device {
	host, port, _ := net.SplitHostPort(f.server.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return upnp.Device{Host: host, Port: p}
}

// SetLeaseTimeout sets the Timeout header returned on SUBSCRIBE. An empty
// value omits the header.
func (f *FakeDevice) SetLeaseTimeout(timeout string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = timeout
}

// FailWith makes requests with method answer status until cleared with 0.
func (f *FakeDevice) FailWith(method string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.status, method)
		return
	}
	f.status[method] = status
}

// Restart forgets all leases, as a rebooted player does.
func (f *FakeDevice) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.leases)
}

// SIDs returns the SIDs of active leases on endpoint.
func (f *FakeDevice) SIDs(endpoint string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sids []string
	for sid, l := range f.leases {
		if l.endpoint == endpoint {
			sids = append(sids, sid)
		}
	}
	return sids
}

// Requests returns the lease requests received so far.
func (f *FakeDevice) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Notify sends a NOTIFY for sid to its callback URL and returns the status.
func (f *FakeDevice) Notify(ctx context.Context, sid string, props ...Prop) (int, error) {
	f.mu.Lock()
	l, ok := f.leases[sid]
	if !ok {
		f.mu.Unlock()
		return 0, fmt.Errorf("unknown sid %s", sid)
	}
	seq := l.seq
	l.seq++
	callback := l.callback
	f.mu.Unlock()

	return SendNotify(ctx, callback, sid, &seq, PropertySet(props...))
}

// SendNotify posts a NOTIFY with body to url. A nil seq omits the SEQ header.
func SendNotify(ctx context.Context, url, sid string, seq *uint32, body string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, upnp.MethodNotify, url, strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header["CONTENT-TYPE"] = []string{`text/xml; charset="utf-8"`}
	req.Header["NT"] = []string{"upnp:event"}
	req.Header["NTS"] = []string{"upnp:propchange"}
	req.Header["SID"] = []string{sid}
	if seq != nil {
		req.Header["SEQ"] = []string{strconv.FormatUint(uint64(*seq), 10)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// PropertySet renders props as an event property set. Values are escaped.
func PropertySet(props ...Prop) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">`)
	for _, p := range props {
		fmt.Fprintf(&b, "<e:property><%s>%s</%s></e:property>", p.Name, html.EscapeString(p.Value), p.Name)
	}
	b.WriteString(`</e:propertyset>`)
	return b.String()
}

func (f *FakeDevice) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()})

	if status, ok := f.status[r.Method]; ok {
		w.WriteHeader(status)
		return
	}

	switch r.Method {
	case upnp.MethodSubscribe:
		if sid := r.Header.Get("SID"); sid != "" {
			if _, ok := f.leases[sid]; !ok {
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			f.writeLease(w, sid)
			return
		}

		callback := strings.Trim(r.Header.Get("CALLBACK"), "<>")
		if callback == "" || r.Header.Get("NT") != "upnp:event" {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		sid := "uuid:" + uuid.NewString()
		f.leases[sid] = &lease{endpoint: r.URL.Path, callback: callback}
		f.writeLease(w, sid)

	case upnp.MethodUnsubscribe:
		sid := r.Header.Get("SID")
		if _, ok := f.leases[sid]; !ok {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		delete(f.leases, sid)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeDevice) writeLease(w http.ResponseWriter, sid string) {
	w.Header()["SID"] = []string{sid}
	if f.timeout != "" {
		w.Header()["TIMEOUT"] = []string{f.timeout}
	}
	w.WriteHeader(http.StatusOK)
}
