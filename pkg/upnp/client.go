package upnp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a single lease request.
const DefaultRequestTimeout = 10 * time.Second

// Request methods.
const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
	MethodNotify      = "NOTIFY"
)

// Header names as sent on the wire. They are set on the header map directly
// so the casing is not canonicalized.
const (
	headerCallback = "CALLBACK"
	headerNT       = "NT"
	headerTimeout  = "Timeout"
	headerSID      = "SID"

	ntEvent = "upnp:event"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Lease is the result of a successful SUBSCRIBE.
type Lease struct {
	// SID is the subscription identifier issued by the device.
	SID string

	// Timeout is the raw Timeout response header (may be empty).
	Timeout string
}

// Client issues lease requests to one device.
// It is safe for concurrent use.
type Client struct {
	device Device
	http   Doer
}

// NewClient creates a client for device. A nil doer uses an *http.Client
// with DefaultRequestTimeout.
func NewClient(device Device, doer Doer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &Client{device: device, http: doer}
}

// Device returns the target device.
func (c *Client) Device() Device {
	return c.device
}

// Subscribe opens a new lease on endpoint with notifications sent to callbackURL.
func (c *Client) Subscribe(ctx context.Context, endpoint, callbackURL string) (Lease, error) {
	resp, err := c.do(ctx, MethodSubscribe, endpoint, map[string]string{
		headerCallback: "<" + callbackURL + ">",
		headerNT:       ntEvent,
		headerTimeout:  RequestedTimeout,
	})
	if err != nil {
		return Lease{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Lease{}, c.statusError(MethodSubscribe, endpoint, resp, ErrRemoteRejected)
	}

	lease := Lease{
		SID:     resp.Header.Get(headerSID),
		Timeout: resp.Header.Get(headerTimeout),
	}
	if lease.SID == "" {
		return Lease{}, fmt.Errorf("%s %s: %w: response carries no SID", MethodSubscribe, c.device.URL(endpoint), ErrRemoteRejected)
	}
	return lease, nil
}

// Renew extends the lease sid on endpoint. A 412 response means the device
// no longer knows sid and yields ErrPreconditionFailed.
func (c *Client) Renew(ctx context.Context, endpoint, sid string) (Lease, error) {
	resp, err := c.do(ctx, MethodSubscribe, endpoint, map[string]string{
		headerSID:     sid,
		headerTimeout: RequestedTimeout,
	})
	if err != nil {
		return Lease{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return Lease{SID: sid, Timeout: resp.Header.Get(headerTimeout)}, nil
	case http.StatusPreconditionFailed:
		return Lease{}, c.statusError(MethodSubscribe, endpoint, resp, ErrPreconditionFailed)
	default:
		return Lease{}, c.statusError(MethodSubscribe, endpoint, resp, ErrRenewalFailed)
	}
}

// Unsubscribe cancels the lease sid on endpoint.
func (c *Client) Unsubscribe(ctx context.Context, endpoint, sid string) error {
	resp, err := c.do(ctx, MethodUnsubscribe, endpoint, map[string]string{
		headerSID: sid,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return c.statusError(MethodUnsubscribe, endpoint, resp, ErrRemoteRejected)
	}
	return nil
}

// do sends a bodiless request and drains the response body.
func (c *Client) do(ctx context.Context, method, endpoint string, headers map[string]string) (*http.Response, error) {
	url := c.device.URL(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	for k, v := range headers {
		req.Header[k] = []string{v}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, ErrTransport, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp, nil
}

func (c *Client) statusError(method, endpoint string, resp *http.Response, kind error) error {
	return &StatusError{
		Method:     method,
		URL:        c.device.URL(endpoint),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		kind:       kind,
	}
}
