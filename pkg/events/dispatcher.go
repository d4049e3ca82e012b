package events

import "sync"

// ServiceEvent carries the accumulated state of a subscription after a
// notification was merged.
type ServiceEvent struct {
	// Endpoint is the event endpoint path.
	Endpoint string

	// SID identifies the subscription.
	SID string

	// Seq is the notification sequence number, if the device sent one.
	Seq *uint32

	// State is a copy of the accumulated state; handlers may keep it.
	State map[string]string

	// Changed lists the properties carried by this notification.
	Changed []string
}

// ErrorEvent reports a failure that did not stop the listener.
type ErrorEvent struct {
	Err error

	// Endpoint the failure relates to, if any.
	Endpoint string

	// SID of the affected subscription. Empty when no id was issued, as
	// after a failed resubscribe.
	SID string

	// PreviousSID is the replaced id when a restarted player could not be
	// resubscribed.
	PreviousSID string
}

// Dispatcher fans events out to registered handlers. Handlers run
// synchronously in registration order.
type Dispatcher struct {
	mu      sync.RWMutex
	service []func(ServiceEvent)
	errors  []func(ErrorEvent)
}

// NewDispatcher creates a dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// OnServiceEvent registers a service event handler.
func (d *Dispatcher) OnServiceEvent(h func(ServiceEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.service = append(d.service, h)
}

// OnError registers an error handler.
func (d *Dispatcher) OnError(h func(ErrorEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, h)
}

// DispatchService delivers ev to the service handlers.
func (d *Dispatcher) DispatchService(ev ServiceEvent) {
	d.mu.RLock()
	handlers := d.service
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// DispatchError delivers ev to the error handlers.
func (d *Dispatcher) DispatchError(ev ErrorEvent) {
	d.mu.RLock()
	handlers := d.errors
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
