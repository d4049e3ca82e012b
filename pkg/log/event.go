package log

import "time"

// Event is one captured protocol event. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ListenerID identifies the notification listener instance (UUID).
	ListenerID string `cbor:"2,keyasint"`

	// Direction of the exchange relative to this process.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the device address (host:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Endpoint is the event endpoint path on the device.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// SID is the subscription identifier, when known.
	SID string `cbor:"7,keyasint,omitempty"`

	// One of these is set.
	Exchange    *ExchangeEvent    `cbor:"8,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"`
}

// Direction indicates message flow.
type Direction uint8

const (
	// DirectionIn is a request received from a device.
	DirectionIn Direction = 0
	// DirectionOut is a request sent to a device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLease is a SUBSCRIBE, renewal or UNSUBSCRIBE exchange.
	CategoryLease Category = 0
	// CategoryNotify is an inbound NOTIFY.
	CategoryNotify Category = 1
	// CategoryState is a listener or subscription state change.
	CategoryState Category = 2
	// CategoryError is an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLease:
		return "LEASE"
	case CategoryNotify:
		return "NOTIFY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryLease; c <= CategoryError; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// ExchangeKind identifies the request of an exchange.
type ExchangeKind uint8

const (
	ExchangeSubscribe   ExchangeKind = 0
	ExchangeRenew       ExchangeKind = 1
	ExchangeUnsubscribe ExchangeKind = 2
	ExchangeNotify      ExchangeKind = 3
)

// String returns the exchange name.
func (k ExchangeKind) String() string {
	switch k {
	case ExchangeSubscribe:
		return "SUBSCRIBE"
	case ExchangeRenew:
		return "RENEW"
	case ExchangeUnsubscribe:
		return "UNSUBSCRIBE"
	case ExchangeNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent records one request/response exchange.
type ExchangeEvent struct {
	// Kind of request.
	Kind ExchangeKind `cbor:"1,keyasint"`

	// StatusCode is the HTTP status (0 when the request never completed).
	StatusCode int `cbor:"2,keyasint,omitempty"`

	// Timeout is the lease Timeout header returned by the device.
	Timeout string `cbor:"3,keyasint,omitempty"`

	// Seq is the NOTIFY event sequence number, if sent.
	Seq *uint32 `cbor:"4,keyasint,omitempty"`

	// Properties are the decoded NOTIFY properties.
	Properties map[string]string `cbor:"5,keyasint,omitempty"`

	// Duration is the round-trip time of outbound requests.
	Duration *time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityListener is the notification listener.
	StateEntityListener StateEntity = 0
	// StateEntitySubscription is a single subscription.
	StateEntitySubscription StateEntity = 1
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityListener:
		return "LISTENER"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records a lifecycle transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData records an error.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes the operation that failed.
	Context string `cbor:"2,keyasint,omitempty"`
}
