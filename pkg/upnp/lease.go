package upnp

import (
	"strconv"
	"strings"
	"time"
)

// Lease constants.
const (
	// RequestedTimeout is the Timeout header value sent with every SUBSCRIBE.
	RequestedTimeout = "Second-3600"

	// DefaultLeaseSeconds is assumed when a response carries no usable Timeout.
	DefaultLeaseSeconds = 3600

	// RenewalMargin is subtracted from the granted lease.
	RenewalMargin = 15 * time.Second

	// MinRenewalDelay is the shortest time until the next renewal.
	MinRenewalDelay = 15 * time.Second

	// MaxRenewalDelay is the longest time until the next renewal.
	MaxRenewalDelay = 300 * time.Second
)

const timeoutPrefix = "Second-"

// ParseTimeout returns the lease length in seconds from a Timeout header.
// Absent, malformed or "Second-infinite" values yield DefaultLeaseSeconds.
func ParseTimeout(header string) int {
	v := strings.TrimSpace(header)
	if len(v) >= len(timeoutPrefix) && strings.EqualFold(v[:len(timeoutPrefix)], timeoutPrefix) {
		v = v[len(timeoutPrefix):]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return DefaultLeaseSeconds
	}
	return n
}

// RenewalDelay returns how long to wait before renewing a lease of n seconds.
func RenewalDelay(seconds int) time.Duration {
	if seconds > int((MaxRenewalDelay+RenewalMargin)/time.Second) {
		return MaxRenewalDelay
	}
	d := time.Duration(seconds)*time.Second - RenewalMargin
	if d < MinRenewalDelay {
		return MinRenewalDelay
	}
	if d > MaxRenewalDelay {
		return MaxRenewalDelay
	}
	return d
}

// RenewalDeadline returns the instant a lease granted at now must be renewed.
func RenewalDeadline(now time.Time, timeoutHeader string) time.Time {
	return now.Add(RenewalDelay(ParseTimeout(timeoutHeader)))
}
