package events

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/faytom/node-sonos/pkg/backoff"
)

// Subscription is the local record of one lease. SID and endpoint never
// change; a player restart replaces the whole entry.
type Subscription struct {
	sid      string
	endpoint string

	// Lease bookkeeping, owned by the renewal loop.
	leaseMu   sync.Mutex
	expiresAt time.Time
	renewing  bool
	retryAt   time.Time
	backoff   *backoff.Backoff

	// notifyMu serializes merge and dispatch so notifications for this SID
	// are delivered in receipt order.
	notifyMu sync.Mutex

	stateMu sync.RWMutex
	state   map[string]string
	removed bool
}

func newSubscription(sid, endpoint string, expiresAt time.Time, retry backoff.Config) *Subscription {
	return &Subscription{
		sid:       sid,
		endpoint:  endpoint,
		expiresAt: expiresAt,
		backoff:   backoff.NewWithConfig(retry),
		state:     make(map[string]string),
	}
}

// SID returns the device-issued subscription identifier.
func (s *Subscription) SID() string { return s.sid }

// Endpoint returns the event endpoint path.
func (s *Subscription) Endpoint() string { return s.endpoint }

// ExpiresAt returns the renewal deadline.
func (s *Subscription) ExpiresAt() time.Time {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()
	return s.expiresAt
}

// claim marks the subscription as renewing if it is due at now.
func (s *Subscription) claim(now time.Time) bool {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	if s.renewing || now.Before(s.expiresAt) || now.Before(s.retryAt) {
		return false
	}
	s.renewing = true
	return true
}

// release drops a claim without changing the lease.
func (s *Subscription) release() {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()
	s.renewing = false
}

// renewed installs a new deadline and resets the retry backoff.
func (s *Subscription) renewed(expiresAt time.Time) {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	s.expiresAt = expiresAt
	s.renewing = false
	s.retryAt = time.Time{}
	s.backoff.Reset()
}

// renewFailed leaves the lease due and gates the next attempt.
func (s *Subscription) renewFailed(now time.Time) time.Duration {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	delay := s.backoff.Next()
	s.renewing = false
	s.retryAt = now.Add(delay)
	return delay
}

// apply merges props into the accumulated state. It returns a copy of the
// merged state and the changed names in first-seen order, or ok=false once
// the subscription has been removed.
func (s *Subscription) apply(props []Property) (state map[string]string, changed []string, ok bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.removed {
		return nil, nil, false
	}

	seen := make(map[string]bool, len(props))
	for _, p := range props {
		s.state[p.Name] = p.Value
		if !seen[p.Name] {
			seen[p.Name] = true
			changed = append(changed, p.Name)
		}
	}
	return maps.Clone(s.state), changed, true
}

func (s *Subscription) markRemoved() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.removed = true
}

// Info returns a snapshot of the subscription.
func (s *Subscription) Info() SubscriptionInfo {
	s.stateMu.RLock()
	state := maps.Clone(s.state)
	s.stateMu.RUnlock()

	return SubscriptionInfo{
		SID:       s.sid,
		Endpoint:  s.endpoint,
		ExpiresAt: s.ExpiresAt(),
		State:     state,
	}
}

// SubscriptionInfo is a read-only snapshot of a subscription.
type SubscriptionInfo struct {
	SID       string
	Endpoint  string
	ExpiresAt time.Time
	State     map[string]string
}

// Registry maps SIDs to live subscriptions.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Add installs sub, replacing any entry with the same SID.
func (r *Registry) Add(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.sid] = sub
}

// Get returns the subscription for sid.
func (r *Registry) Get(sid string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[sid]
	return sub, ok
}

// Remove deletes and returns the subscription for sid.
func (r *Registry) Remove(sid string) (*Subscription, bool) {
	r.mu.Lock()
	sub, ok := r.subs[sid]
	if ok {
		delete(r.subs, sid)
	}
	r.mu.Unlock()

	if ok {
		sub.markRemoved()
	}
	return sub, ok
}

// RemoveIf deletes sub only if it is still the entry for its SID.
func (r *Registry) RemoveIf(sub *Subscription) bool {
	r.mu.Lock()
	current, ok := r.subs[sub.sid]
	if ok && current == sub {
		delete(r.subs, sub.sid)
	}
	r.mu.Unlock()

	if ok && current == sub {
		sub.markRemoved()
		return true
	}
	return false
}

// Due claims and returns the subscriptions that need renewal at now.
// Each returned subscription must be finished with renewed, renewFailed,
// release or RemoveIf.
func (r *Registry) Due(now time.Time) []*Subscription {
	var due []*Subscription
	for _, sub := range r.All() {
		if sub.claim(now) {
			due = append(due, sub)
		}
	}
	return due
}

// All returns every subscription ordered by endpoint, then SID.
func (r *Registry) All() []*Subscription {
	r.mu.RLock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].endpoint != subs[j].endpoint {
			return subs[i].endpoint < subs[j].endpoint
		}
		return subs[i].sid < subs[j].sid
	})
	return subs
}

// Len returns the number of subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
