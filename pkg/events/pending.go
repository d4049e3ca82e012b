package events

import "sync"

// notification is a decoded NOTIFY request.
type notification struct {
	sid       string
	seq       *uint32
	props     []Property
	decodeErr error
	remote    string
}

// pendingNotifications holds notifications whose SID is not yet in the
// registry while a SUBSCRIBE is in flight. Players send the initial state
// immediately, often before the SUBSCRIBE response has been processed.
type pendingNotifications struct {
	mu          sync.Mutex
	subscribing int
	held        map[string][]notification
	count       int
	limit       int
}

func newPendingNotifications(limit int) *pendingNotifications {
	return &pendingNotifications{
		held:  make(map[string][]notification),
		limit: limit,
	}
}

func (p *pendingNotifications) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribing++
}

func (p *pendingNotifications) end() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribing--
	if p.subscribing == 0 {
		clear(p.held)
		p.count = 0
	}
}

// hold stores n if no subscription for its SID exists and a SUBSCRIBE is in
// flight. If the SID was installed meanwhile it returns that subscription.
func (p *pendingNotifications) hold(n notification, registry *Registry) (*Subscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := registry.Get(n.sid); ok {
		return sub, false
	}
	if p.subscribing == 0 || p.count >= p.limit {
		return nil, false
	}
	p.held[n.sid] = append(p.held[n.sid], n)
	p.count++
	return nil, true
}

// install adds sub to registry and returns the notifications held for it.
// The caller holds sub.notifyMu.
func (p *pendingNotifications) install(sub *Subscription, registry *Registry) []notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	registry.Add(sub)
	held := p.held[sub.sid]
	delete(p.held, sub.sid)
	p.count -= len(held)
	return held
}
