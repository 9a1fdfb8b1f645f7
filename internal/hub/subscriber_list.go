// Package hub implements the channel registry: a name-to-Channel map with
// reference-counted lifetime, and each Channel's subscriber membership.
package hub

import "sync"

// Token is an opaque handle returned by SubscriberList.Add, used to remove
// the same entry later without scanning the list.
type Token uint64

// Message is an in-flight fan-out unit: a publisher's frame, tagged with
// its binary/text flag. A single Message is shared by reference across
// every subscriber's Deliver call for one publisher read; it is immutable
// once constructed.
type Message struct {
	Binary  bool
	Payload []byte
}

// Subscriber is anything a Channel can fan out to. Session implements it;
// the interface keeps this package free of a dependency on the session
// package.
type Subscriber interface {
	// Deliver hands the subscriber a message to send. Implementations must
	// not block the caller (the publisher's read loop) for longer than it
	// takes to acquire a small mutex; the actual write happens on the
	// subscriber's own goroutine.
	Deliver(msg *Message)
}

type entry struct {
	token Token
	sub   Subscriber
}

// SubscriberList is a concurrently-readable, concurrently-mutable set of
// subscriber handles. Add/Remove are exclusive with each other and with
// ForEach; ForEach calls are shared with each other. Fan-out (ForEach)
// dominates membership churn, so a RWMutex is used rather than a single
// mutex, mirroring the std::shared_mutex split in the reference
// implementation.
type SubscriberList struct {
	mu      sync.RWMutex
	entries []entry
	next    Token
}

// Add appends sub and returns a stable token for later removal.
func (l *SubscriberList) Add(sub Subscriber) Token {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	tok := l.next
	l.entries = append(l.entries, entry{token: tok, sub: sub})
	return tok
}

// Remove deletes the entry identified by tok. tok must have been returned
// by Add on this list and not previously removed; calling Remove twice with
// the same token, or with a token from another list, is a programmer error
// and is a silent no-op rather than a panic, keeping teardown idempotent
// (§4.4 requires Session teardown to never double-remove).
func (l *SubscriberList) Remove(tok Token) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.token == tok {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// ForEach invokes visit once per currently present subscriber. No ordering
// is guaranteed. The visitor must not call Add or Remove on this list;
// re-entrancy is undefined.
func (l *SubscriberList) ForEach(visit func(Subscriber)) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		visit(e.sub)
	}
}

// Len reports the current subscriber count. Used for metrics only; not part
// of the delivery contract.
func (l *SubscriberList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
