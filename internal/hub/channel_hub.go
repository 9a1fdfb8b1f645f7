package hub

import "sync"

// ChannelHub maps channel name to Channel. At most one Channel exists per
// name at any instant, and every Channel reachable from the map has
// usage >= 1; removal from the map and deletion of the Channel are atomic
// with respect to other Hub operations (both happen under the write lock).
type ChannelHub struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewChannelHub constructs an empty hub.
func NewChannelHub() *ChannelHub {
	return &ChannelHub{channels: make(map[string]*Channel)}
}

// Connect returns a Channel handle for name, incrementing its usage count
// for the caller. If name is absent, a new Channel is installed with usage
// 1. The increment always happens while holding a lock that excludes
// concurrent Hub mutation (the read lock on the fast path, the write lock on
// the slow path). The fast path may find a Channel whose usage a concurrent
// Disconnect has just dropped to zero and bump it back to one; that is what
// closes the resurrection race described in the design notes:
// Disconnect's re-check under the write lock will always observe a revival
// that happened-before it acquired that same lock.
func (h *ChannelHub) Connect(name string) *Channel {
	h.mu.RLock()
	if c, ok := h.channels[name]; ok {
		c.IncUsage()
		h.mu.RUnlock()
		return c
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.channels[name]; ok {
		c.IncUsage()
		return c
	}
	c := newChannel()
	h.channels[name] = c
	return c
}

// Disconnect releases one usage handle on the Channel registered under
// name. If the decrement observes the last user, it acquires the write
// lock, re-confirms HasNoUsage, and only then removes the map entry. The
// re-check is required: a concurrent Connect may have revived the Channel
// between the optimistic decrement and this lock acquisition.
func (h *ChannelHub) Disconnect(name string, c *Channel) {
	if !c.DecUsage() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c.HasNoUsage() {
		delete(h.channels, name)
	}
}

// Count reports the number of live channels. Metrics only.
func (h *ChannelHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
