package hub

import "sync/atomic"

// Channel is a SubscriberList paired with a usage counter that governs its
// lifetime in the ChannelHub. A Channel is reachable from the Hub iff its
// usage is greater than zero; that transition to zero is irreversible and
// authorizes deletion (see ChannelHub.Disconnect).
type Channel struct {
	Subs  SubscriberList
	usage atomic.Uint64
}

func newChannel() *Channel {
	c := &Channel{}
	c.usage.Store(1)
	return c
}

// IncUsage increments the usage counter. Called by ChannelHub.Connect under
// the hub's lock, so no additional ordering is required here.
func (c *Channel) IncUsage() {
	c.usage.Add(1)
}

// DecUsage decrements the usage counter and reports whether the
// pre-decrement value was 1, i.e. whether the caller *might* have just
// dropped usage to zero. The Hub uses this as a cheap hint to decide
// whether the slow path (acquiring the write lock and re-checking
// HasNoUsage) is worth taking.
func (c *Channel) DecUsage() (mightBeZero bool) {
	return c.usage.Add(^uint64(0)) == 0
}

// HasNoUsage reports whether the counter currently reads zero. Only
// meaningful when read under ChannelHub's write lock, per the resurrection
// race described in ChannelHub.Disconnect.
func (c *Channel) HasNoUsage() bool {
	return c.usage.Load() == 0
}
