package session

import (
	"github.com/gobwas/ws"

	"github.com/adred-codev/pubsub-relay/internal/hub"
)

// Deliver implements hub.Subscriber. It is invoked by a publisher's
// fan-out (possibly concurrently, by several distinct publisher sessions
// on the same channel) and must never block the caller on network I/O: it
// only ever acquires sendMu, which is held across a tiny critical section.
//
// Contract (§4.4): if no write is in flight, start one on a fresh
// goroutine. If a write is already in flight, overwrite the single pending
// slot, dropping anything previously queued there — this is the
// intentional coalescing that keeps a slow subscriber from causing
// unbounded memory growth while still delivering its most recent state
// once it catches up.
func (s *Session) Deliver(msg *hub.Message) {
	if s.closed.Load() {
		return
	}

	s.sendMu.Lock()
	if s.sending {
		s.pending = msg
		s.sendMu.Unlock()
		return
	}
	s.sending = true
	s.sendMu.Unlock()

	s.teardownWG.Add(1)
	go s.sendLoop(msg)
}

// sendLoop owns the single outstanding write for this session. Exactly one
// of {idle, sending} holds between iterations: on entry sending is already
// true; on every exit path (error or drained queue) it is reset to false
// before the goroutine returns, so Deliver's "!sending" check can never
// observe sending==true with no goroutine left to clear it.
func (s *Session) sendLoop(msg *hub.Message) {
	defer s.teardownWG.Done()

	for {
		op := ws.OpText
		if msg.Binary {
			op = ws.OpBinary
		}

		err := s.writeFrame(op, msg.Payload)
		if err != nil {
			s.sendMu.Lock()
			s.sending = false
			s.pending = nil
			s.sendMu.Unlock()
			s.handleSendError(err)
			return
		}

		if s.metrics != nil {
			s.metrics.MessagesDelivered.Inc()
		}
		s.resetTimer()

		s.sendMu.Lock()
		if s.pending != nil {
			msg = s.pending
			s.pending = nil
			s.sendMu.Unlock()
			continue
		}
		s.sending = false
		s.sendMu.Unlock()
		return
	}
}

func (s *Session) handleSendError(err error) {
	switch classify(err) {
	case outcomePeerGone:
		s.teardown()
	default:
		s.logger.Errorw("write: unexpected error", "channel", s.chName, "error", err)
		s.closeWith(ws.StatusInternalServerError, "internal error")
	}
}
