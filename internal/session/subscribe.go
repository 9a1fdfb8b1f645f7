package session

import (
	"io"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// subscribeLoop implements the SubscribingLoop state (§4.4 transition 5).
// A subscriber performs no application reads; it only writes messages
// handed to it by Deliver and answers pings/close frames so the transport
// can detect peer departure. Per §9/§4.5's open questions, any application
// data a subscriber sends is undefined behavior here — its payload is
// discarded.
func (s *Session) subscribeLoop() {
	reader := wsutil.NewReader(s.conn, ws.StateServerSide)

	for {
		head, err := reader.NextFrame()
		if err != nil {
			s.handleSubscriberReadError(err)
			return
		}

		switch head.OpCode {
		case ws.OpClose:
			s.closeGracefully()
			return

		case ws.OpPing:
			if err := s.writeFrame(ws.OpPong, nil); err != nil {
				s.handleSubscriberReadError(err)
				return
			}

		default:
			if _, err := io.CopyN(io.Discard, reader, int64(head.Length)); err != nil {
				s.handleSubscriberReadError(err)
				return
			}
		}
	}
}

func (s *Session) handleSubscriberReadError(err error) {
	switch classify(err) {
	case outcomePeerGone:
		s.teardown()
	default:
		s.logger.Errorw("subscribe read: unexpected error", "channel", s.chName, "error", err)
		s.closeWith(ws.StatusInternalServerError, "internal error")
	}
}
