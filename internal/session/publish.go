package session

import (
	"io"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/adred-codev/pubsub-relay/internal/hub"
)

// publishLoop implements the PublishingLoop state (§4.4 transition 4):
// repeatedly read one WebSocket message, reset the ping timer, construct a
// Message, and snapshot-fan-out to every current subscriber of the
// channel, before issuing the next read.
func (s *Session) publishLoop() {
	reader := wsutil.NewReader(s.conn, ws.StateServerSide)

	for {
		head, err := reader.NextFrame()
		if err != nil {
			s.handleReadError(err)
			return
		}

		switch head.OpCode {
		case ws.OpClose:
			s.closeGracefully()
			return

		case ws.OpPing:
			if err := s.writeFrame(ws.OpPong, nil); err != nil {
				s.handleReadError(err)
				return
			}

		case ws.OpText, ws.OpBinary:
			payload := make([]byte, head.Length)
			if _, err := io.ReadFull(reader, payload); err != nil {
				s.handleReadError(err)
				return
			}

			s.resetTimer()

			if len(payload) == 0 {
				s.closeWith(ws.StatusInvalidFramePayloadData, "bad payload")
				return
			}

			if s.metrics != nil {
				s.metrics.MessagesPublished.Inc()
			}

			msg := &hub.Message{Binary: head.OpCode == ws.OpBinary, Payload: payload}
			s.channel.Subs.ForEach(func(sub hub.Subscriber) {
				sub.Deliver(msg)
			})

		default:
			if _, err := io.CopyN(io.Discard, reader, int64(head.Length)); err != nil {
				s.handleReadError(err)
				return
			}
		}
	}
}

// handleReadError applies the §7 taxonomy to a publisher read failure.
func (s *Session) handleReadError(err error) {
	switch classify(err) {
	case outcomePeerGone:
		s.teardown()
	default:
		s.logger.Errorw("publish read: unexpected error", "channel", s.chName, "error", err)
		s.closeWith(ws.StatusInternalServerError, "internal error")
	}
}

// closeGracefully answers a client-initiated close handshake.
func (s *Session) closeGracefully() {
	_ = s.writeFrame(ws.OpClose, nil)
	s.teardown()
}

// closeWith sends a close frame carrying code/reason, then tears down.
func (s *Session) closeWith(code ws.StatusCode, reason string) {
	_ = s.writeFrame(ws.OpClose, ws.NewCloseFrameBody(code, reason))
	s.teardown()
}
