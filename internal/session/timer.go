package session

import (
	"time"

	"github.com/gobwas/ws"
)

// resetTimer cancels any outstanding ping deadline and arms a fresh one.
// Per §4.4, any successful I/O on the socket (a publisher's read
// completion, a subscriber's write completion) calls this; the
// cancellation it performs is silent, distinct from a true expiry which
// fires onPingDeadline.
func (s *Session) resetTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.closed.Load() {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.pingDur, s.onPingDeadline)
}

func (s *Session) stopTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}

// onPingDeadline fires when pingDurationMs of idleness elapses with no
// intervening I/O. It issues a ping and re-arms the timer. A ping failure
// classified as peer-gone tears down silently; any other failure closes
// with the "try again later" code (§4.4 Keep-alive).
func (s *Session) onPingDeadline() {
	if s.closed.Load() {
		return
	}

	if err := s.writeFrame(ws.OpPing, nil); err != nil {
		switch classify(err) {
		case outcomePeerGone:
			s.teardown()
		default:
			s.logger.Errorw("ping: unexpected error", "channel", s.chName, "error", err)
			s.closeWith(ws.StatusTryAgainLater, "try again later")
		}
		return
	}

	s.resetTimer()
}
