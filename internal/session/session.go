// Package session implements the per-connection state machine: HTTP
// upgrade, role/channel parsing, the publisher read/fan-out loop, the
// subscriber send-serialization loop with coalescing, and the keep-alive
// ping timer.
package session

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/adred-codev/pubsub-relay/internal/hub"
	"github.com/adred-codev/pubsub-relay/internal/metrics"
)

// Session is one client connection's state and state machine. It is
// created by transport.Listener for every accepted WebSocket upgrade and
// destroyed once its read, write, and timer activity have all wound down.
type Session struct {
	conn   net.Conn
	role   role
	chName string

	hub     *hub.ChannelHub
	channel *hub.Channel

	token    hub.Token
	hasToken bool

	pingDur time.Duration

	// writeMu serializes every byte written to conn: the ping-duration
	// handshake frame, fanned-out messages, keep-alive pings, and close
	// frames. Go has no single-threaded strand/executor primitive like the
	// reference implementation's Asio strand, so this mutex is what
	// realizes the "single-writer execution context" of §5 at the socket
	// level; it is distinct from sendMu below, which governs only the
	// coalescing decision.
	writeMu sync.Mutex

	// sendMu/sending/pending implement the send-serialization and
	// coalescing contract of §4.4: at most one write in flight per
	// session, with at most one pending message superseding it.
	sendMu  sync.Mutex
	sending bool
	pending *hub.Message

	timerMu sync.Mutex
	timer   *time.Timer

	closed     atomic.Bool
	closeOnce  sync.Once
	teardownWG sync.WaitGroup

	logger  *zap.SugaredLogger
	metrics *metrics.Registry
}

// New constructs a Session bound to h. It does not touch the network; call
// Serve to drive the upgrade and subsequent loops.
func New(h *hub.ChannelHub, pingDur time.Duration, logger *zap.SugaredLogger, reg *metrics.Registry) *Session {
	return &Session{
		hub:     h,
		pingDur: pingDur,
		logger:  logger,
		metrics: reg,
	}
}

// Serve drives the session's entire lifecycle against one HTTP upgrade
// request: AwaitingUpgrade, AwaitingAccept, SendingPingDuration, and then
// either PublishingLoop or SubscribingLoop until a terminal condition is
// reached. It returns once the session is fully torn down.
func (s *Session) Serve(w http.ResponseWriter, r *http.Request) {
	r2, channel, ok := parseTarget(r.URL.Path)
	if !ok {
		s.send404(w, r)
		return
	}
	s.role = r2
	s.chName = channel

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		if s.metrics != nil {
			s.metrics.UpgradeFailures.Inc()
		}
		s.logger.Debugw("upgrade failed", "channel", channel, "error", err)
		return
	}
	s.conn = conn
	defer s.teardown()

	if err := s.sendPingDuration(); err != nil {
		s.logger.Debugw("send ping duration failed", "error", err)
		return
	}

	s.channel = s.hub.Connect(channel)
	if s.role == roleSubscriber {
		s.token = s.channel.Subs.Add(s)
		s.hasToken = true
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
		s.metrics.ActiveChannels.Set(float64(s.hub.Count()))
	}

	s.resetTimer()

	if s.role == rolePublisher {
		s.publishLoop()
	} else {
		s.subscribeLoop()
	}

	s.teardownWG.Wait()
}

// sendPingDuration writes the single text frame required after a
// successful upgrade: the ping interval in milliseconds, rendered as a
// lowercase hexadecimal numeral with no prefix and no leading zeros other
// than the value 0 itself — strconv.FormatInt's base-16 form produces
// exactly that.
func (s *Session) sendPingDuration() error {
	ms := s.pingDur.Milliseconds()
	payload := strconv.FormatInt(ms, 16)
	return s.writeFrame(ws.OpText, []byte(payload))
}

func (s *Session) send404(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 Not Found"))
	if s.metrics != nil {
		s.metrics.UpgradeFailures.Inc()
	}
}

// writeFrame performs one serialized write of a single frame (data, ping,
// pong or close).
func (s *Session) writeFrame(op ws.OpCode, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wsutil.WriteServerMessage(s.conn, op, payload)
}

// teardown is idempotent: it removes the subscriber token (if any),
// disconnects from the hub, stops the timer, and closes the socket. It may
// be invoked from several goroutines (the publish/subscribe loop, the
// timer, a failed send); only the first call does anything.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.stopTimer()

		if s.channel != nil {
			if s.hasToken {
				s.channel.Subs.Remove(s.token)
			}
			s.hub.Disconnect(s.chName, s.channel)
		}

		if s.conn != nil {
			_ = s.conn.Close()
		}

		// ActiveSessions was only incremented once the hub handle was taken.
		if s.metrics != nil && s.channel != nil {
			s.metrics.ActiveSessions.Dec()
			s.metrics.ActiveChannels.Set(float64(s.hub.Count()))
		}
	})
}
