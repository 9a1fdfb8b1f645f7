package session

import (
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/adred-codev/pubsub-relay/internal/hub"
)

func newTestSession(conn net.Conn) *Session {
	s := New(hub.NewChannelHub(), time.Hour, zap.NewNop().Sugar(), nil)
	s.conn = conn
	s.chName = "test"
	return s
}

// TestDeliverSingleMessage exercises the non-coalesced path: one Deliver
// results in exactly one frame written to the peer.
func TestDeliverSingleMessage(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	s := newTestSession(serverConn)

	s.Deliver(&hub.Message{Payload: []byte("hello")})

	msg, op, err := readClientMessage(clientConn)
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if op != ws.OpText || string(msg) != "hello" {
		t.Fatalf("got op=%v payload=%q, want text %q", op, msg, "hello")
	}

	s.teardownWG.Wait()
}

// TestDeliverCoalescesWhileSendInFlight holds the peer's read open so the
// first write blocks, then delivers two more messages while it's in
// flight. Only the first and the last of the three should ever reach the
// wire: the middle one must be dropped by the coalescing slot.
func TestDeliverCoalescesWhileSendInFlight(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	s := newTestSession(serverConn)

	s.Deliver(&hub.Message{Payload: []byte("first")})

	// Give sendLoop a moment to enter its blocked write on net.Pipe
	// (which has no buffering, so the write blocks until clientConn reads).
	time.Sleep(20 * time.Millisecond)

	s.Deliver(&hub.Message{Payload: []byte("dropped")})
	s.Deliver(&hub.Message{Payload: []byte("last")})

	first, _, err := readClientMessage(clientConn)
	if err != nil {
		t.Fatalf("read first message: %v", err)
	}
	if string(first) != "first" {
		t.Fatalf("first message = %q, want %q", first, "first")
	}

	second, _, err := readClientMessage(clientConn)
	if err != nil {
		t.Fatalf("read second message: %v", err)
	}
	if string(second) != "last" {
		t.Fatalf("second message = %q, want %q (the coalesced result)", second, "last")
	}

	s.teardownWG.Wait()
}

// TestDeliverAfterCloseIsNoop ensures a torn-down session silently drops
// further Deliver calls rather than attempting a write on a closed conn.
func TestDeliverAfterCloseIsNoop(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	s := newTestSession(serverConn)
	s.closed.Store(true)

	s.Deliver(&hub.Message{Payload: []byte("should not be sent")})
	s.teardownWG.Wait() // Deliver must not have spawned sendLoop
}

func readClientMessage(conn net.Conn) ([]byte, ws.OpCode, error) {
	data, op, err := wsutil.ReadServerData(conn)
	return data, op, err
}
