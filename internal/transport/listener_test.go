package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/adred-codev/pubsub-relay/internal/config"
	"github.com/adred-codev/pubsub-relay/internal/hub"
	"github.com/adred-codev/pubsub-relay/internal/metrics"
)

func startTestListener(t *testing.T) (addr string, stop func()) {
	t.Helper()

	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // let the OS pick a free port
	cfg.Metrics.Enabled = false
	cfg.PingDuration = time.Hour

	l := New(cfg, zap.NewNop().Sugar(), hub.NewChannelHub(), metrics.NewRegistry())
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	return l.wsListener.Addr().String(), l.Stop
}

func dial(t *testing.T, addr, path string) net.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, _, err := ws.Dialer{}.Dial(ctx, fmt.Sprintf("ws://%s%s", addr, path))
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

// readPingDuration reads the one text frame every session sends right
// after upgrade: the keep-alive interval, hex-encoded.
func readPingDuration(t *testing.T, conn net.Conn) {
	t.Helper()
	_, _, err := wsutil.ReadServerData(conn)
	if err != nil {
		t.Fatalf("read ping-duration frame: %v", err)
	}
}

func TestEndToEndBasicRelay(t *testing.T) {
	addr, stop := startTestListener(t)
	defer stop()

	sub := dial(t, addr, "/weather/sub")
	defer sub.Close()
	readPingDuration(t, sub)

	pub := dial(t, addr, "/weather/pub")
	defer pub.Close()
	readPingDuration(t, pub)

	if err := wsutil.WriteClientMessage(pub, ws.OpText, []byte("sunny")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	data, op, err := wsutil.ReadServerData(sub)
	if err != nil {
		t.Fatalf("subscriber read: %v", err)
	}
	if op != ws.OpText || string(data) != "sunny" {
		t.Fatalf("subscriber got op=%v data=%q, want text %q", op, data, "sunny")
	}
}

func TestEndToEndBinaryPreserved(t *testing.T) {
	addr, stop := startTestListener(t)
	defer stop()

	sub := dial(t, addr, "/telemetry/sub")
	defer sub.Close()
	readPingDuration(t, sub)

	pub := dial(t, addr, "/telemetry/pub")
	defer pub.Close()
	readPingDuration(t, pub)

	payload := []byte{0x00, 0x01, 0xff, 0x42}
	if err := wsutil.WriteClientMessage(pub, ws.OpBinary, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	data, op, err := wsutil.ReadServerData(sub)
	if err != nil {
		t.Fatalf("subscriber read: %v", err)
	}
	if op != ws.OpBinary {
		t.Fatalf("op = %v, want OpBinary", op)
	}
	if string(data) != string(payload) {
		t.Fatalf("data = %v, want %v", data, payload)
	}
}

func TestEndToEndFanOutToMultipleSubscribers(t *testing.T) {
	addr, stop := startTestListener(t)
	defer stop()

	const n = 3
	subs := make([]net.Conn, n)
	for i := range subs {
		subs[i] = dial(t, addr, "/news/sub")
		defer subs[i].Close()
		readPingDuration(t, subs[i])
	}

	pub := dial(t, addr, "/news/pub")
	defer pub.Close()
	readPingDuration(t, pub)

	if err := wsutil.WriteClientMessage(pub, ws.OpText, []byte("breaking")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for i, c := range subs {
		data, _, err := wsutil.ReadServerData(c)
		if err != nil {
			t.Fatalf("subscriber %d read: %v", i, err)
		}
		if string(data) != "breaking" {
			t.Fatalf("subscriber %d got %q, want %q", i, data, "breaking")
		}
	}
}

func TestEndToEndBadPathReturns404(t *testing.T) {
	addr, stop := startTestListener(t)
	defer stop()

	resp, err := http.Get(fmt.Sprintf("http://%s/weather", addr))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEndToEndPublishAfterLastSubscriberLeaves(t *testing.T) {
	addr, stop := startTestListener(t)
	defer stop()

	cfg, _ := config.Load(nil)
	_ = cfg

	sub := dial(t, addr, "/ephemeral/sub")
	readPingDuration(t, sub)
	sub.Close()

	// Give the session's teardown goroutine time to run after the peer
	// close is observed.
	time.Sleep(100 * time.Millisecond)

	pub := dial(t, addr, "/ephemeral/pub")
	defer pub.Close()
	readPingDuration(t, pub)

	// A fresh publish with no subscribers left must not panic or hang;
	// the absence of a panic/deadlock is the assertion here.
	if err := wsutil.WriteClientMessage(pub, ws.OpText, []byte("nobody's listening")); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
