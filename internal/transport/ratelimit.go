package transport

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

// rateLimitedListener wraps a net.Listener and blocks Accept until the
// limiter admits a new connection. It protects the accept loop from a
// connection storm without touching per-message fan-out or coalescing
// semantics, which stay entirely within session.Session. Grounded on the
// pack's broader use of connection-admission limiting (ws/internal/single/
// limits' hand-rolled token bucket, adopted here via the stdlib-adjacent
// golang.org/x/time/rate instead).
type rateLimitedListener struct {
	net.Listener
	limiter *rate.Limiter
}

func newRateLimitedListener(inner net.Listener, r rate.Limit, burst int) *rateLimitedListener {
	return &rateLimitedListener{
		Listener: inner,
		limiter:  rate.NewLimiter(r, burst),
	}
}

func (l *rateLimitedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if err := l.limiter.Wait(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
