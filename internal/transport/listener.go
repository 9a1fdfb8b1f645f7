// Package transport owns the TCP acceptor and dispatches each accepted
// connection to a new session.Session bound to the shared channel hub.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adred-codev/pubsub-relay/internal/config"
	"github.com/adred-codev/pubsub-relay/internal/hub"
	"github.com/adred-codev/pubsub-relay/internal/metrics"
	"github.com/adred-codev/pubsub-relay/internal/session"
)

// Listener owns the WebSocket-facing TCP acceptor and the companion
// /health + /metrics HTTP surface. On each accepted socket it hands off to
// a fresh session.Session; accept errors are logged and the loop
// continues, per §4.5.
type Listener struct {
	cfg     config.Config
	logger  *zap.SugaredLogger
	hub     *hub.ChannelHub
	metrics *metrics.Registry

	wsServer      *http.Server
	wsListener    net.Listener
	metricsServer *http.Server

	wg sync.WaitGroup
}

// New constructs a Listener. It does not bind a socket until Start.
func New(cfg config.Config, logger *zap.SugaredLogger, h *hub.ChannelHub, reg *metrics.Registry) *Listener {
	l := &Listener{cfg: cfg, logger: logger, hub: h, metrics: reg}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)
	l.wsServer = &http.Server{Handler: mux}

	return l
}

// Start binds the WebSocket listener and, if enabled, the metrics
// listener, and begins serving both in the background. It returns once
// the WebSocket socket is bound; Stop performs graceful shutdown of both.
func (l *Listener) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Server.Host, l.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.wsListener = newRateLimitedListener(ln, rate.Limit(l.cfg.Server.AcceptRatePerSec), l.cfg.Server.AcceptBurst)
	l.logger.Infow("websocket listener starting", "addr", addr)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.wsServer.Serve(l.wsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Errorw("websocket server stopped", "error", err)
		}
	}()

	if l.cfg.Metrics.Enabled {
		l.startMetricsServer()
	}

	return nil
}

func (l *Listener) startMetricsServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", l.handleHealth)
	mux.Handle(l.cfg.Metrics.Endpoint, l.metrics.Handler())

	l.metricsServer = &http.Server{
		Addr:         l.cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.logger.Infow("metrics http server starting", "addr", l.cfg.Metrics.ListenAddr)
		if err := l.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Errorw("metrics http server stopped", "error", err)
		}
	}()
}

// Stop gracefully shuts both HTTP surfaces down and waits for their serve
// goroutines to return.
func (l *Listener) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.wsServer.Shutdown(ctx); err != nil {
		l.logger.Warnw("websocket server shutdown error", "error", err)
	}
	if l.metricsServer != nil {
		if err := l.metricsServer.Shutdown(ctx); err != nil {
			l.logger.Warnw("metrics server shutdown error", "error", err)
		}
	}

	l.wg.Wait()
}

// handleUpgrade instantiates a fresh Session per request and drives it to
// completion. net/http already dispatches each request on its own
// goroutine, satisfying §4.5's "own execution context per connection".
func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	s := session.New(l.hub, l.cfg.PingDuration, l.logger, l.metrics)
	s.Serve(w, r)
}

func (l *Listener) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := metrics.SampleProcess()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"channels":  l.hub.Count(),
		"process":   snap,
	})
}
