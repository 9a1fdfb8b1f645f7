// Command pubsub-server runs the WebSocket publish/subscribe relay:
//
//	pubsub-server <address> <port> <threads> <ping-duration-ms>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/adred-codev/pubsub-relay/internal/config"
	"github.com/adred-codev/pubsub-relay/internal/hub"
	"github.com/adred-codev/pubsub-relay/internal/logging"
	"github.com/adred-codev/pubsub-relay/internal/metrics"
	"github.com/adred-codev/pubsub-relay/internal/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// automaxprocs already matched GOMAXPROCS to the cgroup CPU quota, but
	// config.Load always yields Threads >= 1 (default 1), so this replaces
	// that value with the configured <threads> count on every start.
	if cfg.Threads > 0 {
		runtime.GOMAXPROCS(cfg.Threads)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	registry := metrics.NewRegistry()
	channelHub := hub.NewChannelHub()
	listener := transport.New(cfg, sugar, channelHub, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := listener.Start(ctx); err != nil {
		sugar.Fatalw("listener start failed", "error", err)
	}

	<-ctx.Done()
	sugar.Info("shutdown signal received")
	listener.Stop()
	sugar.Info("listener stopped")
}
