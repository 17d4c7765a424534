// Package servecmder provides the serve command running the token cache
// HTTP service.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tokend/pkg/config"
	"github.com/papercomputeco/tokend/pkg/credentials"
	"github.com/papercomputeco/tokend/pkg/fetcher"
	"github.com/papercomputeco/tokend/pkg/publisher"
	"github.com/papercomputeco/tokend/pkg/publisher/kafka"
	"github.com/papercomputeco/tokend/pkg/server"
	"github.com/papercomputeco/tokend/pkg/tokencache"
)

const serveLongDesc string = `Run the token cache HTTP service.

Serves cached tokens per server key; a request that finds a key absent or
stale blocks while the key's credential pool is refreshed against the token
endpoints. Tunables (endpoints, TTL, refresh threshold, batch size, timeouts,
Kafka publishing) come from TOKEND_* environment variables.

Endpoints:
  GET /healthz           Liveness probe
  GET /v1/tokens/:key    Token list for a server key`

const serveShortDesc string = "Run the token cache HTTP service"

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runServe(cmd.Context(), configDir)
		},
	}
}

func runServe(ctx context.Context, configDir string) error {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fetcherCfg := cfg.FetcherConfig()
	fetcherCfg.Logger = logger
	f, err := fetcher.New(fetcherCfg)
	if err != nil {
		return fmt.Errorf("creating fetcher: %w", err)
	}

	pub, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer func() { _ = pub.Close() }()

	cache, err := tokencache.New(tokencache.Config{
		Source:           mgr,
		Fetcher:          f,
		TTL:              cfg.TTL,
		RefreshThreshold: cfg.RefreshThreshold,
		BatchSize:        cfg.BatchSize,
		TaskTimeout:      cfg.TaskTimeout,
		Publisher:        pub,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A changed credential file invalidates its key so the next read picks
	// up the new pool without waiting out the threshold.
	keys, err := mgr.Watch(ctx, logger)
	if err != nil {
		logger.Warn("credential watcher unavailable", zap.Error(err))
	} else {
		go func() {
			for key := range keys {
				cache.Invalidate(key)
			}
		}()
	}

	srv, err := server.New(server.Config{
		Tokens: cache,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Listen(cfg.ListenAddr)
	}()

	select {
	case serveErr := <-serveErrCh:
		return serveErr
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	return srv.Shutdown()
}

func newPublisher(cfg config.Config) (publisher.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
		return publisher.NewNopPublisher(), nil
	}

	return kafka.NewPublisher(kafka.Config{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		ClientID: cfg.KafkaClientID,
	})
}
