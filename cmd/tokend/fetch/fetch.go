// Package fetchcmder provides the fetch command for one-shot token
// refreshes.
package fetchcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tokend/pkg/config"
	"github.com/papercomputeco/tokend/pkg/credentials"
	"github.com/papercomputeco/tokend/pkg/fetcher"
	"github.com/papercomputeco/tokend/pkg/tokencache"
)

const fetchLongDesc string = `Refresh one server key and print its tokens.

Runs a single refresh against the token endpoints using the key's stored
credential pool and prints one token per line. Zero lines is a valid,
degraded outcome when no credential yields a token.

Examples:
  tokend fetch ALPHA
  TOKEND_BATCH_SIZE=5 tokend fetch ALPHA`

const fetchShortDesc string = "Refresh one server key and print its tokens"

func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <key>",
		Short: fetchShortDesc,
		Long:  fetchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runFetch(cmd, args[0], configDir)
		},
	}
}

func runFetch(cmd *cobra.Command, key, configDir string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
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

	cache, err := tokencache.New(tokencache.Config{
		Source:           mgr,
		Fetcher:          f,
		TTL:              cfg.TTL,
		RefreshThreshold: cfg.RefreshThreshold,
		BatchSize:        cfg.BatchSize,
		TaskTimeout:      cfg.TaskTimeout,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}

	for _, token := range cache.GetTokens(cmd.Context(), key) {
		fmt.Fprintln(cmd.OutOrStdout(), token)
	}

	return nil
}
