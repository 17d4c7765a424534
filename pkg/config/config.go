// Package config loads runtime tunables from TOKEND_* environment variables
// on top of built-in defaults. Tunables are deliberately not CLI flags; the
// endpoint set, cache lifetimes, and batch limits are deployment constants.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/tokend/pkg/endpoints"
	"github.com/papercomputeco/tokend/pkg/fetcher"
	"github.com/papercomputeco/tokend/pkg/tokencache"
)

const (
	defaultListenAddr     = ":8080"
	defaultRequestTimeout = 5 * time.Second
)

// Config holds the runtime tunables for the token service.
type Config struct {
	ListenAddr string

	Endpoints        []string
	TTL              time.Duration
	RefreshThreshold time.Duration
	BatchSize        int
	RequestTimeout   time.Duration
	TaskTimeout      time.Duration

	KafkaBrokers  []string
	KafkaTopic    string
	KafkaClientID string
}

// Load returns the configuration with any TOKEND_* overrides applied.
func Load() Config {
	cfg := Config{
		ListenAddr:       defaultListenAddr,
		Endpoints:        endpoints.DefaultEndpoints,
		TTL:              tokencache.DefaultTTL,
		RefreshThreshold: tokencache.DefaultRefreshThreshold,
		BatchSize:        tokencache.DefaultBatchSize,
		RequestTimeout:   defaultRequestTimeout,
		TaskTimeout:      tokencache.DefaultTaskTimeout,
	}

	if v := strings.TrimSpace(os.Getenv("TOKEND_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_ENDPOINTS")); v != "" {
		cfg.Endpoints = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_REFRESH_THRESHOLD")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.RefreshThreshold = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_BATCH_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_TASK_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.TaskTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_KAFKA_TOPIC")); v != "" {
		cfg.KafkaTopic = v
	}
	if v := strings.TrimSpace(os.Getenv("TOKEND_KAFKA_CLIENT_ID")); v != "" {
		cfg.KafkaClientID = v
	}

	return cfg
}

// FetcherConfig returns the fetcher configuration slice of the tunables.
func (c Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Endpoints:      c.Endpoints,
		RequestTimeout: c.RequestTimeout,
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
