// Package tokencache maintains a refreshable, time-bounded cache of
// authentication tokens per server key. Reads that find a key absent, stale,
// or never refreshed trigger a synchronous refresh across all of the key's
// credentials before returning. No failure in the refresh path is ever
// surfaced to callers; the contract is "always a list, possibly empty".
package tokencache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tokend/pkg/credentials"
	"github.com/papercomputeco/tokend/pkg/publisher"
)

const (
	// DefaultTTL is the cache entry lifetime.
	DefaultTTL = 7 * time.Hour

	// DefaultRefreshThreshold is the entry age past which a read triggers a
	// refresh. Strictly less than the TTL so a populated entry is renewed
	// before it ever fully expires, provided refreshes succeed.
	DefaultRefreshThreshold = 6 * time.Hour

	// DefaultBatchSize bounds concurrent in-flight fetches during a refresh.
	DefaultBatchSize = 25

	// DefaultTaskTimeout caps one credential's whole fetch attempt.
	DefaultTaskTimeout = 10 * time.Second
)

// CredentialSource loads the credential list for a server key. A key with no
// source yields an empty slice.
type CredentialSource interface {
	Load(key string) ([]credentials.Credential, error)
}

// TokenFetcher obtains one token for one credential. An error means the
// credential contributes nothing to the batch.
type TokenFetcher interface {
	FetchToken(ctx context.Context, cred credentials.Credential) (string, error)
}

// Config configures a Cache.
type Config struct {
	Source  CredentialSource
	Fetcher TokenFetcher

	TTL              time.Duration
	RefreshThreshold time.Duration
	BatchSize        int
	TaskTimeout      time.Duration

	// Publisher receives one event per completed refresh. Nil disables
	// publishing.
	Publisher publisher.Publisher

	Logger *zap.Logger

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

type entry struct {
	tokens      []string
	refreshedAt time.Time
	expiresAt   time.Time
}

// Cache is the process-scoped token cache. A single advisory lock covers the
// check-then-refresh sequence and entry replacement, so concurrent readers
// never race on the refresh decision. Holding it across the network phase
// serializes refreshes across keys; acceptable at this system's call volume.
type Cache struct {
	source           CredentialSource
	fetcher          TokenFetcher
	ttl              time.Duration
	refreshThreshold time.Duration
	batchSize        int
	taskTimeout      time.Duration
	pub              publisher.Publisher
	logger           *zap.Logger
	clock            func() time.Time

	mu          sync.Mutex
	entries     map[string]entry
	lastRefresh map[string]time.Time
}

// New creates a Cache using the provided config.
func New(c Config) (*Cache, error) {
	if c.Source == nil {
		return nil, errMissingSource
	}
	if c.Fetcher == nil {
		return nil, errMissingFetcher
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	threshold := c.RefreshThreshold
	if threshold <= 0 || threshold >= ttl {
		threshold = ttl * 6 / 7
	}
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	taskTimeout := c.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := c.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Cache{
		source:           c.Source,
		fetcher:          c.Fetcher,
		ttl:              ttl,
		refreshThreshold: threshold,
		batchSize:        batchSize,
		taskTimeout:      taskTimeout,
		pub:              c.Publisher,
		logger:           logger,
		clock:            clock,
		entries:          make(map[string]entry),
		lastRefresh:      make(map[string]time.Time),
	}, nil
}

// GetTokens returns the cached token list for a key, refreshing it first when
// the entry is absent, was never refreshed, or is older than the refresh
// threshold. The refresh is synchronous; the caller blocks until it finishes.
// A key that never yielded tokens returns an empty list, never an error.
func (c *Cache) GetTokens(ctx context.Context, key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.refreshDue(key, now) {
		c.refresh(ctx, key)
		// Advance unconditionally, success or failure, so a failing endpoint
		// set is retried only after the threshold elapses again.
		c.lastRefresh[key] = c.clock()
	}

	e, ok := c.entries[key]
	if !ok || now.After(e.expiresAt) {
		return []string{}
	}

	return e.tokens
}

// Invalidate clears a key's refresh record so the next read refreshes
// eagerly. Cached tokens stay served until then.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.lastRefresh, key)
}

// LastRefresh returns the time of the last refresh attempt for a key, or the
// zero time if it was never refreshed.
func (c *Cache) LastRefresh(key string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastRefresh[key]
}

func (c *Cache) refreshDue(key string, now time.Time) bool {
	if _, ok := c.entries[key]; !ok {
		return true
	}
	last, ok := c.lastRefresh[key]
	if !ok {
		return true
	}
	return now.Sub(last) > c.refreshThreshold
}

func (c *Cache) storeEntry(key string, tokens []string) {
	now := c.clock()
	c.entries[key] = entry{
		tokens:      tokens,
		refreshedAt: now,
		expiresAt:   now.Add(c.ttl),
	}
}
