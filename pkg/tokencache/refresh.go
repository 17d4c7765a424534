package tokencache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/tokend/pkg/credentials"
	"github.com/papercomputeco/tokend/pkg/publisher"
)

var (
	errMissingSource  = errors.New("credential source is required")
	errMissingFetcher = errors.New("token fetcher is required")
)

type fetchResult struct {
	token string
	err   error
}

// refresh re-fetches tokens for all of a key's credentials and replaces the
// cache entry wholesale. Called with c.mu held. Failures degrade to an empty
// or partial list; nothing propagates to the caller.
func (c *Cache) refresh(ctx context.Context, key string) {
	start := time.Now()

	creds, err := c.source.Load(key)
	if err != nil {
		c.logger.Error("loading credentials failed",
			zap.String("key", key),
			zap.Error(err),
		)
		creds = nil
	}

	if len(creds) == 0 {
		c.logger.Warn("no credentials for key, clearing entry", zap.String("key", key))
		c.storeEntry(key, []string{})
		c.publish(ctx, key, 0, time.Since(start))
		return
	}

	tokens := c.fetchBatch(ctx, key, creds)
	c.storeEntry(key, tokens)

	if len(tokens) == 0 {
		c.logger.Warn("refresh yielded no tokens",
			zap.String("key", key),
			zap.Int("credentials", len(creds)),
		)
	} else {
		c.logger.Info("refreshed tokens",
			zap.String("key", key),
			zap.Int("credentials", len(creds)),
			zap.Int("tokens", len(tokens)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	c.publish(ctx, key, len(tokens), time.Since(start))
}

// fetchBatch runs one fetch task per credential with at most batchSize tasks
// in flight. Results are deduplicated on arrival: two credentials yielding
// the identical token string contribute one entry. Order is first-arrival
// order and carries no guarantee.
func (c *Cache) fetchBatch(ctx context.Context, key string, creds []credentials.Credential) []string {
	var (
		mu     sync.Mutex
		seen   = make(map[string]struct{}, len(creds))
		tokens = make([]string, 0, len(creds))
	)

	g := new(errgroup.Group)
	g.SetLimit(c.batchSize)

	for _, cred := range creds {
		cred := cred
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
			defer cancel()

			// The fetch runs in its own goroutine so a fetcher that ignores
			// cancellation can be abandoned at the timeout; a late result is
			// simply discarded.
			resultCh := make(chan fetchResult, 1)
			go func() {
				token, err := c.fetcher.FetchToken(taskCtx, cred)
				resultCh <- fetchResult{token: token, err: err}
			}()

			select {
			case <-taskCtx.Done():
				c.logger.Warn("token fetch abandoned",
					zap.String("key", key),
					zap.String("uid", cred.UID),
				)
			case res := <-resultCh:
				if res.err != nil {
					c.logger.Debug("credential yielded no token",
						zap.String("key", key),
						zap.String("uid", cred.UID),
						zap.Error(res.err),
					)
					return nil
				}
				mu.Lock()
				if _, dup := seen[res.token]; !dup {
					seen[res.token] = struct{}{}
					tokens = append(tokens, res.token)
				}
				mu.Unlock()
			}

			return nil
		})
	}

	// Tasks never return errors; Wait only joins the batch. Wall time is
	// bounded at roughly ceil(len(creds)/batchSize) * taskTimeout.
	_ = g.Wait()

	return tokens
}

func (c *Cache) publish(ctx context.Context, key string, tokenCount int, elapsed time.Duration) {
	if c.pub == nil {
		return
	}

	event, err := publisher.NewEvent(key, tokenCount, elapsed)
	if err != nil {
		c.logger.Warn("building refresh event failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.pub.Publish(ctx, event); err != nil {
		c.logger.Warn("publishing refresh event failed", zap.String("key", key), zap.Error(err))
	}
}
