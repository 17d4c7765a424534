// Package fetcher obtains one token per credential from the remote
// token-issuing endpoints, failing over across the endpoint set.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tokend/pkg/credentials"
	"github.com/papercomputeco/tokend/pkg/endpoints"
)

const (
	defaultRequestTimeout = 5 * time.Second
)

var (
	errMissingEndpoints = errors.New("token endpoints are required")

	// ErrAllEndpointsFailed indicates every endpoint was tried without
	// yielding a token. Expected under normal operation for a fraction of
	// credentials; callers treat it as "no token", not as a batch failure.
	ErrAllEndpointsFailed = errors.New("all token endpoints failed")
)

type tokenResponse struct {
	Token string `json:"token"`
}

// Config configures a Fetcher.
type Config struct {
	Endpoints      []string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Fetcher fetches tokens over HTTP GET with uid/password query parameters.
type Fetcher struct {
	endpoints      []string
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *zap.Logger
}

// New creates a Fetcher using the provided config.
func New(c Config) (*Fetcher, error) {
	if len(c.Endpoints) == 0 {
		return nil, errMissingEndpoints
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		endpoints:      c.Endpoints,
		requestTimeout: timeout,
		httpClient:     httpClient,
		logger:         logger,
	}, nil
}

// FetchToken obtains a token for one credential. Endpoints are tried in a
// fresh random order; the first HTTP 200 with a non-empty token field wins
// and no further endpoints are tried. Every per-endpoint failure advances to
// the next endpoint; only exhausting the whole set is an error.
func (f *Fetcher) FetchToken(ctx context.Context, cred credentials.Credential) (string, error) {
	for _, endpoint := range endpoints.Order(f.endpoints) {
		token, err := f.fetchFromEndpoint(ctx, endpoint, cred)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			f.logger.Debug("token endpoint attempt failed",
				zap.String("endpoint", endpoint),
				zap.String("uid", cred.UID),
				zap.Error(err),
			)
			continue
		}
		return token, nil
	}

	return "", fmt.Errorf("%w for uid %s", ErrAllEndpointsFailed, cred.UID)
}

func (f *Fetcher) fetchFromEndpoint(ctx context.Context, endpoint string, cred credentials.Credential) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.requestTimeout)
	defer cancel()

	reqURL, err := buildTokenURL(endpoint, cred)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d)", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	if parsed.Token == "" {
		return "", errors.New("token response missing token")
	}

	return parsed.Token, nil
}

func buildTokenURL(endpoint string, cred credentials.Credential) (string, error) {
	tokenURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid token endpoint: %w", err)
	}

	q := tokenURL.Query()
	q.Set("uid", cred.UID)
	q.Set("password", cred.Password)
	tokenURL.RawQuery = q.Encode()

	return tokenURL.String(), nil
}
