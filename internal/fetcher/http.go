package fetcher

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/resilience"
)

// DefaultUserAgent identifies the client to the utility's web servers.
const DefaultUserAgent = "meralco-rates-cli/0.1.0"

// maxBodyBytes caps a single response; rate schedule PDFs are a few MB.
const maxBodyBytes = 64 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryPolicy
	// TLS is the verified transport configuration. Nil uses NewTLSConfig("").
	TLS *tls.Config
	// Transport overrides the round tripper built from TLS. Tests use it to
	// reach httptest TLS servers.
	Transport http.RoundTripper
}

// HTTPFetcher implements Fetcher using net/http with retry on 429, 5xx, and
// connection failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = resilience.DefaultRetryPolicy().MaxAttempts
	}

	transport := opts.Transport
	if transport == nil {
		tlsCfg := opts.TLS
		if tlsCfg == nil {
			var err error
			tlsCfg, err = NewTLSConfig("")
			if err != nil {
				return nil, eris.Wrap(err, "fetcher: tls config")
			}
		}
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     tlsCfg.Clone(),
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts: opts,
	}, nil
}

// Fetch GETs rawURL and returns the body. Transient failures are retried per
// the configured policy; exhaustion yields *FetchExhaustedError, a non-429 4xx
// yields *FetchError immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	policy := f.opts.Retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger(rawURL, policy.MaxAttempts)
	}

	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context, attempt int) ([]byte, error) {
		return f.attempt(ctx, rawURL, attempt)
	})
	if err == nil {
		return body, nil
	}

	if ctx.Err() == nil && resilience.IsTransient(err) {
		return nil, &FetchExhaustedError{URL: rawURL, Attempts: policy.MaxAttempts, Err: err}
	}
	return nil, err
}

func (f *HTTPFetcher) attempt(ctx context.Context, rawURL string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resilience.NewTransientError(
			eris.Errorf("http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// A truncated body is a connection-level failure.
		return nil, resilience.NewTransientError(eris.Wrap(err, "fetch: read body"), 0)
	}

	zap.L().Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Int("attempt", attempt+1),
	)
	return body, nil
}
