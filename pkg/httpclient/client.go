package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/openshelf/openshelf/pkg/config"
)

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 10 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Options struct {
	// Name identifies the upstream in logs and in the circuit breaker.
	Name            string
	UserAgent       string
	Timeout         time.Duration
	RateLimit       float64
	MaxRetries      int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client is an outbound HTTP client for one upstream. Requests are rate
// limited, retried on 429 and 5xx, and short-circuited while the upstream
// keeps failing.
type Client struct {
	name       string
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	maxRetries int
	backoff    time.Duration
}

func New(opts Options) *Client {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	failures := opts.BreakerFailures
	name := opts.Name

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			// A 404 means the upstream is healthy and simply had nothing.
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.New().Warn("circuit breaker state change", logger.Data{
				"upstream": name,
				"from":     from.String(),
				"to":       to.String(),
			})
		},
	})

	return &Client{
		name:       name,
		userAgent:  opts.UserAgent,
		http:       &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		breaker:    breaker,
		maxRetries: opts.MaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// NewFromConfig builds a client for the named upstream using the shared
// HTTP settings.
func NewFromConfig(name string, cfg *config.Config) *Client {
	return New(Options{
		Name:            name,
		UserAgent:       cfg.HTTPUserAgent,
		Timeout:         cfg.HTTPClientTimeout,
		RateLimit:       cfg.HTTPRateLimit,
		MaxRetries:      cfg.HTTPMaxRetries,
		BreakerFailures: cfg.CircuitBreakerFailures,
		BreakerTimeout:  cfg.CircuitBreakerTimeout,
	})
}

func (c *Client) Name() string {
	return c.name
}

// Get fetches url and returns the response body. Non-2xx responses return a
// *StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.getWithRetry(ctx, url)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s request failed", c.name)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into target.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.Wrapf(err, "%s returned invalid json", c.name)
	}
	return nil
}

func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << uint(attempt-1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, errors.WithStack(ctx.Err())
			}
		}

		body, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.WithStack(ctx.Err())
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return body, nil
}
