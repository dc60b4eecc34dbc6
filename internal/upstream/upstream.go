package upstream

// Shared retrying HTTP client used by the vehicle broker and the topology
// service calls. Both upstreams misbehave in the same ways (5xx bursts,
// hanging connections), so the retry/backoff policy lives here once.

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 10 * time.Second
)

// Options parameterizes a Client. Zero fields fall back to the defaults
// above.
type Options struct {
	MaxAttempts int
	Timeout     time.Duration
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

type Client struct {
	httpClient  *http.Client
	maxAttempts int
	timeout     time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewClient(options Options) *Client {
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultMaxAttempts
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.BackoffBase <= 0 {
		options.BackoffBase = DefaultBackoffBase
	}
	if options.BackoffCap <= 0 {
		options.BackoffCap = DefaultBackoffCap
	}
	return &Client{
		httpClient:  &http.Client{},
		maxAttempts: options.MaxAttempts,
		timeout:     options.Timeout,
		backoffBase: options.BackoffBase,
		backoffCap:  options.BackoffCap,
	}
}

// ClientError reports a terminal 4xx response. Retrying cannot fix those, so
// the call fails on the first attempt.
type ClientError struct {
	StatusCode int
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("upstream responded %d, not retrying", e.StatusCode)
}

// ExhaustedError reports that every configured attempt failed with a
// retryable condition (5xx or timeout).
type ExhaustedError struct {
	Attempts   int
	LastStatus int
	Err        error
}

func (e *ExhaustedError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("upstream still responded %d after %d attempts", e.LastStatus, e.Attempts)
	}
	return fmt.Sprintf("upstream unreachable after %d attempts: %s", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Get performs a retried GET. The optional header is sent on every attempt.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, header, "")
}

// PostForm performs a retried POST with an url-encoded form body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	header := http.Header{}
	header.Set("content-type", "application/x-www-form-urlencoded; param=value")
	return c.do(ctx, http.MethodPost, rawURL, header, form.Encode())
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body string) ([]byte, error) {
	var payload []byte
	var lastStatus int
	attempts := 0

	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reader)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "cannot build upstream request"))
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				// The inbound request went away, stop retrying.
				return backoff.Permanent(ctx.Err())
			}
			lastStatus = 0
			return err
		}
		defer resp.Body.Close()

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			payload, err = ioutil.ReadAll(resp.Body)
			return err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(&ClientError{StatusCode: resp.StatusCode})
		}
		return fmt.Errorf("upstream responded %d", resp.StatusCode)
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = c.backoffBase
	schedule.Multiplier = 2
	schedule.MaxInterval = c.backoffCap
	schedule.RandomizationFactor = 0
	schedule.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(schedule, uint64(c.maxAttempts-1)), ctx))
	if err == nil {
		return payload, nil
	}
	var terminal *ClientError
	if errors.As(err, &terminal) {
		return nil, terminal
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &ExhaustedError{Attempts: attempts, LastStatus: lastStatus, Err: err}
}
