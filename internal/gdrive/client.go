package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Retry and request constants.
const (
	// DefaultMaxAttempts bounds the retry loop when no configuration
	// overrides it.
	DefaultMaxAttempts = 5

	// DefaultBaseURL is the Drive v3 REST endpoint.
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"

	backoffUnit = 1 * time.Second
	userAgent   = "drivepull/0.1"
)

// resourceKeyHeader carries the access key for link-shared resources.
// Format: "{fileID}/{resourceKey}".
const resourceKeyHeader = "X-Goog-Drive-Resource-Keys"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// per Go convention "accept interfaces, return structs". The auth code
// in this package provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Google Drive v3 API. It handles
// request construction, authentication, bounded exponential-backoff
// retry on transient failures, and error classification.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       TokenSource
	maxAttempts int
	logger      *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Drive API client. baseURL is typically
// DefaultBaseURL. maxAttempts bounds the retry loop for transient
// failures; values below 1 fall back to DefaultMaxAttempts.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, maxAttempts int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		token:       token,
		maxAttempts: maxAttempts,
		logger:      logger,
		sleepFunc:   timeSleep,
	}
}

// Do executes an HTTP request against the Drive API. The path is
// appended to the client's base URL; extra headers (Range, resource
// keys) are merged into the request.
//
// Transient failures — transport errors and the rate-limit/unavailable
// status class (403, 429, 500, 503) — are retried with exponential
// backoff (2^attempt units) up to the client's attempt budget, after
// which the last error is wrapped in ErrRetriesExhausted. Any other
// non-2xx status is returned immediately as a *DriveError.
//
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, extra http.Header) (*http.Response, error) {
	url := c.baseURL + path

	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		resp, err := c.doOnce(ctx, method, url, extra)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("gdrive: request canceled: %w", ctx.Err())
			}

			lastErr = err
		} else {
			// 2xx — success.
			if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
				c.logger.Debug("request succeeded",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("status", resp.StatusCode),
				)

				return resp, nil
			}

			// Read and close body for error responses.
			errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			resp.Body.Close()

			if readErr != nil {
				errBody = []byte("(failed to read response body)")
			}

			driveErr := &DriveError{
				StatusCode: resp.StatusCode,
				Message:    string(errBody),
				Err:        classifyStatus(resp.StatusCode),
			}

			// Permanent failures propagate immediately without
			// consuming the retry budget.
			if !isTransient(resp.StatusCode) {
				return nil, driveErr
			}

			lastErr = driveErr
		}

		backoff := backoffDelay(attempt)
		c.logger.Warn("transient failure, backing off",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", lastErr.Error()),
		)

		if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
			return nil, fmt.Errorf("gdrive: request canceled: %w", sleepErr)
		}
	}

	c.logger.Error("retries exhausted",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("attempts", c.maxAttempts),
	)

	return nil, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, method, path, c.maxAttempts, lastErr)
}

// maxErrorBodyBytes caps how much of an error response body is kept
// for the error message.
const maxErrorBodyBytes = 4 << 10

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, method, url string, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	for key, values := range extra {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return c.httpClient.Do(req)
}

// backoffDelay computes the delay before the next attempt:
// 2^attempt backoff units, attempt counting from 0.
func backoffDelay(attempt int) time.Duration {
	return backoffUnit << attempt
}

// resourceKeyHeaderFor builds the header set for a link-shared resource.
// Returns nil when the node carries no access key.
func resourceKeyHeaderFor(fileID, resourceKey string) http.Header {
	if resourceKey == "" {
		return nil
	}

	h := http.Header{}
	h.Set(resourceKeyHeader, fileID+"/"+resourceKey)

	return h
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
