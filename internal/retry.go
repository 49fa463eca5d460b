package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

// API is the call surface shared by Gateway and RetryGateway.
type API interface {
	Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
	Post(ctx context.Context, endpoint string, data url.Values, asPut bool) (json.RawMessage, error)
}

// RetryPolicy configures RetryGateway.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first. Values below 2 disable retrying.
	Attempts uint
	// Delay is the initial backoff between tries.
	Delay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// MaxJitter adds up to this much random delay to each backoff.
	MaxJitter time.Duration
}

// RetryGateway decorates an API with retries for transport failures, 429 and 5xx
// responses. Other errors are returned on the first failure.
type RetryGateway struct {
	next   API
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryGateway wraps next with policy.
func NewRetryGateway(next API, policy RetryPolicy, logger *slog.Logger) *RetryGateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy.Delay <= 0 {
		policy.Delay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	return &RetryGateway{next: next, policy: policy, logger: logger}
}

// Get implements API.
func (r *RetryGateway) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return r.do(ctx, endpoint, func() (json.RawMessage, error) {
		return r.next.Get(ctx, endpoint, params)
	})
}

// Post implements API.
func (r *RetryGateway) Post(ctx context.Context, endpoint string, data url.Values, asPut bool) (json.RawMessage, error) {
	return r.do(ctx, endpoint, func() (json.RawMessage, error) {
		return r.next.Post(ctx, endpoint, data, asPut)
	})
}

func (r *RetryGateway) do(ctx context.Context, endpoint string, call func() (json.RawMessage, error)) (json.RawMessage, error) {
	if r.policy.Attempts < 2 {
		return call()
	}

	var (
		body    json.RawMessage
		lastErr error
	)
	err := retry.Do(
		func() error {
			var err error
			body, err = call()
			if err != nil {
				lastErr = err
				if !Retryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Attempts(r.policy.Attempts),
		retry.Delay(r.policy.Delay),
		retry.MaxDelay(r.policy.MaxDelay),
		retry.MaxJitter(r.policy.MaxJitter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Info("retrying request after error", "endpoint", endpoint, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return body, nil
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	var httpErr *pkgerrs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var reqErr *pkgerrs.RequestError
	return errors.As(err, &reqErr)
}
