// ABOUTME: Backoff-wrapped clients for the query and insight services
// ABOUTME: Retries transient failures with jittered exponential delays

package adapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how transient adapter failures are retried.
type RetryPolicy struct {
	MaxAttempts  int           // total attempts including the first call
	InitialDelay time.Duration // delay before the first retry
	Multiplier   float64       // delay growth factor
	MaxDelay     time.Duration // ceiling for a single delay
}

// DefaultRetryPolicy matches the external services' documented rate limits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     60 * time.Second,
	}
}

// newBackOff builds a jittered exponential backoff honoring the policy and
// the caller's context. MaxAttempts-1 retries follow the initial call.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialDelay
	bo.Multiplier = p.Multiplier
	bo.MaxInterval = p.MaxDelay
	bo.MaxElapsedTime = 0 // attempts are the only ceiling

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)
}

// RetryingQueryClient wraps a QueryClient with the retry policy. Rate-limit
// and availability errors are retried; everything else fails immediately.
type RetryingQueryClient struct {
	inner  QueryClient
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryingQueryClient wraps inner with policy.
func NewRetryingQueryClient(inner QueryClient, policy RetryPolicy, logger *slog.Logger) *RetryingQueryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingQueryClient{
		inner:  inner,
		policy: policy,
		logger: logger.With("component", "query-adapter"),
	}
}

// Query calls the wrapped client, retrying ErrRateLimited and ErrUnavailable.
func (c *RetryingQueryClient) Query(ctx context.Context, question string) (*QueryResult, error) {
	op := func() (*QueryResult, error) {
		result, err := c.inner.Query(ctx, question)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("query failed, backing off", "error", err, "wait", wait)
	}

	return backoff.RetryNotifyWithData(op, c.policy.newBackOff(ctx), notify)
}

// RetryingInsightClient wraps an InsightClient with the retry policy. Only
// rate-limit errors are retried. An invalid response never surfaces as a
// failure: the caller gets a default bar chart and a generic summary instead.
type RetryingInsightClient struct {
	inner  InsightClient
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryingInsightClient wraps inner with policy.
func NewRetryingInsightClient(inner InsightClient, policy RetryPolicy, logger *slog.Logger) *RetryingInsightClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingInsightClient{
		inner:  inner,
		policy: policy,
		logger: logger.With("component", "insight-adapter"),
	}
}

// Recommend calls the wrapped client, retrying ErrRateLimited and degrading
// ErrInvalidResponse to a fallback recommendation.
func (c *RetryingInsightClient) Recommend(ctx context.Context, req *InsightRequest) (*Recommendation, error) {
	op := func() (*Recommendation, error) {
		rec, err := c.inner.Recommend(ctx, req)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return rec, nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("insight call failed, backing off", "error", err, "wait", wait)
	}

	rec, err := backoff.RetryNotifyWithData(op, c.policy.newBackOff(ctx), notify)
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			c.logger.Warn("insight response unusable, falling back to default chart", "error", err)
			return FallbackRecommendation(req), nil
		}
		return nil, err
	}
	return rec, nil
}
