// Package adapter defines the call contracts for the two external services
// the worker pool depends on, and the retry discipline around them.
//
// # Contracts
//
//   - QueryClient: natural-language question -> SQL text + tabular result
//   - InsightClient: result set + question -> summary and chart recommendation
//
// # Error taxonomy
//
// Implementations report failures through the shared sentinels
// (ErrRateLimited, ErrAuthFailed, ErrUnavailable, ErrNoSpace,
// ErrInvalidResponse) so wrappers can classify them uniformly.
//
// # Retry discipline
//
// RetryingQueryClient and RetryingInsightClient apply jittered exponential
// backoff (default 3 attempts, 1s initial delay, 2x growth, 60s cap) to the
// transient subset of the taxonomy. An insight ErrInvalidResponse never
// surfaces: it degrades to FallbackRecommendation, a bar chart built directly
// from the result set.
//
// # Implementations
//
// GenieClient and InsightHTTPClient are thin JSON-over-HTTP clients.
// MockQueryClient fabricates demo datasets so the pipeline runs without
// external credentials.
package adapter
