package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiter that also backs off after a 429.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rps     float64

	pausedUntil time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	TokensAvailable   float64       `json:"tokens_available"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
	PausedFor         time.Duration `json:"paused_for,omitempty"`
	Last429Time       time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = 5.0
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	r.mu.Lock()
	pause := time.Until(r.pausedUntil)
	r.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Now().Before(r.pausedUntil) {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}
	r.totalConsumed++
	return true
}

// Record429 should be called when a 429 error is received. A positive
// retryAfter pauses all callers for that long.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	if retryAfter > 0 {
		until := r.last429Time.Add(retryAfter)
		if until.After(r.pausedUntil) {
			r.pausedUntil = until
		}
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := RateLimiterStatus{
		RequestsPerSecond: r.rps,
		TokensAvailable:   r.limiter.Tokens(),
		TotalConsumed:     r.totalConsumed,
		TotalWaited:       r.totalWaited,
		Last429Time:       r.last429Time,
	}
	if pause := time.Until(r.pausedUntil); pause > 0 {
		status.PausedFor = pause
	}
	return status
}

// RateLimitedClient wraps an LLMClient so every Chat waits on a RateLimiter.
type RateLimitedClient struct {
	LLMClient
	limiter *RateLimiter
}

// NewRateLimitedClient wraps client with limiter.
func NewRateLimitedClient(client LLMClient, limiter *RateLimiter) *RateLimitedClient {
	return &RateLimitedClient{LLMClient: client, limiter: limiter}
}

// Chat waits for a token, then forwards the request.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	queued := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	queueTime := time.Since(queued)

	result, err := c.LLMClient.Chat(ctx, req)
	if result != nil {
		result.QueueTime = queueTime
		result.TotalTime += queueTime
	}
	if rle, ok := IsRateLimitError(err); ok {
		c.limiter.Record429(rle.RetryAfter)
	}
	return result, err
}

// Limiter returns the wrapped limiter.
func (c *RateLimitedClient) Limiter() *RateLimiter {
	return c.limiter
}

// Unwrap returns the underlying client.
func (c *RateLimitedClient) Unwrap() LLMClient {
	return c.LLMClient
}

var _ LLMClient = (*RateLimitedClient)(nil)
