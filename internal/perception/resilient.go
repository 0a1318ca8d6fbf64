package perception

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"visionfix/internal/logging"
)

// ResilientConfig configures call spacing and transport retries.
type ResilientConfig struct {
	// MinInterval is the minimum spacing between calls; zero disables it.
	MinInterval time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// Backoff is the base delay; attempt n waits Backoff * 2^(n-1).
	Backoff time.Duration
}

// ResilientClient wraps a Client with a rate limiter and bounded retries.
type ResilientClient struct {
	underlying Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration

	// sleep is swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResilientClient wraps underlying. With a zero config it is a
// pass-through that issues exactly one call.
func NewResilientClient(underlying Client, config ResilientConfig) *ResilientClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(config.MinInterval), 1)
	}
	if config.Backoff <= 0 {
		config.Backoff = time.Second
	}
	return &ResilientClient{
		underlying: underlying,
		limiter:    limiter,
		maxRetries: config.MaxRetries,
		backoff:    config.Backoff,
		sleep:      sleepCtx,
	}
}

// Name implements Client.
func (c *ResilientClient) Name() string { return c.underlying.Name() }

// Generate implements Client.
func (c *ResilientClient) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	err := c.do(ctx, "generate", func() error {
		var err error
		out, err = c.underlying.Generate(ctx, req)
		return err
	})
	return out, err
}

// ListModels implements Client.
func (c *ResilientClient) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, "list_models", func() error {
		var err error
		out, err = c.underlying.ListModels(ctx)
		return err
	})
	return out, err
}

func (c *ResilientClient) do(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<uint(attempt-1))
			logging.APIWarn("%s failed (%v), retry %d/%d in %s", op, lastErr, attempt, c.maxRetries, delay)
			if err := c.sleep(ctx, delay); err != nil {
				return lastErr
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return classify(ctx, op, "", err)
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		var re *RequestError
		if !errors.As(lastErr, &re) || !re.Retryable() {
			return lastErr
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
