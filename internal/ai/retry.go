package ai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type retryConfig struct {
	maxTries        int
	initialInterval time.Duration
	timeout         time.Duration
}

// callWithRetry runs fn with a per-attempt timeout and retries transient
// failures with exponential backoff. The returned error is classified.
func callWithRetry[T any](ctx context.Context, op string, cfg retryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	tries := cfg.maxTries
	if tries < 1 {
		tries = 1
	}
	bo := backoff.NewExponentialBackOff()
	if cfg.initialInterval > 0 {
		bo.InitialInterval = cfg.initialInterval
	}
	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		callCtx := ctx
		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}
		out, err := fn(callCtx)
		if err == nil {
			return out, nil
		}
		classified := Classify(err)
		if !IsTransient(classified) {
			return out, backoff.Permanent(classified)
		}
		logutil.GetLogger(ctx).Warn("ai call failed, will retry",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		return out, classified
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(tries)))
	if err != nil {
		var zero T
		return zero, Classify(err)
	}
	return res, nil
}
