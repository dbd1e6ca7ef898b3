package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Do executes fn, sleeping cooldown and reissuing the identical call
// whenever fn reports a RateLimitedError. Any other outcome, success
// or failure, is returned as-is. The loop repeats for as long as the
// service keeps answering 429; only the calling goroutine blocks, and
// context cancellation ends the wait early.
func Do[T any](ctx context.Context, cooldown time.Duration, fn func(context.Context) (T, error)) (T, error) {
	for {
		v, err := fn(ctx)
		var rl *RateLimitedError
		if err == nil || !errors.As(err, &rl) {
			return v, err
		}

		zap.L().Warn("rate limited, cooling down",
			zap.String("service", rl.Service),
			zap.Duration("cooldown", cooldown),
		)

		timer := time.NewTimer(cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, ctx.Err()
		case <-timer.C:
		}
	}
}
