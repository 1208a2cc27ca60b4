package udn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// 競合再試行の待機時間（試行ごとに倍増、上限あり、0〜待機時間のジッター付き）
const (
	retryBaseDelay = 2 * time.Millisecond
	retryMaxDelay  = 100 * time.Millisecond
)

// AssignWithRetry は割り当て関数をErrAllocationConflictの間、最大maxRetries回再試行する。
// 再試行の間はジッター付きで待機する。再試行を使い切った場合はErrPoolExhaustedとして返す。
func AssignWithRetry[T any](ctx context.Context, maxRetries int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrAllocationConflict) {
			return zero, err
		}
		if attempt >= maxRetries {
			slog.Warn("udn allocation retries exhausted",
				"event_id", "UDN_CONFLICT_EXHAUSTED",
				"retry_count", attempt,
			)
			return zero, fmt.Errorf("%w: %d conflicting attempts", ErrPoolExhausted, attempt+1)
		}
		slog.Debug("udn allocation conflict, retrying",
			"retry_count", attempt+1,
		)
		if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
			return zero, err
		}
	}
}

// retryDelay はattempt回目の競合後の待機時間を返す。
func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay << min(attempt, 6)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return time.Duration(rand.Int64N(int64(d)) + 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
