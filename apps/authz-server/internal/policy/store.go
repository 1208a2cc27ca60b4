package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Store はポリシースナップショットを保持する。
// 評価中のリクエストは開始時に取得したスナップショットを最後まで使用する。
type Store struct {
	repo    Repository
	cb      *gobreaker.CircuitBreaker
	current atomic.Pointer[Snapshot]
	version atomic.Int64

	reloadMu   sync.Mutex
	now        func() time.Time
	maxRetries int
	backoff    time.Duration
}

// StoreOption はStoreの生成オプション。
type StoreOption func(*Store)

// WithClock は時刻取得関数を差し替える。
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithRetry はロード再試行回数と待機時間を設定する。
func WithRetry(maxRetries int, backoff time.Duration) StoreOption {
	return func(s *Store) {
		s.maxRetries = maxRetries
		s.backoff = backoff
	}
}

// NewStore は新しいStoreを生成する。初期状態は空のスナップショット。
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:       repo,
		now:        time.Now,
		maxRetries: config.PolicyLoadMaxRetries,
		backoff:    config.PolicyLoadBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.CBName,
		MaxRequests: config.CBMaxRequests,
		Interval:    config.CBInterval,
		Timeout:     config.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.CBFailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				slog.Warn("circuit breaker opened",
					"event_id", "CB_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateHalfOpen:
				slog.Info("circuit breaker half-open",
					"event_id", "CB_HALF_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateClosed:
				slog.Info("circuit breaker closed",
					"event_id", "CB_CLOSE",
					"cb_name", name,
				)
			}
		},
	})

	s.current.Store(BuildSnapshot(nil, 0, s.now()))
	return s
}

// Current は最新のスナップショットを返す。nilにはならない。
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload はレコードを再取得して新しいスナップショットに差し替える。
// 取得に失敗した場合は直前のスナップショットを維持する。
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	result, err := s.cb.Execute(func() (any, error) {
		return s.loadWithRetry(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: circuit open", ErrRepositoryUnavailable)
		}
		slog.Error("policy reload failed",
			"event_id", "POLICY_RELOAD_ERR",
			"error", err.Error(),
			"version", s.Current().Version,
		)
		return nil, err
	}

	set, ok := result.(*loadResult)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected load result", ErrRepositoryUnavailable)
	}

	snap := BuildSnapshot(set.Set, s.version.Add(1), s.now())
	for _, cfgErr := range snap.ConfigErrors() {
		slog.Warn("policy configuration error",
			"event_id", "POLICY_CONFIG_ERR",
			"source", cfgErr.Source,
			"record_id", cfgErr.RecordID,
			"field", cfgErr.Field,
			"error", cfgErr.Error(),
		)
	}
	s.current.Store(snap)

	sum := snap.Summary()
	slog.Info("policy snapshot reloaded",
		"event_id", "SNAPSHOT_RELOADED",
		"version", snap.Version,
		"policies", sum.Policies,
		"unlang_policies", sum.UnlangPolicies,
		"bypass_enabled", sum.BypassEnabled,
		"config_errors", len(sum.ConfigErrors),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

// loadResult はサーキットブレーカー経由で受け渡すロード結果。
type loadResult struct {
	Set      *model.PolicySet
	Attempts int
}

func (s *Store) loadWithRetry(ctx context.Context) (*loadResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying policy load",
				"retry_count", attempt,
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, ctx.Err())
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}

		set, err := s.repo.LoadRecords(ctx)
		if err == nil {
			return &loadResult{Set: set, Attempts: attempt + 1}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, lastErr)
}

// Run は指定間隔でReloadを繰り返す。ctxがキャンセルされるまでブロックする。
// interval が0以下の場合は何もせずctxの終了を待つ。
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Reload(ctx)
		}
	}
}
