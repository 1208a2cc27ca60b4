// Package engine は認可判定（MACバイパス → ポリシー照合 → UDN割り当て → 応答合成）を提供する。
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/bypass"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

// Engine は認可判定エンジン
type Engine struct {
	snapshots SnapshotSource
	gate      *bypass.Gate
	pool      udn.Pool
	usage     policy.UsageRecorder
	fields    *logging.CommonFields
	now       func() time.Time
}

// Option はEngineの生成オプション
type Option func(*Engine)

// WithClock は時刻取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMasker はログ出力時のマスキング設定を指定する。
func WithMasker(m *logging.Masker) Option {
	return func(e *Engine) { e.fields = logging.NewCommonFields(m) }
}

// New は新しいEngineを生成する。usageはnil可（使用状況を記録しない）。
func New(snapshots SnapshotSource, pool udn.Pool, usage policy.UsageRecorder, opts ...Option) *Engine {
	e := &Engine{
		snapshots: snapshots,
		gate:      bypass.NewGate(),
		pool:      pool,
		usage:     usage,
		fields:    logging.NewCommonFields(logging.NewMasker(true)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize は認可要求を評価し、判定結果を返す。
// 内部エラー・パニック・キャンセルを含め、すべての経路で整形済みのDecisionを返す。
func (e *Engine) Authorize(ctx context.Context, req *policy.Request) (d Decision) {
	traceID := logging.TraceIDFromContext(ctx)
	mac, hasMAC := "", false
	if req != nil {
		mac, hasMAC = req.DeviceMAC()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("認可処理でパニック発生",
				"event_id", "AUTHZ_PANIC",
				"trace_id", traceID,
				"error", fmt.Sprint(r),
			)
			d = Reject(ReasonInternalError)
		}
	}()

	if req == nil {
		return Reject(ReasonInternalError)
	}
	if ctx.Err() != nil {
		return e.reject(traceID, mac, Reject(ReasonRequestCancelled))
	}

	snap := e.snapshots.Current()
	if snap == nil {
		slog.Error("policy snapshot unavailable",
			"event_id", "AUTHZ_NO_SNAPSHOT",
			"trace_id", traceID,
		)
		return Reject(ReasonInternalError)
	}
	now := e.now()

	var (
		winner *policy.Policy
		source string
	)

	gateRes := e.gate.Check(snap, mac)
	switch gateRes.Outcome {
	case bypass.OutcomeDeny:
		d := Reject(gateRes.Reason)
		d.Source = SourceBypass
		d.SnapshotVersion = snap.Version
		return e.reject(traceID, mac, d)
	case bypass.OutcomePolicy:
		winner = gateRes.Policy
		source = SourceBypass
	default:
		res := snap.Match(req, now)
		if !res.Matched {
			d := Reject(ReasonNoPolicyMatched)
			d.Source = SourceMatcher
			d.SnapshotVersion = snap.Version
			return e.reject(traceID, mac, d)
		}
		winner = res.Policy
		source = SourceMatcher
	}

	e.recordUsage(ctx, traceID, winner.Ref, now)

	d = Decision{
		Policy:                winner.Ref.String(),
		PolicyName:            winner.Name,
		Source:                source,
		MaxConcurrentSessions: winner.MaxConcurrentSessions,
		SnapshotVersion:       snap.Version,
	}

	if winner.Action == policy.ActionReject {
		d.Reason = ReasonPolicyReject
		return e.reject(traceID, mac, d)
	}

	udnID := 0
	if hasMAC {
		a, err := e.pool.Assign(ctx, mac, udn.Metadata{})
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				d.Reason = ReasonRequestCancelled
			case errors.Is(err, udn.ErrPoolExhausted):
				slog.Warn("UDNプール枯渇",
					"event_id", "UDN_POOL_EXHAUSTED",
					"trace_id", traceID,
					e.fields.WithMAC(mac),
				)
				d.Reason = ReasonNoUDNAvailable
			default:
				slog.Error("UDN割り当て失敗",
					"event_id", "UDN_ASSIGN_ERR",
					"trace_id", traceID,
					e.fields.WithMAC(mac),
					"error", err.Error(),
				)
				d.Reason = ReasonNoUDNAvailable
			}
			return e.reject(traceID, mac, d)
		}
		udnID = a.UDNID
	}

	d.Accept = true
	d.UDNID = udnID
	d.ReplyAttributes = Compose(winner, udnID)

	slog.Info("authorization accepted",
		"event_id", "AUTHZ_ACCEPT",
		"trace_id", traceID,
		e.fields.WithMAC(mac),
		logging.WithPolicy(d.Policy),
		logging.WithUDNID(udnID),
		"source", source,
		"snapshot_version", snap.Version,
	)
	return d
}

func (e *Engine) recordUsage(ctx context.Context, traceID string, ref policy.Ref, at time.Time) {
	if e.usage == nil {
		return
	}
	if err := e.usage.RecordUsage(ctx, ref, at); err != nil {
		slog.Warn("ポリシー使用状況の記録失敗",
			"event_id", "POLICY_USAGE_ERR",
			"trace_id", traceID,
			logging.WithPolicy(ref.String()),
			"error", err.Error(),
		)
	}
}

func (e *Engine) reject(traceID, mac string, d Decision) Decision {
	d.Accept = false
	d.ReplyAttributes = nil
	slog.Info("authorization rejected",
		"event_id", "AUTHZ_REJECT",
		"trace_id", traceID,
		e.fields.WithMAC(mac),
		logging.WithReason(d.Reason),
		logging.WithPolicy(d.Policy),
		"source", d.Source,
	)
	return d
}
