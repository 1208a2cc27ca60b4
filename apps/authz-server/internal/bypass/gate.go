// Package bypass はMACアドレスによる認可バイパス判定を提供する。
package bypass

import (
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// ReasonMACBlacklisted はブラックリスト登録端末の拒否理由
const ReasonMACBlacklisted = "mac_blacklisted"

// Outcome はバイパス判定の結果種別
type Outcome int

const (
	// OutcomeFallThrough は通常のポリシー照合へ進む
	OutcomeFallThrough Outcome = iota
	// OutcomePolicy は指定ポリシーを適用する
	OutcomePolicy
	// OutcomeDeny は即時拒否する
	OutcomeDeny
)

// String はログ出力用の名前を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomePolicy:
		return "policy"
	case OutcomeDeny:
		return "deny"
	default:
		return "fall_through"
	}
}

// Result はバイパス判定結果
type Result struct {
	Outcome Outcome
	Policy  *policy.Policy // OutcomePolicyの場合のみ
	Reason  string         // OutcomeDenyの場合のみ
	Listed  bool           // MACがリストに含まれていたか
}

// Hit はポリシー照合をスキップするかどうかを返す。
func (r Result) Hit() bool {
	return r.Outcome != OutcomeFallThrough
}

// Gate はMACバイパスゲート
type Gate struct{}

// NewGate は新しいGateを生成する。
func NewGate() *Gate {
	return &Gate{}
}

// Check はスナップショットの有効なバイパス設定でMACアドレスを判定する。
// macは正規化前の値でよい。空または解釈できない場合はリスト外として扱う。
func (g *Gate) Check(snap *policy.Snapshot, mac string) Result {
	if snap == nil {
		return Result{}
	}
	cfg := snap.Bypass()
	if cfg == nil {
		return Result{}
	}

	listed := false
	if normalized, ok := model.NormalizeMAC(mac); ok {
		listed = cfg.Contains(normalized)
	}

	switch cfg.Mode {
	case model.BypassModeWhitelist:
		return whitelist(cfg, listed)
	case model.BypassModeBlacklist:
		return blacklist(cfg, listed)
	default:
		return Result{}
	}
}

func whitelist(cfg *policy.BypassConfig, listed bool) Result {
	if listed {
		if cfg.Registered != nil {
			return Result{Outcome: OutcomePolicy, Policy: cfg.Registered, Listed: true}
		}
		if !cfg.RequireRegistration && cfg.Unregistered != nil {
			return Result{Outcome: OutcomePolicy, Policy: cfg.Unregistered, Listed: true}
		}
		return Result{Listed: true}
	}

	if !cfg.RequireRegistration && cfg.Unregistered != nil {
		return Result{Outcome: OutcomePolicy, Policy: cfg.Unregistered}
	}
	return Result{}
}

func blacklist(cfg *policy.BypassConfig, listed bool) Result {
	if !listed {
		return Result{}
	}
	if cfg.Unregistered != nil {
		return Result{Outcome: OutcomePolicy, Policy: cfg.Unregistered, Listed: true}
	}
	return Result{Outcome: OutcomeDeny, Reason: ReasonMACBlacklisted, Listed: true}
}
