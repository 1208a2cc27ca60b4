package policy

import (
	"net"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Match はスナップショットの評価順にポリシーを照合し、最初に一致したものを返す。
// 優先度順であり、照合フィールドの具体性は考慮しない。
// 同一スナップショット・同一要求・同一時刻に対して常に同じ結果を返す。
func (s *Snapshot) Match(req *Request, now time.Time) MatchResult {
	for _, p := range s.policies {
		if p.Matches(req, now) {
			return MatchResult{Matched: true, Policy: p}
		}
	}
	return MatchResult{Reason: ReasonNoPolicyMatched}
}

// Matches は要求がポリシーに一致するかを判定する。
// 照合フィールド → チェック属性 → 条件セット（時間帯含む）の順に評価する。
func (p *Policy) Matches(req *Request, now time.Time) bool {
	if !p.matchFields(req) {
		return false
	}
	for i := range p.Checks {
		if !p.Checks[i].Evaluate(req) {
			return false
		}
	}
	return p.Conditions.Evaluate(req, now)
}

func (p *Policy) matchFields(req *Request) bool {
	if p.Username != "" && !strings.EqualFold(p.Username, strings.TrimSpace(req.Username)) {
		return false
	}

	if p.MACAddress != "" {
		mac, ok := req.DeviceMAC()
		if !ok || mac != p.MACAddress {
			return false
		}
	}

	if p.CallingStation != "" {
		cs := strings.TrimSpace(req.CallingStation)
		if p.callingStationMAC {
			mac, ok := model.NormalizeMAC(cs)
			if !ok || mac != p.CallingStation {
				return false
			}
		} else if !strings.EqualFold(p.CallingStation, cs) {
			return false
		}
	}

	if p.NASIdentifier != "" && !strings.EqualFold(p.NASIdentifier, strings.TrimSpace(req.NASIdentifier)) {
		return false
	}

	if p.nasIP != nil {
		ip := net.ParseIP(strings.TrimSpace(req.NASIP))
		if ip == nil || !ip.Equal(p.nasIP) {
			return false
		}
	}
	return true
}
