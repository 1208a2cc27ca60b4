package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/apperr"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// BypassConfig はスナップショットに取り込まれた有効なMACバイパス設定。
// 参照ポリシーは解決済み。
type BypassConfig struct {
	ID                  int64
	Name                string
	Mode                string
	MACs                map[string]struct{}
	RequireRegistration bool
	Registered          *Policy
	Unregistered        *Policy
}

// Contains は正規化済みMACアドレスがリストに含まれるかを返す。
func (b *BypassConfig) Contains(mac string) bool {
	_, ok := b.MACs[mac]
	return ok
}

// Snapshot はポリシー一式の不変スナップショット。
// 構築後は変更されず、複数のgoroutineから同時に参照できる。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	policies []*Policy
	byRef    map[Ref]*Policy
	bypass   *BypassConfig

	configErrors []*apperr.ConfigurationError
}

// Summary はスナップショットの概要（管理API向け）。
type Summary struct {
	Version        int64     `json:"version"`
	LoadedAt       time.Time `json:"loaded_at"`
	Policies       int       `json:"policies"`
	UnlangPolicies int       `json:"unlang_policies"`
	BypassEnabled  bool      `json:"bypass_enabled"`
	BypassMode     string    `json:"bypass_mode,omitempty"`
	ConfigErrors   []string  `json:"config_errors"`
}

// BuildSnapshot はレコード一式を検証・コンパイルしてスナップショットを構築する。
// 不正なレコードはConfigurationErrorとして記録しスキップする。残りのレコードは有効なまま。
func BuildSnapshot(set *model.PolicySet, version int64, now time.Time) *Snapshot {
	s := &Snapshot{
		Version:  version,
		LoadedAt: now,
		byRef:    make(map[Ref]*Policy),
	}
	if set == nil {
		return s
	}

	profiles := make(map[int64]*Profile, len(set.AuthorizationProfiles))
	for i := range set.AuthorizationProfiles {
		rec := &set.AuthorizationProfiles[i]
		if _, dup := profiles[rec.ID]; dup {
			s.addError(apperr.NewConfigurationError(SourceProfile, rec.ID, "id", "duplicate id"))
			continue
		}
		prof, err := CompileProfile(rec)
		if err != nil {
			s.addError(err)
			continue
		}
		profiles[rec.ID] = prof
	}

	for i := range set.Policies {
		rec := &set.Policies[i]
		if !rec.IsActive {
			continue
		}
		p, err := CompilePolicy(rec)
		if err != nil {
			s.addError(err)
			continue
		}
		s.add(p)
	}

	for i := range set.UnlangPolicies {
		rec := &set.UnlangPolicies[i]
		if !rec.IsActive {
			continue
		}
		p, err := CompileUnlang(rec, profiles)
		if err != nil {
			s.addError(err)
			continue
		}
		s.add(p)
	}

	sort.SliceStable(s.policies, func(i, j int) bool {
		a, b := s.policies[i], s.policies[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Ref.ID != b.Ref.ID {
			return a.Ref.ID < b.Ref.ID
		}
		return a.Ref.Kind < b.Ref.Kind
	})

	s.bypass = s.buildBypass(set.MacBypassConfigs)
	return s
}

func (s *Snapshot) add(p *Policy) {
	if _, dup := s.byRef[p.Ref]; dup {
		source := SourcePolicy
		if p.Ref.Kind == KindUnlang {
			source = SourceUnlang
		}
		s.addError(apperr.NewConfigurationError(source, p.Ref.ID, "id", "duplicate id"))
		return
	}
	s.byRef[p.Ref] = p
	s.policies = append(s.policies, p)
}

func (s *Snapshot) addError(err error) {
	var cfgErr *apperr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		cfgErr = apperr.NewConfigurationError("unknown", 0, "", err.Error())
	}
	s.configErrors = append(s.configErrors, cfgErr)
}

// buildBypass は有効なバイパス設定を1件に限定して取り込む。
// 有効な設定が複数ある場合、または不正な場合はゲートを無効化する。
func (s *Snapshot) buildBypass(configs []model.MacBypassConfig) *BypassConfig {
	var active []*model.MacBypassConfig
	for i := range configs {
		if configs[i].IsActive {
			active = append(active, &configs[i])
		}
	}
	if len(active) == 0 {
		return nil
	}
	if len(active) > 1 {
		ids := make([]string, 0, len(active))
		for _, c := range active {
			ids = append(ids, fmt.Sprint(c.ID))
		}
		s.addError(apperr.NewConfigurationError(SourceBypass, active[0].ID, "is_active",
			fmt.Sprintf("multiple active bypass configs (%s); gate disabled", strings.Join(ids, ","))))
		return nil
	}

	rec := active[0]
	b := &BypassConfig{
		ID:                  rec.ID,
		Name:                rec.Name,
		RequireRegistration: rec.RequireRegistration,
		MACs:                make(map[string]struct{}, len(rec.MACAddresses)),
	}

	switch mode := strings.ToLower(strings.TrimSpace(rec.BypassMode)); mode {
	case model.BypassModeWhitelist, model.BypassModeBlacklist:
		b.Mode = mode
	default:
		s.addError(apperr.NewConfigurationError(SourceBypass, rec.ID, "bypass_mode",
			fmt.Sprintf("unsupported mode %q", rec.BypassMode)))
		return nil
	}

	for _, m := range rec.MACAddresses {
		mac, ok := model.NormalizeMAC(m)
		if !ok {
			s.addError(apperr.NewConfigurationError(SourceBypass, rec.ID, "mac_addresses",
				fmt.Sprintf("invalid MAC address %q", m)))
			return nil
		}
		b.MACs[mac] = struct{}{}
	}

	var err error
	if b.Registered, err = s.resolveBypassRef(rec.ID, "registered_policy_id", rec.RegisteredPolicyID); err != nil {
		s.addError(err)
		return nil
	}
	if b.Unregistered, err = s.resolveBypassRef(rec.ID, "unregistered_policy_id", rec.UnregisteredPolicyID); err != nil {
		s.addError(err)
		return nil
	}
	return b
}

func (s *Snapshot) resolveBypassRef(bypassID int64, field string, id *int64) (*Policy, error) {
	if id == nil {
		return nil, nil
	}
	p, ok := s.byRef[Ref{Kind: KindStandard, ID: *id}]
	if !ok {
		return nil, apperr.NewConfigurationError(SourceBypass, bypassID, field,
			fmt.Sprintf("policy %d not found or inactive", *id))
	}
	return p, nil
}

// Policies は評価順に並んだポリシーを返す。戻り値を変更してはならない。
func (s *Snapshot) Policies() []*Policy {
	return s.policies
}

// Lookup はRefに対応するポリシーを返す。
func (s *Snapshot) Lookup(ref Ref) (*Policy, bool) {
	p, ok := s.byRef[ref]
	return p, ok
}

// Bypass は有効なバイパス設定を返す（無効時はnil）。
func (s *Snapshot) Bypass() *BypassConfig {
	return s.bypass
}

// ConfigErrors はロード時にスキップしたレコードの設定エラーを返す。
func (s *Snapshot) ConfigErrors() []*apperr.ConfigurationError {
	return s.configErrors
}

// Summary はスナップショットの概要を返す。
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		Version:      s.Version,
		LoadedAt:     s.LoadedAt,
		ConfigErrors: make([]string, 0, len(s.configErrors)),
	}
	for _, p := range s.policies {
		if p.Ref.Kind == KindUnlang {
			sum.UnlangPolicies++
		} else {
			sum.Policies++
		}
	}
	if s.bypass != nil {
		sum.BypassEnabled = true
		sum.BypassMode = s.bypass.Mode
	}
	for _, e := range s.configErrors {
		sum.ConfigErrors = append(sum.ConfigErrors, e.Error())
	}
	return sum
}
