package policy

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Kind はポリシー種別を表す。同一(priority, id)の場合はKindの昇順で評価する。
type Kind int

const (
	KindStandard Kind = iota
	KindUnlang
)

// String はログ・APIで用いる種別名を返す。
func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "policy"
	case KindUnlang:
		return "unlang"
	default:
		return "unknown"
	}
}

// Ref はスナップショット内のポリシーを一意に識別する。
type Ref struct {
	Kind Kind
	ID   int64
}

// String は "policy:12" 形式の文字列を返す。
func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseRef は "policy:12" / "unlang:3" 形式の文字列をRefに変換する。
func ParseRef(s string) (Ref, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("invalid policy ref %q", s)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid policy ref %q: %w", s, err)
	}
	switch kind {
	case "policy":
		return Ref{Kind: KindStandard, ID: n}, nil
	case "unlang":
		return Ref{Kind: KindUnlang, ID: n}, nil
	default:
		return Ref{}, fmt.Errorf("invalid policy ref kind %q", kind)
	}
}

// Operator は条件リーフの比較演算子。
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpRegex
	OpGreaterThan
	OpLessThan
	OpInList
)

var operatorNames = map[Operator]string{
	OpEquals:      "equals",
	OpNotEquals:   "not_equals",
	OpContains:    "contains",
	OpRegex:       "regex",
	OpGreaterThan: "greater_than",
	OpLessThan:    "less_than",
	OpInList:      "in_list",
}

// String は演算子名を返す。
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOperator は演算子名をOperatorに変換する（大文字小文字を区別しない）。
func ParseOperator(s string) (Operator, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range operatorNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// parseCheckOperator はチェック属性の演算子をOperatorに変換する。
func parseCheckOperator(s string) (Operator, bool) {
	switch strings.TrimSpace(s) {
	case "==", "=":
		return OpEquals, true
	case "!=":
		return OpNotEquals, true
	case "=~":
		return OpRegex, true
	case ">":
		return OpGreaterThan, true
	case "<":
		return OpLessThan, true
	default:
		return ParseOperator(s)
	}
}

// Logic は条件の結合方法。
type Logic int

const (
	LogicAND Logic = iota
	LogicOR
)

// String は "AND" / "OR" を返す。
func (l Logic) String() string {
	if l == LogicOR {
		return "OR"
	}
	return "AND"
}

// Action はポリシー一致時の動作。
type Action int

const (
	ActionAccept Action = iota
	ActionReject
)

// String は "accept" / "reject" を返す。
func (a Action) String() string {
	if a == ActionReject {
		return "reject"
	}
	return "accept"
}

// Leaf は単一の比較条件。ロード時にコンパイル済み。
type Leaf struct {
	Attribute string
	Operator  Operator
	Value     string

	key    string
	list   []string
	re     *regexp.Regexp
	number float64
	isNum  bool
}

// ConditionSet はリーフのフラットなAND/OR結合と、暗黙のAND条件である時間帯制限。
// 入れ子を持たないため常に有限かつ非巡回。
type ConditionSet struct {
	Logic  Logic
	Leaves []Leaf
	Time   *TimeWindow
}

// Profile はUnlangPolicyが参照する認可プロファイル（コンパイル済み）。
type Profile struct {
	ID              int64
	Name            string
	ReplyAttributes []model.ReplyAttribute
	VLANID          int
	BandwidthUp     int64
	BandwidthDown   int64
	SessionTimeout  int
	IdleTimeout     int
}

// Policy はコンパイル済みの認可ポリシー（標準・Unlang共通）。
// スナップショットに格納された後は変更しない。
type Policy struct {
	Ref      Ref
	Name     string
	Priority int
	Type     string

	// 照合フィールド（空はワイルドカード）
	Username       string
	MACAddress     string
	CallingStation string
	NASIdentifier  string
	NASIP          string

	callingStationMAC bool
	nasIP             net.IP

	ReplyAttributes []model.ReplyAttribute
	Checks          []Leaf
	Conditions      ConditionSet

	VLANID                int
	BandwidthUp           int64
	BandwidthDown         int64
	SessionTimeout        int
	IdleTimeout           int
	MaxConcurrentSessions int

	Action  Action
	Profile *Profile
}

// Request は認可要求（AuthRequest）を表す。
type Request struct {
	Username             string
	MACAddress           string
	CallingStation       string
	NASIdentifier        string
	NASIP                string
	AdditionalAttributes map[string]string
}

// DeviceMAC は端末MACアドレスを正規化して返す。
// mac_addressを優先し、なければMAC形式のcalling_stationを用いる。
func (r *Request) DeviceMAC() (string, bool) {
	if mac, ok := model.NormalizeMAC(r.MACAddress); ok {
		return mac, true
	}
	return model.NormalizeMAC(r.CallingStation)
}

// MatchResult はPolicy Matcherの評価結果。
type MatchResult struct {
	Matched bool
	Policy  *Policy
	Reason  string
}

// PolicyID は一致したポリシーのIDを返す（不一致時は0）。
func (m MatchResult) PolicyID() int64 {
	if m.Policy == nil {
		return 0
	}
	return m.Policy.Ref.ID
}

// PolicyName は一致したポリシー名を返す。
func (m MatchResult) PolicyName() string {
	if m.Policy == nil {
		return ""
	}
	return m.Policy.Name
}

// ReplyAttributes は一致したポリシーの応答属性を返す。
func (m MatchResult) ReplyAttributes() []model.ReplyAttribute {
	if m.Policy == nil {
		return nil
	}
	return m.Policy.ReplyAttributes
}

// Usage はポリシー単位の使用状況。
type Usage struct {
	Ref        Ref        `json:"-"`
	Policy     string     `json:"policy"`
	UsageCount int64      `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}
