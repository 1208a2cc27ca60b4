package policy

import (
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/apperr"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// 設定エラーのレコード種別
const (
	SourcePolicy  = "policy"
	SourceUnlang  = "unlang"
	SourceProfile = "profile"
	SourceBypass  = "bypass"
)

// 応答属性の演算子
const (
	ReplyOpSet    = ":="
	ReplyOpAdd    = "="
	ReplyOpAppend = "+="
)

const (
	maxVLANID           = 4094
	conditionTypeAttrib = "attribute"
)

// CompileProfile は認可プロファイルを検証・コンパイルする。
func CompileProfile(rec *model.AuthorizationProfile) (*Profile, error) {
	attrs, err := compileReplyAttributes(SourceProfile, rec.ID, rec.ReplyAttributes)
	if err != nil {
		return nil, err
	}
	if err := validateLimits(SourceProfile, rec.ID, rec.VLANID, rec.BandwidthLimitUp, rec.BandwidthLimitDown, rec.SessionTimeout, rec.IdleTimeout); err != nil {
		return nil, err
	}
	return &Profile{
		ID:              rec.ID,
		Name:            rec.Name,
		ReplyAttributes: attrs,
		VLANID:          rec.VLANID,
		BandwidthUp:     rec.BandwidthLimitUp,
		BandwidthDown:   rec.BandwidthLimitDown,
		SessionTimeout:  rec.SessionTimeout,
		IdleTimeout:     rec.IdleTimeout,
	}, nil
}

// CompilePolicy は標準ポリシーを検証・コンパイルする。
// チェック属性はAND条件として条件セットに組み込む。
func CompilePolicy(rec *model.Policy) (*Policy, error) {
	p, err := compileBase(SourcePolicy, KindStandard, rec)
	if err != nil {
		return nil, err
	}
	p.Conditions = ConditionSet{Logic: LogicAND, Time: p.Conditions.Time}
	return p, nil
}

// CompileUnlang はUnlangポリシーを検証・コンパイルする。
// profilesは参照可能な認可プロファイル（ID→プロファイル）。
func CompileUnlang(rec *model.UnlangPolicy, profiles map[int64]*Profile) (*Policy, error) {
	id := rec.ID
	p, err := compileBase(SourceUnlang, KindUnlang, &rec.Policy)
	if err != nil {
		return nil, err
	}

	logic, err := parseLogic(rec.ConditionLogic)
	if err != nil {
		return nil, apperr.NewConfigurationError(SourceUnlang, id, "condition_logic", err.Error())
	}

	leaves := make([]Leaf, 0, len(rec.AdditionalConditions)+1)
	if strings.TrimSpace(rec.ConditionAttribute) != "" {
		if err := checkConditionType(rec.ConditionType); err != nil {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, "condition_type", err.Error())
		}
		op, ok := ParseOperator(rec.ConditionOperator)
		if !ok {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, "condition_operator",
				fmt.Sprintf("unsupported operator %q", rec.ConditionOperator))
		}
		leaf, err := compileLeaf(rec.ConditionAttribute, op, rec.ConditionValue)
		if err != nil {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, "condition_value", "invalid condition").WithCause(err)
		}
		leaves = append(leaves, leaf)
	} else if rec.ConditionOperator != "" || rec.ConditionValue != "" {
		return nil, apperr.NewConfigurationError(SourceUnlang, id, "condition_attribute", "attribute is required")
	}

	for i, c := range rec.AdditionalConditions {
		field := fmt.Sprintf("additional_conditions[%d]", i)
		if err := checkConditionType(c.ConditionType); err != nil {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, field, err.Error())
		}
		op, ok := ParseOperator(c.Operator)
		if !ok {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, field,
				fmt.Sprintf("unsupported operator %q", c.Operator))
		}
		leaf, err := compileLeaf(c.Attribute, op, c.Value)
		if err != nil {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, field, "invalid condition").WithCause(err)
		}
		leaves = append(leaves, leaf)
	}

	p.Conditions = ConditionSet{Logic: logic, Leaves: leaves, Time: p.Conditions.Time}

	switch strings.ToLower(strings.TrimSpace(rec.ActionType)) {
	case "", "accept":
		p.Action = ActionAccept
	case "reject":
		p.Action = ActionReject
	default:
		return nil, apperr.NewConfigurationError(SourceUnlang, id, "action_type",
			fmt.Sprintf("unsupported action %q", rec.ActionType))
	}

	if rec.AuthorizationProfileID != nil {
		prof, ok := profiles[*rec.AuthorizationProfileID]
		if !ok {
			return nil, apperr.NewConfigurationError(SourceUnlang, id, "authorization_profile_id",
				fmt.Sprintf("profile %d not found", *rec.AuthorizationProfileID))
		}
		p.Profile = prof
	}
	return p, nil
}

// compileBase は標準・Unlang共通のフィールドをコンパイルする。
func compileBase(source string, kind Kind, rec *model.Policy) (*Policy, error) {
	id := rec.ID
	p := &Policy{
		Ref:                   Ref{Kind: kind, ID: id},
		Name:                  rec.Name,
		Priority:              rec.Priority,
		Type:                  rec.PolicyType,
		Username:              strings.TrimSpace(rec.Username),
		NASIdentifier:         strings.TrimSpace(rec.NASIdentifier),
		VLANID:                rec.VLANID,
		BandwidthUp:           rec.BandwidthLimitUp,
		BandwidthDown:         rec.BandwidthLimitDown,
		SessionTimeout:        rec.SessionTimeout,
		IdleTimeout:           rec.IdleTimeout,
		MaxConcurrentSessions: rec.MaxConcurrentSessions,
	}

	if s := strings.TrimSpace(rec.MACAddress); s != "" {
		mac, ok := model.NormalizeMAC(s)
		if !ok {
			return nil, apperr.NewConfigurationError(source, id, "mac_address", fmt.Sprintf("invalid MAC address %q", s))
		}
		p.MACAddress = mac
	}

	if s := strings.TrimSpace(rec.CallingStation); s != "" {
		if mac, ok := model.NormalizeMAC(s); ok {
			p.CallingStation = mac
			p.callingStationMAC = true
		} else {
			p.CallingStation = s
		}
	}

	if s := strings.TrimSpace(rec.NASIP); s != "" {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, apperr.NewConfigurationError(source, id, "nas_ip", fmt.Sprintf("invalid IP address %q", s))
		}
		p.NASIP = ip.String()
		p.nasIP = ip
	}

	if rec.MaxConcurrentSessions < 0 {
		return nil, apperr.NewConfigurationError(source, id, "max_concurrent_sessions", "must not be negative")
	}
	if err := validateLimits(source, id, rec.VLANID, rec.BandwidthLimitUp, rec.BandwidthLimitDown, rec.SessionTimeout, rec.IdleTimeout); err != nil {
		return nil, err
	}

	attrs, err := compileReplyAttributes(source, id, rec.ReplyAttributes)
	if err != nil {
		return nil, err
	}
	p.ReplyAttributes = attrs

	for i, c := range rec.CheckAttributes {
		field := fmt.Sprintf("check_attributes[%d]", i)
		op, ok := parseCheckOperator(c.Operator)
		if !ok {
			return nil, apperr.NewConfigurationError(source, id, field, fmt.Sprintf("unsupported operator %q", c.Operator))
		}
		leaf, err := compileLeaf(c.Attribute, op, c.Value)
		if err != nil {
			return nil, apperr.NewConfigurationError(source, id, field, "invalid check attribute").WithCause(err)
		}
		p.Checks = append(p.Checks, leaf)
	}

	tw, err := compileTimeWindow(rec.TimeRestrictions)
	if err != nil {
		return nil, apperr.NewConfigurationError(source, id, "time_restrictions", "invalid time restriction").WithCause(err)
	}
	p.Conditions.Time = tw

	return p, nil
}

func validateLimits(source string, id int64, vlan int, up, down int64, session, idle int) error {
	if vlan < 0 || vlan > maxVLANID {
		return apperr.NewConfigurationError(source, id, "vlan_id", fmt.Sprintf("must be within [0, %d]", maxVLANID))
	}
	if up < 0 || down < 0 {
		return apperr.NewConfigurationError(source, id, "bandwidth_limit", "must not be negative")
	}
	if session < 0 || idle < 0 {
		return apperr.NewConfigurationError(source, id, "timeout", "must not be negative")
	}
	return nil
}

func compileReplyAttributes(source string, id int64, in []model.ReplyAttribute) ([]model.ReplyAttribute, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]model.ReplyAttribute, 0, len(in))
	for i, a := range in {
		field := fmt.Sprintf("reply_attributes[%d]", i)
		name := strings.TrimSpace(a.Attribute)
		if name == "" {
			return nil, apperr.NewConfigurationError(source, id, field, "attribute name is required")
		}
		op := strings.TrimSpace(a.Operator)
		switch op {
		case "":
			op = ReplyOpAdd
		case ReplyOpSet, ReplyOpAdd, ReplyOpAppend:
		default:
			return nil, apperr.NewConfigurationError(source, id, field, fmt.Sprintf("unsupported operator %q", a.Operator))
		}
		out = append(out, model.ReplyAttribute{Attribute: name, Operator: op, Value: a.Value})
	}
	return out, nil
}

func compileLeaf(attribute string, op Operator, value string) (Leaf, error) {
	attribute = strings.TrimSpace(attribute)
	if attribute == "" {
		return Leaf{}, fmt.Errorf("attribute is required")
	}
	value = strings.TrimSpace(value)
	leaf := Leaf{
		Attribute: attribute,
		Operator:  op,
		Value:     value,
		key:       canonicalAttr(attribute),
	}

	switch op {
	case OpRegex:
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return Leaf{}, fmt.Errorf("invalid regex %q: %w", value, err)
		}
		leaf.re = re
	case OpGreaterThan, OpLessThan:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Leaf{}, fmt.Errorf("numeric operator %s requires a number, got %q", op, value)
		}
		leaf.number = n
		leaf.isNum = true
	case OpInList:
		list, err := parseList(value)
		if err != nil {
			return Leaf{}, err
		}
		leaf.list = list
	}
	return leaf, nil
}

// parseList はJSON配列またはカンマ区切りの文字列をリストに変換する。
func parseList(value string) ([]string, error) {
	if strings.HasPrefix(value, "[") {
		var raw []any
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", value, err)
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, strings.TrimSpace(fmt.Sprint(v)))
		}
		return out, nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func parseLogic(s string) (Logic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return LogicAND, nil
	case "OR":
		return LogicOR, nil
	default:
		return 0, fmt.Errorf("unsupported logic %q", s)
	}
}

func checkConditionType(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", conditionTypeAttrib:
		return nil
	default:
		return fmt.Errorf("unsupported condition type %q", s)
	}
}

func compileTimeWindow(tr *model.TimeRestriction) (*TimeWindow, error) {
	if tr == nil {
		return nil, nil
	}
	if len(tr.DaysOfWeek) == 0 && strings.TrimSpace(tr.StartTime) == "" && strings.TrimSpace(tr.EndTime) == "" {
		return nil, nil
	}

	w := &TimeWindow{Start: 0, End: lastSecondOfDay, Location: time.UTC}

	if len(tr.DaysOfWeek) == 0 {
		w.allDays = true
	}
	for _, d := range tr.DaysOfWeek {
		wd, err := parseWeekday(d)
		if err != nil {
			return nil, err
		}
		w.Days[wd] = true
	}

	if s := strings.TrimSpace(tr.StartTime); s != "" {
		m, err := parseClock(s)
		if err != nil {
			return nil, err
		}
		w.Start = m
	}
	if s := strings.TrimSpace(tr.EndTime); s != "" {
		m, err := parseClock(s)
		if err != nil {
			return nil, err
		}
		w.End = m
	}

	if tz := strings.TrimSpace(tr.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		w.Location = loc
	}
	return w, nil
}
