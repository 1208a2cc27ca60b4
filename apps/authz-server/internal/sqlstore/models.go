package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// policyColumns は標準・Unlangポリシー共通の列
type policyColumns struct {
	ID               int64           `gorm:"column:id;primaryKey"`
	Name             string          `gorm:"column:name;size:100;not null"`
	Priority         int             `gorm:"column:priority;default:100;index"`
	PolicyType       string          `gorm:"column:policy_type;size:50"`
	Username         string          `gorm:"column:username;size:253"`
	MACAddress       string          `gorm:"column:mac_address;size:32"`
	CallingStation   string          `gorm:"column:calling_station;size:64"`
	NASIdentifier    string          `gorm:"column:nas_identifier;size:253"`
	NASIP            string          `gorm:"column:nas_ip;size:45"`
	ReplyAttributes  json.RawMessage `gorm:"column:reply_attributes;type:jsonb"`
	CheckAttributes  json.RawMessage `gorm:"column:check_attributes;type:jsonb"`
	TimeRestrictions json.RawMessage `gorm:"column:time_restrictions;type:jsonb"`
	VLANID           int             `gorm:"column:vlan_id"`
	BandwidthUp      int64           `gorm:"column:bandwidth_limit_up"`
	BandwidthDown    int64           `gorm:"column:bandwidth_limit_down"`
	SessionTimeout   int             `gorm:"column:session_timeout"`
	IdleTimeout      int             `gorm:"column:idle_timeout"`
	MaxSessions      int             `gorm:"column:max_concurrent_sessions"`
	IsActive         bool            `gorm:"column:is_active;default:true"`
	UsageCount       int64           `gorm:"column:usage_count;default:0"`
	LastUsed         *time.Time      `gorm:"column:last_used"`
}

// policyRow は radius_policies テーブル
type policyRow struct {
	policyColumns `gorm:"embedded"`
}

func (policyRow) TableName() string { return "radius_policies" }

// unlangRow は unlang_policies テーブル
type unlangRow struct {
	policyColumns          `gorm:"embedded"`
	ConditionType          string          `gorm:"column:condition_type;size:20"`
	ConditionAttribute     string          `gorm:"column:condition_attribute;size:100"`
	ConditionOperator      string          `gorm:"column:condition_operator;size:20"`
	ConditionValue         string          `gorm:"column:condition_value;size:500"`
	AdditionalConditions   json.RawMessage `gorm:"column:additional_conditions;type:jsonb"`
	ConditionLogic         string          `gorm:"column:condition_logic;size:3;default:AND"`
	ActionType             string          `gorm:"column:action_type;size:10;default:accept"`
	AuthorizationProfileID *int64          `gorm:"column:authorization_profile_id"`
}

func (unlangRow) TableName() string { return "unlang_policies" }

// profileRow は authorization_profiles テーブル
type profileRow struct {
	ID              int64           `gorm:"column:id;primaryKey"`
	Name            string          `gorm:"column:name;size:100;not null"`
	ReplyAttributes json.RawMessage `gorm:"column:reply_attributes;type:jsonb"`
	VLANID          int             `gorm:"column:vlan_id"`
	BandwidthUp     int64           `gorm:"column:bandwidth_limit_up"`
	BandwidthDown   int64           `gorm:"column:bandwidth_limit_down"`
	SessionTimeout  int             `gorm:"column:session_timeout"`
	IdleTimeout     int             `gorm:"column:idle_timeout"`
}

func (profileRow) TableName() string { return "authorization_profiles" }

// bypassRow は mac_bypass_configs テーブル
type bypassRow struct {
	ID                   int64           `gorm:"column:id;primaryKey"`
	Name                 string          `gorm:"column:name;size:100;not null"`
	MACAddresses         json.RawMessage `gorm:"column:mac_addresses;type:jsonb"`
	BypassMode           string          `gorm:"column:bypass_mode;size:10;not null"`
	RequireRegistration  bool            `gorm:"column:require_registration;default:false"`
	RegisteredPolicyID   *int64          `gorm:"column:registered_policy_id"`
	UnregisteredPolicyID *int64          `gorm:"column:unregistered_policy_id"`
	IsActive             bool            `gorm:"column:is_active;default:true"`
}

func (bypassRow) TableName() string { return "mac_bypass_configs" }

// nadRow は network_access_devices テーブル
type nadRow struct {
	ID                 int64     `gorm:"column:id;primaryKey"`
	Name               string    `gorm:"column:name;size:100;not null"`
	IPAddress          string    `gorm:"column:ip_address;size:45;not null;uniqueIndex"`
	Secret             string    `gorm:"column:secret;size:100;not null"`
	SupportsRadSec     bool      `gorm:"column:supports_radsec;default:false"`
	SupportsCoA        bool      `gorm:"column:supports_coa;default:false"`
	SupportsAccounting bool      `gorm:"column:supports_accounting;default:false"`
	SupportsIPv6       bool      `gorm:"column:supports_ipv6;default:false"`
	HealthStatus       string    `gorm:"column:health_status;size:20;default:unknown"`
	IsActive           bool      `gorm:"column:is_active;default:true"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (nadRow) TableName() string { return "network_access_devices" }

// udnRow は udn_assignments テーブル。
// 有効行のudn_id・mac_addressは部分一意インデックスで一意性を保証する（migrate.go）。
type udnRow struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	MACAddress     string     `gorm:"column:mac_address;size:17;not null;index"`
	UDNID          int        `gorm:"column:udn_id;not null"`
	UserID         string     `gorm:"column:user_id;size:64"`
	RegistrationID string     `gorm:"column:registration_id;size:64"`
	IPSKID         string     `gorm:"column:ipsk_id;size:64"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
	LastAuthAt     *time.Time `gorm:"column:last_auth_at"`
}

func (udnRow) TableName() string { return "udn_assignments" }

func (c *policyColumns) toModel() (model.Policy, error) {
	p := model.Policy{
		ID:                    c.ID,
		Name:                  c.Name,
		Priority:              c.Priority,
		PolicyType:            c.PolicyType,
		Username:              c.Username,
		MACAddress:            c.MACAddress,
		CallingStation:        c.CallingStation,
		NASIdentifier:         c.NASIdentifier,
		NASIP:                 c.NASIP,
		VLANID:                c.VLANID,
		BandwidthLimitUp:      c.BandwidthUp,
		BandwidthLimitDown:    c.BandwidthDown,
		SessionTimeout:        c.SessionTimeout,
		IdleTimeout:           c.IdleTimeout,
		MaxConcurrentSessions: c.MaxSessions,
		IsActive:              c.IsActive,
		UsageCount:            c.UsageCount,
		LastUsed:              c.LastUsed,
	}
	if err := decodeJSON(c.ReplyAttributes, &p.ReplyAttributes); err != nil {
		return p, err
	}
	if err := decodeJSON(c.CheckAttributes, &p.CheckAttributes); err != nil {
		return p, err
	}
	if err := decodeJSON(c.TimeRestrictions, &p.TimeRestrictions); err != nil {
		return p, err
	}
	return p, nil
}

func policyColumnsFrom(p *model.Policy) (policyColumns, error) {
	c := policyColumns{
		ID:             p.ID,
		Name:           p.Name,
		Priority:       p.Priority,
		PolicyType:     p.PolicyType,
		Username:       p.Username,
		MACAddress:     p.MACAddress,
		CallingStation: p.CallingStation,
		NASIdentifier:  p.NASIdentifier,
		NASIP:          p.NASIP,
		VLANID:         p.VLANID,
		BandwidthUp:    p.BandwidthLimitUp,
		BandwidthDown:  p.BandwidthLimitDown,
		SessionTimeout: p.SessionTimeout,
		IdleTimeout:    p.IdleTimeout,
		MaxSessions:    p.MaxConcurrentSessions,
		IsActive:       p.IsActive,
		UsageCount:     p.UsageCount,
		LastUsed:       p.LastUsed,
	}
	var err error
	if c.ReplyAttributes, err = encodeJSON(p.ReplyAttributes); err != nil {
		return c, err
	}
	if c.CheckAttributes, err = encodeJSON(p.CheckAttributes); err != nil {
		return c, err
	}
	if p.TimeRestrictions != nil {
		if c.TimeRestrictions, err = encodeJSON(p.TimeRestrictions); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (r *unlangRow) toModel() (model.UnlangPolicy, error) {
	base, err := r.policyColumns.toModel()
	u := model.UnlangPolicy{
		Policy:                 base,
		ConditionType:          r.ConditionType,
		ConditionAttribute:     r.ConditionAttribute,
		ConditionOperator:      r.ConditionOperator,
		ConditionValue:         r.ConditionValue,
		ConditionLogic:         r.ConditionLogic,
		ActionType:             r.ActionType,
		AuthorizationProfileID: r.AuthorizationProfileID,
	}
	if err != nil {
		return u, err
	}
	if err := decodeJSON(r.AdditionalConditions, &u.AdditionalConditions); err != nil {
		return u, err
	}
	return u, nil
}

func unlangRowFrom(u *model.UnlangPolicy) (unlangRow, error) {
	cols, err := policyColumnsFrom(&u.Policy)
	if err != nil {
		return unlangRow{}, err
	}
	r := unlangRow{
		policyColumns:          cols,
		ConditionType:          u.ConditionType,
		ConditionAttribute:     u.ConditionAttribute,
		ConditionOperator:      u.ConditionOperator,
		ConditionValue:         u.ConditionValue,
		ConditionLogic:         u.ConditionLogic,
		ActionType:             u.ActionType,
		AuthorizationProfileID: u.AuthorizationProfileID,
	}
	if r.AdditionalConditions, err = encodeJSON(u.AdditionalConditions); err != nil {
		return r, err
	}
	return r, nil
}

func (r *profileRow) toModel() (model.AuthorizationProfile, error) {
	p := model.AuthorizationProfile{
		ID:                 r.ID,
		Name:               r.Name,
		VLANID:             r.VLANID,
		BandwidthLimitUp:   r.BandwidthUp,
		BandwidthLimitDown: r.BandwidthDown,
		SessionTimeout:     r.SessionTimeout,
		IdleTimeout:        r.IdleTimeout,
	}
	return p, decodeJSON(r.ReplyAttributes, &p.ReplyAttributes)
}

func profileRowFrom(p *model.AuthorizationProfile) (profileRow, error) {
	attrs, err := encodeJSON(p.ReplyAttributes)
	return profileRow{
		ID:              p.ID,
		Name:            p.Name,
		ReplyAttributes: attrs,
		VLANID:          p.VLANID,
		BandwidthUp:     p.BandwidthLimitUp,
		BandwidthDown:   p.BandwidthLimitDown,
		SessionTimeout:  p.SessionTimeout,
		IdleTimeout:     p.IdleTimeout,
	}, err
}

func (r *bypassRow) toModel() (model.MacBypassConfig, error) {
	c := model.MacBypassConfig{
		ID:                   r.ID,
		Name:                 r.Name,
		BypassMode:           r.BypassMode,
		RequireRegistration:  r.RequireRegistration,
		RegisteredPolicyID:   r.RegisteredPolicyID,
		UnregisteredPolicyID: r.UnregisteredPolicyID,
		IsActive:             r.IsActive,
	}
	return c, decodeJSON(r.MACAddresses, &c.MACAddresses)
}

func bypassRowFrom(c *model.MacBypassConfig) (bypassRow, error) {
	macs, err := encodeJSON(c.MACAddresses)
	return bypassRow{
		ID:                   c.ID,
		Name:                 c.Name,
		MACAddresses:         macs,
		BypassMode:           c.BypassMode,
		RequireRegistration:  c.RequireRegistration,
		RegisteredPolicyID:   c.RegisteredPolicyID,
		UnregisteredPolicyID: c.UnregisteredPolicyID,
		IsActive:             c.IsActive,
	}, err
}

func (r *nadRow) toModel() *model.NetworkAccessDevice {
	return &model.NetworkAccessDevice{
		ID:                 r.ID,
		Name:               r.Name,
		IP:                 r.IPAddress,
		Secret:             r.Secret,
		SupportsRadSec:     r.SupportsRadSec,
		SupportsCoA:        r.SupportsCoA,
		SupportsAccounting: r.SupportsAccounting,
		SupportsIPv6:       r.SupportsIPv6,
		HealthStatus:       r.HealthStatus,
		IsActive:           r.IsActive,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (r *udnRow) toModel() model.UDNAssignment {
	return model.UDNAssignment{
		MACAddress:     r.MACAddress,
		UDNID:          r.UDNID,
		UserID:         r.UserID,
		RegistrationID: r.RegistrationID,
		IPSKID:         r.IPSKID,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastAuthAt:     r.LastAuthAt,
	}
}

// decodeJSON は空・nullの列をゼロ値として扱う。
func decodeJSON(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func encodeJSON(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
