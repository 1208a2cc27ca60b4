package engine

import (
	"strconv"
	"strings"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// 導出属性名
const (
	AttrTunnelType           = "Tunnel-Type"
	AttrTunnelMediumType     = "Tunnel-Medium-Type"
	AttrTunnelPrivateGroupID = "Tunnel-Private-Group-Id"
	AttrBandwidthMaxUp       = "WISPr-Bandwidth-Max-Up"
	AttrBandwidthMaxDown     = "WISPr-Bandwidth-Max-Down"
	AttrSessionTimeout       = "Session-Timeout"
	AttrIdleTimeout          = "Idle-Timeout"
	AttrCiscoAVPair          = "Cisco-AVPair"

	// Tunnel-Type=VLAN(13), Tunnel-Medium-Type=IEEE-802(6)
	tunnelTypeVLAN      = "13"
	tunnelMediumType802 = "6"
	udnAVPairPrefix     = "udn:private-group-id="
)

// Compose は一致ポリシーの応答属性・VLAN・帯域・タイムアウトとUDN IDを
// 1つの順序付き属性リストにまとめる。udnIDが0の場合はUDN属性を出力しない。
//
// 順序: ポリシー応答属性 → プロファイル応答属性 → VLAN → 帯域 → Session-Timeout →
// Idle-Timeout → Cisco-AVPair(udn)
func Compose(p *policy.Policy, udnID int) []model.ReplyAttribute {
	var out []model.ReplyAttribute
	for _, a := range p.ReplyAttributes {
		out = merge(out, a)
	}

	vlan := p.VLANID
	up, down := p.BandwidthUp, p.BandwidthDown
	session, idle := p.SessionTimeout, p.IdleTimeout

	if prof := p.Profile; prof != nil {
		for _, a := range prof.ReplyAttributes {
			out = merge(out, a)
		}
		vlan = fallback(vlan, prof.VLANID)
		up = fallback(up, prof.BandwidthUp)
		down = fallback(down, prof.BandwidthDown)
		session = fallback(session, prof.SessionTimeout)
		idle = fallback(idle, prof.IdleTimeout)
	}

	if vlan > 0 {
		out = addIfAbsent(out, AttrTunnelType, tunnelTypeVLAN)
		out = addIfAbsent(out, AttrTunnelMediumType, tunnelMediumType802)
		out = addIfAbsent(out, AttrTunnelPrivateGroupID, strconv.Itoa(vlan))
	}
	// kbps → bps
	if up > 0 {
		out = addIfAbsent(out, AttrBandwidthMaxUp, strconv.FormatInt(up*1000, 10))
	}
	if down > 0 {
		out = addIfAbsent(out, AttrBandwidthMaxDown, strconv.FormatInt(down*1000, 10))
	}
	if session > 0 {
		out = addIfAbsent(out, AttrSessionTimeout, strconv.Itoa(session))
	}
	if idle > 0 {
		out = addIfAbsent(out, AttrIdleTimeout, strconv.Itoa(idle))
	}

	if udnID > 0 {
		out = append(out, model.ReplyAttribute{
			Attribute: AttrCiscoAVPair,
			Operator:  policy.ReplyOpAppend,
			Value:     udnAVPairPrefix + strconv.Itoa(udnID),
		})
	}
	return out
}

// merge は演算子に従って属性を追加する。
// ":=" 既存を置換、"=" 未設定時のみ追加、"+=" 常に追加。
func merge(list []model.ReplyAttribute, a model.ReplyAttribute) []model.ReplyAttribute {
	switch a.Operator {
	case policy.ReplyOpSet:
		kept := list[:0:0]
		for _, e := range list {
			if !sameAttr(e.Attribute, a.Attribute) {
				kept = append(kept, e)
			}
		}
		return append(kept, a)
	case policy.ReplyOpAppend:
		return append(list, a)
	default:
		if has(list, a.Attribute) {
			return list
		}
		return append(list, a)
	}
}

func addIfAbsent(list []model.ReplyAttribute, name, value string) []model.ReplyAttribute {
	return merge(list, model.ReplyAttribute{Attribute: name, Operator: policy.ReplyOpAdd, Value: value})
}

func has(list []model.ReplyAttribute, name string) bool {
	for _, e := range list {
		if sameAttr(e.Attribute, name) {
			return true
		}
	}
	return false
}

func sameAttr(a, b string) bool {
	return strings.EqualFold(a, b)
}

func fallback[T int | int64](v, alt T) T {
	if v != 0 {
		return v
	}
	return alt
}
