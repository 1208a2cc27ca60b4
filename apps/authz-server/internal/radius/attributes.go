package radius

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2868"
	"layeh.com/radius/rfc2869"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// ベンダーID（IANA Private Enterprise Number）
const (
	VendorCisco    uint32 = 9
	VendorWISPr    uint32 = 14122
	VendorMikrotik uint32 = 14988
)

// ベンダー属性タイプ
const (
	CiscoAVPair           byte = 1
	WISPrBandwidthMaxUp   byte = 7
	WISPrBandwidthMaxDown byte = 8
	MikrotikRateLimit     byte = 8
)

// maxVSAValueLen はVSA値の最大長（255 - 属性ヘッダ2 - ベンダーID4 - ベンダーヘッダ2）
const maxVSAValueLen = 247

// tunnelTypeVLAN はTunnel-Type=VLAN(13)。rfc2868パッケージに定数がないため直接定義する。
const tunnelTypeVLAN rfc2868.TunnelType = 13

type attributeWriter func(p *radius.Packet, value string) error

// replyWriters は属性名（小文字）→AVP書き込み関数
var replyWriters = map[string]attributeWriter{
	"tunnel-type":             writeTunnelType,
	"tunnel-medium-type":      writeTunnelMediumType,
	"tunnel-private-group-id": writeTunnelPrivateGroupID,
	"session-timeout":         writeSessionTimeout,
	"idle-timeout":            writeIdleTimeout,
	"acct-interim-interval":   writeAcctInterimInterval,
	"framed-ip-address":       writeFramedIPAddress,
	"framed-mtu":              writeFramedMTU,
	"filter-id": func(p *radius.Packet, v string) error {
		return rfc2865.FilterID_AddString(p, v)
	},
	"class": func(p *radius.Packet, v string) error {
		return rfc2865.Class_Add(p, []byte(v))
	},
	"reply-message": func(p *radius.Packet, v string) error {
		return rfc2865.ReplyMessage_AddString(p, v)
	},
	"cisco-avpair": func(p *radius.Packet, v string) error {
		return addVendorString(p, VendorCisco, CiscoAVPair, v)
	},
	"wispr-bandwidth-max-up": func(p *radius.Packet, v string) error {
		return addVendorInteger(p, VendorWISPr, WISPrBandwidthMaxUp, v)
	},
	"wispr-bandwidth-max-down": func(p *radius.Packet, v string) error {
		return addVendorInteger(p, VendorWISPr, WISPrBandwidthMaxDown, v)
	},
	"mikrotik-rate-limit": func(p *radius.Packet, v string) error {
		return addVendorString(p, VendorMikrotik, MikrotikRateLimit, v)
	},
}

// SupportsAttribute は属性名をRADIUS AVPに変換できるかどうかを返す。
func SupportsAttribute(name string) bool {
	_, ok := replyWriters[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// AddReplyAttributes は応答属性リストを順にパケットへ追加する。
// 変換できない属性はスキップし、そのエラーをまとめて返す。
func AddReplyAttributes(p *radius.Packet, attrs []model.ReplyAttribute) error {
	var errs []error
	for _, a := range attrs {
		w, ok := replyWriters[strings.ToLower(strings.TrimSpace(a.Attribute))]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", a.Attribute, ErrUnsupportedAttribute))
			continue
		}
		if err := w(p, a.Value); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", a.Attribute, a.Value, err))
		}
	}
	return errors.Join(errs...)
}

func writeTunnelType(p *radius.Packet, v string) error {
	if strings.EqualFold(strings.TrimSpace(v), "VLAN") {
		return rfc2868.TunnelType_Set(p, 0, tunnelTypeVLAN)
	}
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2868.TunnelType_Set(p, 0, rfc2868.TunnelType(n))
}

func writeTunnelMediumType(p *radius.Packet, v string) error {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "IEEE-802", "IEEE802", "802":
		return rfc2868.TunnelMediumType_Set(p, 0, rfc2868.TunnelMediumType_Value_IEEE802)
	}
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2868.TunnelMediumType_Set(p, 0, rfc2868.TunnelMediumType(n))
}

func writeTunnelPrivateGroupID(p *radius.Packet, v string) error {
	return rfc2868.TunnelPrivateGroupID_SetString(p, 0, strings.TrimSpace(v))
}

func writeSessionTimeout(p *radius.Packet, v string) error {
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2865.SessionTimeout_Set(p, rfc2865.SessionTimeout(n))
}

func writeIdleTimeout(p *radius.Packet, v string) error {
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2865.IdleTimeout_Set(p, rfc2865.IdleTimeout(n))
}

func writeAcctInterimInterval(p *radius.Packet, v string) error {
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2869.AcctInterimInterval_Set(p, rfc2869.AcctInterimInterval(n))
}

func writeFramedIPAddress(p *radius.Packet, v string) error {
	ip := net.ParseIP(strings.TrimSpace(v)).To4()
	if ip == nil {
		return ErrInvalidAttributeValue
	}
	return rfc2865.FramedIPAddress_Set(p, ip)
}

func writeFramedMTU(p *radius.Packet, v string) error {
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	return rfc2865.FramedMTU_Set(p, rfc2865.FramedMTU(n))
}

func parseUint32(v string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0, ErrInvalidAttributeValue
	}
	return uint32(n), nil
}

// addVendorString は文字列型のVendor-Specific属性を追加する。
func addVendorString(p *radius.Packet, vendorID uint32, vendorType byte, v string) error {
	attr, err := vendorSpecific(vendorID, vendorType, []byte(v))
	if err != nil {
		return err
	}
	p.Add(rfc2865.VendorSpecific_Type, attr)
	return nil
}

// addVendorInteger は整数型（4バイト）のVendor-Specific属性を追加する。
func addVendorInteger(p *radius.Packet, vendorID uint32, vendorType byte, v string) error {
	n, err := parseUint32(v)
	if err != nil {
		return err
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	attr, err := vendorSpecific(vendorID, vendorType, b)
	if err != nil {
		return err
	}
	p.Add(rfc2865.VendorSpecific_Type, attr)
	return nil
}

// vendorSpecific はVSAのペイロードを組み立てる。
// 形式: Vendor-ID(4) + Vendor-Type(1) + Vendor-Length(1) + Value
func vendorSpecific(vendorID uint32, vendorType byte, value []byte) (radius.Attribute, error) {
	if len(value) > maxVSAValueLen {
		return nil, ErrInvalidAttributeValue
	}
	b := make([]byte, 6+len(value))
	binary.BigEndian.PutUint32(b[:4], vendorID)
	b[4] = vendorType
	b[5] = byte(2 + len(value))
	copy(b[6:], value)
	return radius.Attribute(b), nil
}

// VendorAttributes はパケット内の指定ベンダー・タイプのVSA値を受信順に返す。
func VendorAttributes(p *radius.Packet, vendorID uint32, vendorType byte) [][]byte {
	var values [][]byte
	for _, avp := range p.Attributes {
		if avp.Type != rfc2865.VendorSpecific_Type {
			continue
		}
		b := []byte(avp.Attribute)
		if len(b) < 6 || binary.BigEndian.Uint32(b[:4]) != vendorID {
			continue
		}
		// 1つのVSAに複数のサブ属性が含まれる場合がある
		for sub := b[4:]; len(sub) >= 2; {
			l := int(sub[1])
			if l < 2 || l > len(sub) {
				break
			}
			if sub[0] == vendorType {
				values = append(values, sub[2:l])
			}
			sub = sub[l:]
		}
	}
	return values
}
