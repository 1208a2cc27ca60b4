package radius

import (
	"net"
	"strconv"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"
)

// GetNASIdentifier はNAS-Identifier属性を取得する。
// 属性が存在しない場合は("", false)を返す。
func GetNASIdentifier(p *radius.Packet) (string, bool) {
	val := rfc2865.NASIdentifier_GetString(p)
	if val == "" {
		return "", false
	}
	return val, true
}

// GetNASIPAddress はNAS-IP-Address属性を取得する。
// 属性が存在しない場合は(nil, false)を返す。
func GetNASIPAddress(p *radius.Packet) (net.IP, bool) {
	ip, err := rfc2865.NASIPAddress_Lookup(p)
	if err != nil {
		return nil, false
	}
	return ip, true
}

// GetCalledStationID はCalled-Station-Id属性を取得する。
// 属性が存在しない場合は("", false)を返す。
func GetCalledStationID(p *radius.Packet) (string, bool) {
	val := rfc2865.CalledStationID_GetString(p)
	if val == "" {
		return "", false
	}
	return val, true
}

// GetCallingStationID はCalling-Station-Id属性を取得する。
// 属性が存在しない場合は("", false)を返す。
func GetCallingStationID(p *radius.Packet) (string, bool) {
	val := rfc2865.CallingStationID_GetString(p)
	if val == "" {
		return "", false
	}
	return val, true
}

// GetUserName はUser-Name属性を取得する。
// 属性が存在しない場合は("", false)を返す。
func GetUserName(p *radius.Packet) (string, bool) {
	val := rfc2865.UserName_GetString(p)
	if val == "" {
		return "", false
	}
	return val, true
}

// CollectAttributes は条件評価用の追加属性を属性名→値の形で抽出する。
// User-Name等の組み込みフィールドに対応する属性は含めない。
func CollectAttributes(p *radius.Packet) map[string]string {
	attrs := make(map[string]string)

	if v, ok := GetCalledStationID(p); ok {
		attrs["Called-Station-Id"] = v
	}
	if v := rfc2869.NASPortID_GetString(p); v != "" {
		attrs["NAS-Port-Id"] = v
	}
	if v := rfc2869.ConnectInfo_GetString(p); v != "" {
		attrs["Connect-Info"] = v
	}
	if v, err := rfc2865.NASPort_Lookup(p); err == nil {
		attrs["NAS-Port"] = strconv.FormatUint(uint64(v), 10)
	}
	if v, err := rfc2865.NASPortType_Lookup(p); err == nil {
		attrs["NAS-Port-Type"] = strconv.FormatUint(uint64(v), 10)
	}
	if v, err := rfc2865.ServiceType_Lookup(p); err == nil {
		attrs["Service-Type"] = strconv.FormatUint(uint64(v), 10)
	}
	if v, err := rfc2865.FramedIPAddress_Lookup(p); err == nil {
		attrs["Framed-IP-Address"] = v.String()
	}
	return attrs
}
