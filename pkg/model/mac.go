package model

import (
	"net"
	"strings"
)

// NormalizeMAC はMACアドレスを小文字コロン区切り形式に正規化する。
// 受け付ける形式: aa:bb:cc:dd:ee:ff, AA-BB-CC-DD-EE-FF, aabb.ccdd.eeff, aabbccddeeff
// 48bit以外、または不正な形式の場合はfalseを返す。
func NormalizeMAC(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if len(s) == 12 && isHexString(s) {
		s = s[0:2] + ":" + s[2:4] + ":" + s[4:6] + ":" + s[6:8] + ":" + s[8:10] + ":" + s[10:12]
	}

	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return "", false
	}
	return hw.String(), true
}

// IsMAC はMACアドレスとして解釈可能かを判定する。
func IsMAC(s string) bool {
	_, ok := NormalizeMAC(s)
	return ok
}

func isHexString(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') && !(r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
