// Package logging はログ関連のユーティリティを提供する。
package logging

import "strings"

// MaskMAC はMACアドレスをマスキングする。
// OUI（先頭3オクテット）のみ残し、以降の16進数字をマスクする。区切り文字は保持する。
// 例: aa:bb:cc:dd:ee:ff → aa:bb:cc:**:**:**
// enabled=false の場合はマスキングせずにそのまま返す。
func MaskMAC(mac string, enabled bool) string {
	if !enabled {
		return mac
	}
	runes := []rune(mac)
	if len(runes) <= 8 {
		return mac
	}
	for i := 8; i < len(runes); i++ {
		if isHexDigit(runes[i]) {
			runes[i] = '*'
		}
	}
	return string(runes)
}

// MaskUsername はユーザー名をマスキングする。
// "@"を含む場合はローカル部のみ先頭2文字を残してマスクし、ドメイン部は保持する。
func MaskUsername(username string, enabled bool) string {
	if !enabled {
		return username
	}
	local, domain, found := strings.Cut(username, "@")
	masked := MaskPartial(local, 2, 0, '*')
	if found {
		return masked + "@" + domain
	}
	return masked
}

// MaskPartial は文字列の一部をマスキングする。
// keepPrefix: 先頭から保持する文字数
// keepSuffix: 末尾から保持する文字数
// maskChar: マスキングに使用する文字
func MaskPartial(s string, keepPrefix, keepSuffix int, maskChar rune) string {
	runes := []rune(s)
	length := len(runes)

	// 文字列が短すぎる場合はそのまま返す
	if length <= keepPrefix+keepSuffix {
		return s
	}

	result := make([]rune, length)
	copy(result, runes[:keepPrefix])
	for i := keepPrefix; i < length-keepSuffix; i++ {
		result[i] = maskChar
	}
	copy(result[length-keepSuffix:], runes[length-keepSuffix:])

	return string(result)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// Masker はマスキング設定を保持する構造体。
type Masker struct {
	enabled bool
}

// NewMasker は新しいMaskerを生成する。
func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// MAC はMACアドレスをマスキングする。
func (m *Masker) MAC(mac string) string {
	return MaskMAC(mac, m.enabled)
}

// Username はユーザー名をマスキングする。
func (m *Masker) Username(username string) string {
	return MaskUsername(username, m.enabled)
}

// IsEnabled はマスキングが有効かどうかを返す。
func (m *Masker) IsEnabled() bool {
	return m.enabled
}
