package policy

import "strings"

// canonicalAttr は属性名を比較用に正規化する。
// 大文字小文字と '-' '_' の違いを無視する（User-Name == user_name）。
func canonicalAttr(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		if r == '-' || r == '_' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup は属性名に対応する要求属性値を返す。名前は大文字小文字と '-' '_' を区別しない。
// 組み込みフィールドを優先し、次にadditional_attributesを検索する。
func (r *Request) Lookup(name string) (string, bool) {
	return r.lookup(strings.TrimSpace(name), canonicalAttr(name))
}

// lookup はkey（canonicalAttr済み）で検索する。
// additional_attributesで複数の名前が同じkeyに正規化される場合、
// nameと完全一致する名前、なければ辞書順で最小の名前の値を使う。
func (r *Request) lookup(name, key string) (string, bool) {
	switch key {
	case "username":
		return nonEmpty(r.Username)
	case "macaddress":
		return nonEmpty(r.MACAddress)
	case "callingstation", "callingstationid":
		return nonEmpty(r.CallingStation)
	case "nasidentifier":
		return nonEmpty(r.NASIdentifier)
	case "nasip", "nasipaddress":
		return nonEmpty(r.NASIP)
	}
	if v, ok := r.AdditionalAttributes[name]; ok && name != "" {
		return v, true
	}
	var (
		found  bool
		chosen string
		value  string
	)
	for n, v := range r.AdditionalAttributes {
		if canonicalAttr(n) != key {
			continue
		}
		if !found || n < chosen {
			found, chosen, value = true, n, v
		}
	}
	return value, found
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}
