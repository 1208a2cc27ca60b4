package store

import (
	"strconv"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
)

// Valkeyキープレフィックス
const (
	KeyPrefixPolicy      = "policy:"      // 標準ポリシー（JSON）
	KeyPrefixUnlang      = "unlang:"      // Unlangポリシー（JSON）
	KeyPrefixProfile     = "profile:"     // 認可プロファイル（JSON）
	KeyPrefixBypass      = "bypass:"      // MACバイパス設定（JSON）
	KeyPrefixNAD         = "nad:"         // RADIUSクライアント（Hash）
	KeyPrefixUsage       = "usage:"       // ポリシー使用状況（Hash）
	KeyPrefixUDNMAC      = "udn:mac:"     // 有効なUDN割り当て（Hash）
	KeyPrefixUDNHistory  = "udn:history:" // 失効済みUDN割り当て（List, JSON）
	KeyPrefixPolicyIndex = "idx:"         // レコード種別ごとのIDセット
)

// UDNプール状態キー
const (
	KeyUDNFree = "udn:free" // 解放済みID（ZSet, score=ID）
	KeyUDNNext = "udn:next" // 未払い出しの最小ID
	KeyUDNIDs  = "udn:ids"  // 有効ID → MAC（Hash）
	KeyUsageIx = "idx:usage"
)

func recordKey(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// indexKey はレコード種別のIDセットキーを返す（例: idx:policy）。
func indexKey(prefix string) string {
	return KeyPrefixPolicyIndex + prefix[:len(prefix)-1]
}

func usageKey(ref policy.Ref) string {
	return KeyPrefixUsage + ref.String()
}

func udnMACKey(mac string) string {
	return KeyPrefixUDNMAC + mac
}

func udnHistoryKey(mac string) string {
	return KeyPrefixUDNHistory + mac
}

func nadKey(ip string) string {
	return KeyPrefixNAD + ip
}
