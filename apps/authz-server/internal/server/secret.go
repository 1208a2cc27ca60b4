package server

import (
	"context"
	"log/slog"
	"net"
)

// DynamicSecretSource はNAD登録情報に基づくRADIUS Secret解決を行う。
// layeh.com/radius.SecretSourceインターフェースの実装。
type DynamicSecretSource struct {
	nads           NADDirectory
	fallbackSecret []byte
}

// NewSecretSource は新しいDynamicSecretSourceを生成する。
// fallbackSecretが空文字列の場合、フォールバックは無効。
func NewSecretSource(nads NADDirectory, fallbackSecret string) *DynamicSecretSource {
	var fb []byte
	if fallbackSecret != "" {
		fb = []byte(fallbackSecret)
	}
	return &DynamicSecretSource{
		nads:           nads,
		fallbackSecret: fb,
	}
}

// RADIUSSecret はリモートアドレスに対応するRADIUS Secretを返す。
// NAD登録 → フォールバック → nilの優先順で解決する。
// 登録済みでも無効化されたNADにはフォールバックを適用しない。
func (s *DynamicSecretSource) RADIUSSecret(ctx context.Context, remoteAddr net.Addr) ([]byte, error) {
	ip := extractIP(remoteAddr)
	if ip == "" {
		var addrStr string
		if remoteAddr != nil {
			addrStr = remoteAddr.String()
		}
		slog.Warn("IPアドレス抽出失敗",
			"event_id", "RADIUS_IP_EXTRACT_ERR",
			"remote_addr", addrStr,
		)
		return s.fallback(), nil
	}

	nad, err := s.nads.GetNAD(ctx, ip)
	if err != nil {
		slog.Warn("NAD検索エラー",
			"event_id", "RADIUS_SECRET_ERR",
			"src_ip", ip,
			"error", err,
		)
		return s.fallback(), nil
	}

	if nad != nil {
		if nad.Accepts() {
			return []byte(nad.Secret), nil
		}
		slog.Warn("無効なNADからのリクエスト",
			"event_id", "RADIUS_NAD_DISABLED",
			"src_ip", ip,
			"nad", nad.Name,
		)
		return nil, nil
	}

	// NAD未登録
	if fb := s.fallback(); fb != nil {
		return fb, nil
	}
	slog.Warn("RADIUS Secret不明",
		"event_id", "RADIUS_NO_SECRET",
		"src_ip", ip,
	)
	return nil, nil
}

func (s *DynamicSecretSource) fallback() []byte {
	if len(s.fallbackSecret) > 0 {
		return s.fallbackSecret
	}
	return nil
}

// extractIP はnet.AddrからIPアドレス文字列を抽出する
func extractIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if udpAddr, ok := addr.(*net.UDPAddr); ok {
		return udpAddr.IP.String()
	}
	// UDPAddr以外の場合はhost部分を試行
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}
