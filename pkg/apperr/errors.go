// Package apperr は共通エラー定義を提供する。
package apperr

import "errors"

// 認可関連エラー
var (
	// ErrNoPolicyMatched はどのポリシーにも一致しなかった場合のエラー
	ErrNoPolicyMatched = errors.New("no policy matched")
	// ErrPolicyNotFound はポリシーが見つからない場合のエラー
	ErrPolicyNotFound = errors.New("policy not found")
	// ErrPolicyDenied はポリシーによる拒否エラー
	ErrPolicyDenied = errors.New("policy denied")
)

// インフラ関連エラー
var (
	// ErrValkeyConnection はValkey接続エラー
	ErrValkeyConnection = errors.New("valkey connection error")
	// ErrValkeyCommand はValkeyコマンド実行エラー
	ErrValkeyCommand = errors.New("valkey command error")
	// ErrDatabase はデータベース操作エラー
	ErrDatabase = errors.New("database error")
)

// RADIUS関連エラー
var (
	// ErrClientNotFound はRADIUSクライアント（NAD）が見つからない場合のエラー
	ErrClientNotFound = errors.New("RADIUS client not found")
	// ErrInvalidAuthenticator は不正なAuthenticatorエラー
	ErrInvalidAuthenticator = errors.New("invalid authenticator")
)

// バリデーション関連エラー
var (
	// ErrInvalidMAC は不正なMACアドレス形式エラー
	ErrInvalidMAC = errors.New("invalid MAC address format")
	// ErrInvalidRequest は不正なリクエストエラー
	ErrInvalidRequest = errors.New("invalid request")
)
