package radius

import "errors"

// 応答属性エラー
var (
	// ErrUnsupportedAttribute はRADIUS AVPに変換できない属性名の場合のエラー
	ErrUnsupportedAttribute = errors.New("unsupported reply attribute")

	// ErrInvalidAttributeValue は属性値の形式が不正な場合のエラー
	ErrInvalidAttributeValue = errors.New("invalid reply attribute value")
)

// Message-Authenticator属性エラー
var (
	// ErrMissingMessageAuthenticator はMessage-Authenticator属性が見つからない場合のエラー
	ErrMissingMessageAuthenticator = errors.New("message authenticator not found")

	// ErrInvalidMessageAuthenticator はMessage-Authenticator属性の検証に失敗した場合のエラー
	ErrInvalidMessageAuthenticator = errors.New("message authenticator verification failed")
)
