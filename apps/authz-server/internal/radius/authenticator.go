package radius

import (
	"crypto/hmac"
	"crypto/md5"
	"errors"

	"layeh.com/radius"
	"layeh.com/radius/rfc2869"
)

// HasMessageAuthenticator はMessage-Authenticator属性の有無を返す。
func HasMessageAuthenticator(packet *radius.Packet) bool {
	_, err := rfc2869.MessageAuthenticator_Lookup(packet)
	return err == nil
}

// CheckMessageAuthenticator はMessage-Authenticator属性を検証する。
// requiredがfalseで属性が存在しない場合は検証を省略する。
func CheckMessageAuthenticator(packet *radius.Packet, secret []byte, required bool) error {
	if !HasMessageAuthenticator(packet) {
		if required {
			return ErrMissingMessageAuthenticator
		}
		return nil
	}
	if !VerifyMessageAuthenticator(packet, secret) {
		return ErrInvalidMessageAuthenticator
	}
	return nil
}

// IsAuthenticatorError はMessage-Authenticator関連のエラーかどうかを返す。
func IsAuthenticatorError(err error) bool {
	return errors.Is(err, ErrMissingMessageAuthenticator) || errors.Is(err, ErrInvalidMessageAuthenticator)
}

// VerifyMessageAuthenticator はMessage-Authenticator属性を検証する（RFC 3579）。
// Request Authenticatorを含むパケット全体のHMAC-MD5を計算し、属性値と比較する。
func VerifyMessageAuthenticator(packet *radius.Packet, secret []byte) bool {
	origMA, err := rfc2869.MessageAuthenticator_Lookup(packet)
	if err != nil {
		return false
	}
	if len(origMA) != 16 {
		return false
	}

	// 属性値を16バイトのゼロに置換して計算する
	_ = rfc2869.MessageAuthenticator_Set(packet, make([]byte, 16))
	data, err := packet.MarshalBinary()
	_ = rfc2869.MessageAuthenticator_Set(packet, origMA)
	if err != nil {
		return false
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), origMA)
}

// SetMessageAuthenticator は応答パケットにMessage-Authenticator属性を生成・追加する。
// requestAuth はリクエストのAuthenticator（応答の計算にもこちらを使う）。
func SetMessageAuthenticator(packet *radius.Packet, secret []byte, requestAuth [16]byte) {
	_ = rfc2869.MessageAuthenticator_Set(packet, make([]byte, 16))

	savedAuth := packet.Authenticator
	packet.Authenticator = requestAuth
	data, err := packet.MarshalBinary()
	packet.Authenticator = savedAuth
	if err != nil {
		return
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(data)
	_ = rfc2869.MessageAuthenticator_Set(packet, mac.Sum(nil))
}
