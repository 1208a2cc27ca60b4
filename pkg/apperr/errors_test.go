package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		// 認可関連
		{"ErrNoPolicyMatched", ErrNoPolicyMatched, "no policy matched"},
		{"ErrPolicyNotFound", ErrPolicyNotFound, "policy not found"},
		{"ErrPolicyDenied", ErrPolicyDenied, "policy denied"},
		// インフラ関連
		{"ErrValkeyConnection", ErrValkeyConnection, "valkey connection error"},
		{"ErrValkeyCommand", ErrValkeyCommand, "valkey command error"},
		{"ErrDatabase", ErrDatabase, "database error"},
		// RADIUS関連
		{"ErrClientNotFound", ErrClientNotFound, "RADIUS client not found"},
		{"ErrInvalidAuthenticator", ErrInvalidAuthenticator, "invalid authenticator"},
		// バリデーション関連
		{"ErrInvalidMAC", ErrInvalidMAC, "invalid MAC address format"},
		{"ErrInvalidRequest", ErrInvalidRequest, "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNoPolicyMatched, ErrPolicyNotFound, ErrPolicyDenied,
		ErrValkeyConnection, ErrValkeyCommand, ErrDatabase,
		ErrClientNotFound, ErrInvalidAuthenticator,
		ErrInvalidMAC, ErrInvalidRequest,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				if errors.Is(err1, err2) {
					t.Errorf("errors.Is(%v, %v) = true, want false", err1, err2)
				}
			}
		}
	}
}

func TestSentinelErrorsCanBeWrapped(t *testing.T) {
	wrapped := errors.New("wrapper: " + ErrNoPolicyMatched.Error())
	// 直接ラップではないのでIsはfalse
	if errors.Is(wrapped, ErrNoPolicyMatched) {
		t.Error("wrapped error should not match with errors.Is for simple wrapping")
	}

	// 正しいラップ方法
	wrappedCorrectly := fmt.Errorf("match: %w", ErrNoPolicyMatched)
	if !errors.Is(wrappedCorrectly, ErrNoPolicyMatched) {
		t.Error("correctly wrapped error should match with errors.Is")
	}
}
