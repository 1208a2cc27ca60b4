package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/mocks"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

func TestSecretSource(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("192.168.1.100"), Port: 1812}

	disabled := model.NewNetworkAccessDevice("192.168.1.100", "disabled-secret", "ap-old")
	disabled.IsActive = false

	tests := []struct {
		name     string
		nad      *model.NetworkAccessDevice
		err      error
		fallback string
		want     string
	}{
		{"登録済みNAD", model.NewNetworkAccessDevice("192.168.1.100", "found-secret", "ap-1"), nil, "fallback", "found-secret"},
		{"未登録→フォールバック", nil, nil, "fallback-secret", "fallback-secret"},
		{"未登録・フォールバックなし", nil, nil, "", ""},
		{"検索エラー→フォールバック", nil, errors.New("valkey unavailable"), "fallback-secret", "fallback-secret"},
		{"検索エラー・フォールバックなし", nil, errors.New("valkey unavailable"), "", ""},
		{"無効化NADはフォールバックしない", disabled, nil, "fallback-secret", ""},
		{"Secret未設定NAD", model.NewNetworkAccessDevice("192.168.1.100", "", "ap-2"), nil, "fallback-secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockNAD := mocks.NewMockNADDirectory(ctrl)
			mockNAD.EXPECT().GetNAD(gomock.Any(), "192.168.1.100").Return(tt.nad, tt.err)

			ss := NewSecretSource(mockNAD, tt.fallback)

			secret, err := ss.RADIUSSecret(context.Background(), addr)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if tt.want == "" {
				if secret != nil {
					t.Errorf("secret: got %q, want nil", secret)
				}
				return
			}
			if string(secret) != tt.want {
				t.Errorf("secret: got %q, want %q", secret, tt.want)
			}
		})
	}
}

func TestSecretSource_IPExtraction(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{
			"UDPAddr IPv4",
			&net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1812},
			"10.0.0.1",
		},
		{
			"UDPAddr IPv6",
			&net.UDPAddr{IP: net.ParseIP("::1"), Port: 1812},
			"::1",
		},
		{
			"TCPAddr",
			&net.TCPAddr{IP: net.ParseIP("172.16.0.1"), Port: 1812},
			"172.16.0.1",
		},
		{
			"nil addr",
			nil,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractIP(tt.addr)
			if got != tt.want {
				t.Errorf("extractIP: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecretSource_NilAddr(t *testing.T) {
	ctrl := gomock.NewController(t)
	// GetNADは呼ばれない
	mockNAD := mocks.NewMockNADDirectory(ctrl)

	secret, err := NewSecretSource(mockNAD, "fallback-secret").RADIUSSecret(context.Background(), nil)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if string(secret) != "fallback-secret" {
		t.Errorf("secret: got %q, want %q", secret, "fallback-secret")
	}

	secret, err = NewSecretSource(mockNAD, "").RADIUSSecret(context.Background(), nil)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if secret != nil {
		t.Errorf("secret: got %v, want nil", secret)
	}
}
