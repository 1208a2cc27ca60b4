package server

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/engine"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/mocks"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	radiuspkg "github.com/oyaguma3/wpn-authz/apps/authz-server/internal/radius"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

func TestNewServer(t *testing.T) {
	handler := radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {})
	secretSource := radius.StaticSecretSource([]byte("test-secret"))

	s := NewServer(":1812", handler, secretSource)
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.ps == nil {
		t.Fatal("PacketServer is nil")
	}
	if s.ps.Addr != ":1812" {
		t.Errorf("Addr: got %q, want %q", s.ps.Addr, ":1812")
	}
}

func TestNew_FromConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := &config.Config{ListenAddr: ":11812", RadiusSecret: "fb", RadiusRequireMA: false}

	s := New(cfg, mocks.NewMockAuthorizer(ctrl), mocks.NewMockNADDirectory(ctrl))

	if s.ps.Addr != ":11812" {
		t.Errorf("Addr: got %q, want %q", s.ps.Addr, ":11812")
	}
	h, ok := s.ps.Handler.(*Handler)
	if !ok {
		t.Fatalf("Handler type = %T, want *Handler", s.ps.Handler)
	}
	if h.requireMA {
		t.Error("requireMA = true, want false")
	}
	if h.timeout != config.AuthorizeTimeout {
		t.Errorf("timeout = %v, want %v", h.timeout, config.AuthorizeTimeout)
	}
}

// UDP経由でAccess-Request→Access-Acceptの往復を確認する
func TestServer_Exchange(t *testing.T) {
	ctrl := gomock.NewController(t)
	secret := []byte("e2e-secret")

	mockNAD := mocks.NewMockNADDirectory(ctrl)
	mockNAD.EXPECT().GetNAD(gomock.Any(), "127.0.0.1").
		Return(model.NewNetworkAccessDevice("127.0.0.1", string(secret), "local"), nil).AnyTimes()

	mockAuthz := mocks.NewMockAuthorizer(ctrl)
	mockAuthz.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *policy.Request) engine.Decision {
			if req.Username != "alice" {
				return engine.Reject(engine.ReasonNoPolicyMatched)
			}
			return engine.Decision{
				Accept: true,
				ReplyAttributes: []model.ReplyAttribute{
					{Attribute: "Session-Timeout", Operator: "=", Value: "1800"},
				},
			}
		}).Times(2)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	s := NewServer(conn.LocalAddr().String(), NewHandler(mockAuthz), NewSecretSource(mockNAD, ""))

	done := make(chan error, 1)
	go func() { done <- s.Serve(conn) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		if err := <-done; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})

	exchange := func(user string) *radius.Packet {
		t.Helper()
		p := radius.New(radius.CodeAccessRequest, secret)
		_ = rfc2865.UserName_SetString(p, user)
		radiuspkg.SetMessageAuthenticator(p, secret, p.Authenticator)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := radius.Exchange(ctx, p, conn.LocalAddr().String())
		if err != nil {
			t.Fatalf("Exchange failed: %v", err)
		}
		return resp
	}

	resp := exchange("alice")
	if resp.Code != radius.CodeAccessAccept {
		t.Fatalf("Code = %v, want Access-Accept", resp.Code)
	}
	if got := rfc2865.SessionTimeout_Get(resp); got != 1800 {
		t.Errorf("SessionTimeout = %d, want 1800", got)
	}

	resp = exchange("mallory")
	if resp.Code != radius.CodeAccessReject {
		t.Fatalf("Code = %v, want Access-Reject", resp.Code)
	}
	if got := rfc2865.ReplyMessage_GetString(resp); got != engine.ReasonNoPolicyMatched {
		t.Errorf("Reply-Message = %q, want %q", got, engine.ReasonNoPolicyMatched)
	}
}
