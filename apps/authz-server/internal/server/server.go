package server

import (
	"context"
	"errors"
	"net"

	"layeh.com/radius"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
)

// Server はRADIUS認可サーバー（UDP）
type Server struct {
	ps *radius.PacketServer
}

// New は設定からHandlerとSecretSourceを組み立ててServerを生成する。
// optsは設定由来のオプションの後に適用される。
func New(cfg *config.Config, authz Authorizer, nads NADDirectory, opts ...HandlerOption) *Server {
	base := []HandlerOption{
		WithRequireMessageAuthenticator(cfg.RadiusRequireMA),
		WithAuthorizeTimeout(config.AuthorizeTimeout),
	}
	h := NewHandler(authz, append(base, opts...)...)
	return NewServer(cfg.ListenAddr, h, NewSecretSource(nads, cfg.RadiusSecret))
}

// NewServer は新しいServerを生成する
func NewServer(addr string, handler radius.Handler, secretSource radius.SecretSource) *Server {
	return &Server{
		ps: &radius.PacketServer{
			Addr:         addr,
			SecretSource: secretSource,
			Handler:      handler,
		},
	}
}

// ListenAndServe はUDPサーバーを起動する。Shutdownによる停止時はnilを返す。
func (s *Server) ListenAndServe() error {
	return ignoreShutdown(s.ps.ListenAndServe())
}

// Serve は既存のPacketConnで待ち受ける。
func (s *Server) Serve(conn net.PacketConn) error {
	return ignoreShutdown(s.ps.Serve(conn))
}

// Shutdown はサーバーをグレースフルに停止する
func (s *Server) Shutdown(ctx context.Context) error {
	return s.ps.Shutdown(ctx)
}

func ignoreShutdown(err error) error {
	if errors.Is(err, radius.ErrServerShutdown) {
		return nil
	}
	return err
}
