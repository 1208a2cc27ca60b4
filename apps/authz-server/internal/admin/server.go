package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
)

// Server は管理APIのHTTPサーバーを管理する。
type Server struct {
	engine *gin.Engine
	server *http.Server
	addr   string
}

// New は新しいServerを生成する。
func New(cfg *config.Config, h *Handler) *Server {
	gin.SetMode(cfg.GinMode)

	engine := NewEngine(h, []byte(cfg.AdminJWTSecret))
	if cfg.AdminJWTSecret == "" {
		slog.Warn("admin API authentication disabled",
			"event_id", "ADMIN_AUTH_DISABLED",
		)
	}

	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:         cfg.AdminListenAddr,
			Handler:      engine,
			ReadTimeout:  config.AdminReadTimeout,
			WriteTimeout: config.AdminWriteTimeout,
			IdleTimeout:  config.AdminIdleTimeout,
		},
		addr: cfg.AdminListenAddr,
	}
}

// NewEngine はミドルウェアとルーティングを設定したgin.Engineを生成する。
func NewEngine(h *Handler, jwtSecret []byte) *gin.Engine {
	engine := gin.New()

	engine.Use(TraceIDMiddleware())
	engine.Use(LoggingMiddleware())
	engine.Use(RecoveryMiddleware())

	SetupRouter(engine, h, jwtSecret)
	return engine
}

// Run はサーバーを起動する。Shutdownによる停止時はnilを返す。
func (s *Server) Run() error {
	slog.Info("starting admin server", "event_id", "ADMIN_START", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown はサーバーをシャットダウンする。
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down admin server", "event_id", "ADMIN_STOP")
	return s.server.Shutdown(ctx)
}
