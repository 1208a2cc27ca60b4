// Package main はauthz-server（RADIUS認可判定エンジン + UDN割り当て）のエントリーポイント。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	// ポリシーの時間帯制限でIANAタイムゾーンを解決するため
	_ "time/tzdata"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/admin"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/engine"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/server"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

func main() {
	// 1. 環境変数読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定読み込み失敗", "error", err)
		os.Exit(1)
	}

	// 2. ロガー初期化
	initLogger(cfg.LogLevel)

	slog.Info("authz-server起動開始",
		"listen_addr", cfg.ListenAddr,
		"admin_listen_addr", cfg.AdminListenAddr,
		"store_backend", cfg.StoreBackend,
		"policy_source", cfg.PolicySource,
		"udn_backend", cfg.UDNBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 3. バックエンド（Valkey/PostgreSQL、ポリシー取得元、UDNプール）
	be, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("バックエンド初期化失敗",
			"event_id", "BACKEND_INIT_ERR",
			"error", err,
		)
		os.Exit(1)
	}
	defer be.Close()

	// 4. ポリシースナップショット（初回ロード失敗時は空のスナップショットで起動）
	policies := policy.NewStore(be.repo)
	if _, err := policies.Reload(ctx); err != nil {
		slog.Warn("初回ポリシーロード失敗、空のスナップショットで起動",
			"event_id", "POLICY_INITIAL_LOAD_ERR",
			"error", err,
		)
	}
	go policies.Run(ctx, cfg.PolicyReloadInterval)

	// 5. 認可エンジン
	masker := logging.NewMasker(cfg.LogMaskMAC)
	authz := engine.New(policies, be.pool, be.usage, engine.WithMasker(masker))

	// 6. RADIUSサーバー
	radiusSrv := server.New(cfg, authz, be.nads,
		server.WithStatusMessage(func() string { return statusLine(policies.Current()) }),
	)
	go func() {
		slog.Info("RADIUSサーバー起動", "event_id", "RADIUS_START", "addr", cfg.ListenAddr)
		if err := radiusSrv.ListenAndServe(); err != nil {
			slog.Error("RADIUSサーバーエラー", "event_id", "RADIUS_SERVE_ERR", "error", err)
			stop()
		}
	}()

	// 7. 管理API
	adminSrv := admin.New(cfg, admin.NewHandler(be.pool, policies, be.usage, masker))
	go func() {
		if err := adminSrv.Run(); err != nil {
			slog.Error("管理APIサーバーエラー", "event_id", "ADMIN_SERVE_ERR", "error", err)
			stop()
		}
	}()

	// 8. シグナル待機 → Graceful Shutdown
	<-ctx.Done()
	slog.Info("シャットダウン開始")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := radiusSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("RADIUSサーバーシャットダウンエラー", "error", err)
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("管理APIシャットダウンエラー", "error", err)
	}

	slog.Info("authz-server停止完了")
}

// statusLine はStatus-Server応答に載せる稼働情報を返す。
func statusLine(snap *policy.Snapshot) string {
	sum := snap.Summary()
	return fmt.Sprintf("policy_version=%d policies=%d unlang_policies=%d config_errors=%d",
		sum.Version, sum.Policies, sum.UnlangPolicies, len(sum.ConfigErrors))
}

// initLogger はJSON形式のデフォルトロガーを設定する。
func initLogger(level string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	})).With("app", "authz-server")
	slog.SetDefault(logger)
}

// parseLogLevel はLOG_LEVELの値をslog.Levelに変換する。不明な値はINFO。
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
