package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policyfile"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/server"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/sqlstore"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/store"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// rowSource は永続化済みのUDN割り当て（有効・履歴）を列挙できるプール
type rowSource interface {
	udn.Pool
	Rows(ctx context.Context) ([]model.UDNAssignment, error)
}

// backend は設定に応じて選択した永続化層一式
type backend struct {
	repo    policy.Repository
	usage   policy.UsageRecorder
	nads    server.NADDirectory
	pool    udn.Pool
	closers []func() error
}

// Close は開いた接続をすべて閉じる。
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Warn("バックエンドのクローズに失敗", "error", err)
		}
	}
}

// openBackend はSTORE_BACKEND / POLICY_SOURCE / UDN_BACKENDに従って永続化層を組み立てる。
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	rng := udn.Range{Start: cfg.UDNRangeStart, End: cfg.UDNRangeEnd}
	b := &backend{}

	var persisted rowSource
	switch cfg.StoreBackend {
	case config.BackendValkey:
		vc, err := store.NewValkeyClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("valkey: %w", err)
		}
		b.closers = append(b.closers, vc.Close)
		slog.Info("Valkey接続完了", "addr", cfg.ValkeyAddr())

		pool, err := store.NewUDNPool(vc, rng, store.WithMaxRetries(config.AllocationMaxRetries))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.repo = store.NewPolicyRepository(vc)
		b.usage = store.NewUsageStore(vc)
		b.nads = store.NewNADStore(vc)
		persisted = pool

	case config.BackendPostgres:
		db, err := sqlstore.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.closers = append(b.closers, func() error { return sqlstore.Close(db) })
		if err := sqlstore.Migrate(db); err != nil {
			b.Close()
			return nil, err
		}
		slog.Info("PostgreSQL接続完了", "host", cfg.DBHost, "db", cfg.DBName)

		pool, err := sqlstore.NewUDNPool(db, rng, time.Now)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.repo = sqlstore.NewPolicyRepository(db)
		b.usage = sqlstore.NewUsageStore(db)
		b.nads = sqlstore.NewNADStore(db)
		persisted = pool

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	if cfg.PolicySource == config.PolicySourceFile {
		doc, err := policyfile.Load(cfg.PolicyFile)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.repo = policyfile.NewRepository(cfg.PolicyFile)
		if len(doc.NetworkAccessDevices) > 0 {
			b.nads = policyfile.NewDirectory(doc.NetworkAccessDevices)
		}
		slog.Info("ポリシーファイル使用", "path", cfg.PolicyFile, "nads", len(doc.NetworkAccessDevices))
	}

	pool, err := selectPool(ctx, cfg.UDNBackend, rng, persisted)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.pool = pool
	return b, nil
}

// selectPool はUDN_BACKENDに応じてプールを選ぶ。
// memoryの場合は永続化層の割り当て状況から復元する。
func selectPool(ctx context.Context, kind string, rng udn.Range, persisted rowSource) (udn.Pool, error) {
	if kind != config.UDNBackendMemory {
		return persisted, nil
	}

	mem, err := udn.NewMemoryPool(rng, time.Now)
	if err != nil {
		return nil, err
	}
	rows, err := persisted.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore memory pool: %w", err)
	}
	if err := mem.Restore(rows); err != nil {
		return nil, fmt.Errorf("restore memory pool: %w", err)
	}
	if status, err := mem.Status(ctx); err == nil {
		slog.Info("メモリUDNプール復元完了",
			"event_id", "UDN_POOL_RESTORED",
			"assigned", status.Assigned,
			"available", status.Available,
		)
	}
	return mem, nil
}
