package admin

import (
	"context"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
)

// SnapshotStore はポリシースナップショットの参照と再読み込みを定義する。
type SnapshotStore interface {
	Current() *policy.Snapshot
	Reload(ctx context.Context) (*policy.Snapshot, error)
}

// UsageLister はポリシー使用状況の取得を定義する。
type UsageLister interface {
	ListUsage(ctx context.Context) ([]policy.Usage, error)
}

var _ SnapshotStore = (*policy.Store)(nil)
