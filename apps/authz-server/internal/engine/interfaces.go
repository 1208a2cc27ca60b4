package engine

import "github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"

// SnapshotSource は評価に用いるポリシースナップショットの取得元を定義する。
type SnapshotSource interface {
	// Current は最新のスナップショットを返す。
	Current() *policy.Snapshot
}
