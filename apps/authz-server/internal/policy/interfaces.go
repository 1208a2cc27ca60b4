package policy

import (
	"context"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Repository はポリシー関連レコードの取得元を定義する。
type Repository interface {
	// LoadRecords はポリシー・Unlangポリシー・プロファイル・バイパス設定を一括取得する。
	LoadRecords(ctx context.Context) (*model.PolicySet, error)
}

// UsageRecorder はポリシー使用状況（usage_count/last_used）の記録先を定義する。
type UsageRecorder interface {
	// RecordUsage は一致したポリシーのusage_countを加算し、last_usedを更新する。
	RecordUsage(ctx context.Context, ref Ref, at time.Time) error
	// ListUsage は記録済みの使用状況を返す。
	ListUsage(ctx context.Context) ([]Usage, error)
}
