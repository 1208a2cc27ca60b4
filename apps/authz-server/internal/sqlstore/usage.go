package sqlstore

import (
	"context"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"gorm.io/gorm"
)

// UsageStore はポリシー行のusage_count/last_usedを更新する。
type UsageStore struct {
	db *gorm.DB
}

var _ policy.UsageRecorder = (*UsageStore)(nil)

// NewUsageStore は新しいUsageStoreを生成する。
func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

// RecordUsage は一致ポリシーのusage_countを加算し、last_usedを更新する。
func (s *UsageStore) RecordUsage(ctx context.Context, ref policy.Ref, at time.Time) error {
	err := s.db.WithContext(ctx).
		Table(usageTable(ref.Kind)).
		Where("id = ?", ref.ID).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   at.UTC(),
		}).Error
	if err != nil {
		return dbError("record usage", err)
	}
	return nil
}

type usageRow struct {
	ID         int64
	UsageCount int64
	LastUsed   *time.Time
}

// ListUsage は使用実績のあるポリシーを(Kind, ID)順で返す。
func (s *UsageStore) ListUsage(ctx context.Context) ([]policy.Usage, error) {
	out := []policy.Usage{}
	for _, kind := range []policy.Kind{policy.KindStandard, policy.KindUnlang} {
		var rows []usageRow
		err := s.db.WithContext(ctx).
			Table(usageTable(kind)).
			Select("id, usage_count, last_used").
			Where("usage_count > 0").
			Order("id").
			Scan(&rows).Error
		if err != nil {
			return nil, dbError("list usage", err)
		}
		for _, r := range rows {
			ref := policy.Ref{Kind: kind, ID: r.ID}
			out = append(out, policy.Usage{
				Ref:        ref,
				Policy:     ref.String(),
				UsageCount: r.UsageCount,
				LastUsed:   r.LastUsed,
			})
		}
	}
	policy.SortUsage(out)
	return out, nil
}

func usageTable(kind policy.Kind) string {
	if kind == policy.KindUnlang {
		return unlangRow{}.TableName()
	}
	return policyRow{}.TableName()
}
