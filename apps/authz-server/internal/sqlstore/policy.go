package sqlstore

import (
	"context"
	"log/slog"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PolicyRepository はPostgreSQL上のポリシー関連レコードを読み書きする。
type PolicyRepository struct {
	db *gorm.DB
}

var _ policy.Repository = (*PolicyRepository)(nil)

// NewPolicyRepository は新しいPolicyRepositoryを生成する。
func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// LoadRecords は全レコードをID順に取得する。JSON列が解析できない行はログ出力のうえ読み飛ばす。
func (r *PolicyRepository) LoadRecords(ctx context.Context) (*model.PolicySet, error) {
	db := r.db.WithContext(ctx)

	var (
		policies []policyRow
		unlangs  []unlangRow
		profiles []profileRow
		bypasses []bypassRow
	)
	if err := db.Order("id").Find(&policies).Error; err != nil {
		return nil, dbError("load radius_policies", err)
	}
	if err := db.Order("id").Find(&unlangs).Error; err != nil {
		return nil, dbError("load unlang_policies", err)
	}
	if err := db.Order("id").Find(&profiles).Error; err != nil {
		return nil, dbError("load authorization_profiles", err)
	}
	if err := db.Order("id").Find(&bypasses).Error; err != nil {
		return nil, dbError("load mac_bypass_configs", err)
	}
	return assemble(policies, unlangs, profiles, bypasses), nil
}

// assemble は取得行をモデルに変換する。
func assemble(policies []policyRow, unlangs []unlangRow, profiles []profileRow, bypasses []bypassRow) *model.PolicySet {
	set := &model.PolicySet{}
	for i := range policies {
		p, err := policies[i].toModel()
		if err != nil {
			logCorrupt("radius_policies", policies[i].ID, err)
			continue
		}
		set.Policies = append(set.Policies, p)
	}
	for i := range unlangs {
		u, err := unlangs[i].toModel()
		if err != nil {
			logCorrupt("unlang_policies", unlangs[i].ID, err)
			continue
		}
		set.UnlangPolicies = append(set.UnlangPolicies, u)
	}
	for i := range profiles {
		p, err := profiles[i].toModel()
		if err != nil {
			logCorrupt("authorization_profiles", profiles[i].ID, err)
			continue
		}
		set.AuthorizationProfiles = append(set.AuthorizationProfiles, p)
	}
	for i := range bypasses {
		b, err := bypasses[i].toModel()
		if err != nil {
			logCorrupt("mac_bypass_configs", bypasses[i].ID, err)
			continue
		}
		set.MacBypassConfigs = append(set.MacBypassConfigs, b)
	}
	return set
}

// Save はレコード一式をupsertする。
func (r *PolicyRepository) Save(ctx context.Context, set *model.PolicySet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		for i := range set.Policies {
			cols, err := policyColumnsFrom(&set.Policies[i])
			if err != nil {
				return err
			}
			if err := upsert.Create(&policyRow{policyColumns: cols}).Error; err != nil {
				return dbError("save radius_policies", err)
			}
		}
		for i := range set.UnlangPolicies {
			row, err := unlangRowFrom(&set.UnlangPolicies[i])
			if err != nil {
				return err
			}
			if err := upsert.Create(&row).Error; err != nil {
				return dbError("save unlang_policies", err)
			}
		}
		for i := range set.AuthorizationProfiles {
			row, err := profileRowFrom(&set.AuthorizationProfiles[i])
			if err != nil {
				return err
			}
			if err := upsert.Create(&row).Error; err != nil {
				return dbError("save authorization_profiles", err)
			}
		}
		for i := range set.MacBypassConfigs {
			row, err := bypassRowFrom(&set.MacBypassConfigs[i])
			if err != nil {
				return err
			}
			if err := upsert.Create(&row).Error; err != nil {
				return dbError("save mac_bypass_configs", err)
			}
		}
		return nil
	})
}

func logCorrupt(table string, id int64, err error) {
	slog.Warn("レコード解析失敗",
		"event_id", "POLICY_RECORD_CORRUPT",
		"table", table,
		"record_id", id,
		"error", err.Error(),
	)
}
