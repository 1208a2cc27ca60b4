package sqlstore

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// partialIndexes は有効な割り当て行に対する一意制約。
// 失効行（is_active=false）は履歴として同じMAC・IDで複数残る。
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_udn_assignments_active_udn_id ON udn_assignments (udn_id) WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_udn_assignments_active_mac ON udn_assignments (mac_address) WHERE is_active`,
}

// Migrate はテーブルと部分一意インデックスを作成する。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&policyRow{},
		&unlangRow{},
		&profileRow{},
		&bypassRow{},
		&nadRow{},
		&udnRow{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	slog.Info("database migrated",
		"event_id", "DB_MIGRATED",
	)
	return nil
}
