package sqlstore

import (
	"os"
	"testing"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn/udntest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDSNEnv は結合テスト用PostgreSQLの接続文字列を指定する環境変数。
// 例: host=localhost user=postgres password=postgres dbname=wpn_authz_test sslmode=disable
const testDSNEnv = "WPN_AUTHZ_TEST_DSN"

// openTestDB はtestDSNEnvのPostgreSQLへ接続してマイグレーションする。未設定ならスキップする。
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func TestUDNPoolConformance(t *testing.T) {
	db := openTestDB(t)
	udntest.RunConformance(t, func(t *testing.T, rng udn.Range) udn.Pool {
		if err := db.Exec("TRUNCATE udn_assignments RESTART IDENTITY").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		pool, err := NewUDNPool(db, rng, nil)
		if err != nil {
			t.Fatalf("NewUDNPool failed: %v", err)
		}
		return pool
	})
}
