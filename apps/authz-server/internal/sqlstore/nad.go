package sqlstore

import (
	"context"
	"errors"

	"github.com/oyaguma3/wpn-authz/pkg/model"
	"gorm.io/gorm"
)

// NADStore はnetwork_access_devicesテーブルへのアクセスを提供する。
type NADStore struct {
	db *gorm.DB
}

// NewNADStore は新しいNADStoreを生成する。
func NewNADStore(db *gorm.DB) *NADStore {
	return &NADStore{db: db}
}

// GetNAD は指定IPのNADを取得する。未登録の場合はnilとnilを返す。
func (s *NADStore) GetNAD(ctx context.Context, ip string) (*model.NetworkAccessDevice, error) {
	var row nadRow
	err := s.db.WithContext(ctx).Where("ip_address = ?", ip).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get nad", err)
	}
	return row.toModel(), nil
}
