package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"gorm.io/gorm"
)

// smallestFreeIDSQL は範囲内で有効行に使われていない最小のudn_idを返す。空きがなければNULL。
const smallestFreeIDSQL = `
SELECT CASE
  WHEN NOT EXISTS (SELECT 1 FROM udn_assignments WHERE is_active AND udn_id = @start) THEN @start
  ELSE (
    SELECT MIN(a.udn_id) + 1 FROM udn_assignments a
    WHERE a.is_active AND a.udn_id >= @start AND a.udn_id < @end
      AND NOT EXISTS (SELECT 1 FROM udn_assignments b WHERE b.is_active AND b.udn_id = a.udn_id + 1)
  )
END`

// udnAllocLockKey は新規割り当てを直列化するトランザクション単位のアドバイザリロックのキー。
const udnAllocLockKey int64 = 0x75646e00

// UDNPool はPostgreSQL上のUDN割り当てプール。
// 新規割り当てはアドバイザリロック下で最小空きIDを選んでINSERTする。
// 同一MACの同時割り当てによる部分一意インデックス違反は競合として再試行する。
type UDNPool struct {
	db         *gorm.DB
	rng        udn.Range
	maxRetries int
	now        udn.Clock
}

var _ udn.Pool = (*UDNPool)(nil)

// NewUDNPool は新しいUDNPoolを生成する。
func NewUDNPool(db *gorm.DB, rng udn.Range, now udn.Clock) (*UDNPool, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &UDNPool{
		db:         db,
		rng:        rng,
		maxRetries: config.AllocationMaxRetries,
		now:        now,
	}, nil
}

// Assign はMACアドレスにUDN IDを割り当てる。
func (p *UDNPool) Assign(ctx context.Context, mac string, meta udn.Metadata) (*model.UDNAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	return udn.AssignWithRetry(ctx, p.maxRetries, func(ctx context.Context) (*model.UDNAssignment, error) {
		return p.tryAssign(ctx, mac, meta)
	})
}

func (p *UDNPool) tryAssign(ctx context.Context, mac string, meta udn.Metadata) (*model.UDNAssignment, error) {
	var out model.UDNAssignment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.now().UTC()

		var row udnRow
		err := tx.Where("mac_address = ? AND is_active", mac).Take(&row).Error
		switch {
		case err == nil:
			row.LastAuthAt = &now
			row.UpdatedAt = now
			if err := tx.Model(&row).Updates(map[string]any{
				"last_auth_at": now,
				"updated_at":   now,
			}).Error; err != nil {
				return err
			}
			out = row.toModel()
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", udnAllocLockKey).Error; err != nil {
			return err
		}
		id, err := p.smallestFreeID(tx)
		if err != nil {
			return err
		}
		row = udnRow{
			MACAddress:     mac,
			UDNID:          id,
			UserID:         meta.UserID,
			RegistrationID: meta.RegistrationID,
			IPSKID:         meta.IPSKID,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
			LastAuthAt:     &now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		out = row.toModel()
		return nil
	})
	if err != nil {
		return nil, p.classify(ctx, "assign udn", err)
	}
	return &out, nil
}

func (p *UDNPool) smallestFreeID(tx *gorm.DB) (int, error) {
	var id sql.NullInt64
	err := tx.Raw(smallestFreeIDSQL,
		sql.Named("start", p.rng.Start),
		sql.Named("end", p.rng.End),
	).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	if !id.Valid || int(id.Int64) > p.rng.End {
		return 0, udn.ErrPoolExhausted
	}
	return int(id.Int64), nil
}

// classify はDBエラーをudnパッケージのエラーに対応付ける。
func (p *UDNPool) classify(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, udn.ErrPoolExhausted), errors.Is(err, udn.ErrAssignmentNotFound):
		return err
	case isUniqueViolation(err):
		return udn.ErrAllocationConflict
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return dbError(op, err)
	}
}

// Revoke は有効な割り当てを論理削除する。行は履歴として残る。
func (p *UDNPool) Revoke(ctx context.Context, mac string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return err
	}
	res := p.db.WithContext(ctx).
		Model(&udnRow{}).
		Where("mac_address = ? AND is_active", mac).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": p.now().UTC(),
		})
	if res.Error != nil {
		return p.classify(ctx, "revoke udn", res.Error)
	}
	if res.RowsAffected == 0 {
		return udn.ErrAssignmentNotFound
	}
	return nil
}

// Lookup は有効な割り当てを返す。
func (p *UDNPool) Lookup(ctx context.Context, mac string) (*model.UDNAssignment, error) {
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	var row udnRow
	err = p.db.WithContext(ctx).Where("mac_address = ? AND is_active", mac).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, udn.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, dbError("lookup udn", err)
	}
	a := row.toModel()
	return &a, nil
}

// History は失効済みの割り当てを古い順に返す。
func (p *UDNPool) History(ctx context.Context, mac string) ([]model.UDNAssignment, error) {
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	var rows []udnRow
	err = p.db.WithContext(ctx).
		Where("mac_address = ? AND NOT is_active", mac).
		Order("updated_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, dbError("udn history", err)
	}
	return toAssignments(rows), nil
}

// Status はプールの使用状況を返す。
func (p *UDNPool) Status(ctx context.Context) (*udn.Status, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&udnRow{}).
		Where("is_active AND udn_id BETWEEN ? AND ?", p.rng.Start, p.rng.End).
		Count(&n).Error
	if err != nil {
		return nil, dbError("udn status", err)
	}
	return udn.NewStatus(p.rng, int(n)), nil
}

// Rows は全行（有効・失効）を返す。udn.MemoryPool.Restoreの入力として使用する。
func (p *UDNPool) Rows(ctx context.Context) ([]model.UDNAssignment, error) {
	var rows []udnRow
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, dbError("udn rows", err)
	}
	return toAssignments(rows), nil
}

func toAssignments(rows []udnRow) []model.UDNAssignment {
	out := make([]model.UDNAssignment, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}
