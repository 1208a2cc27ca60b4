// Package udn はデバイス単位のUDN ID割り当て（UDN Allocator）を提供する。
package udn

import (
	"context"
	"fmt"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Range はUDN IDの払い出し範囲（両端を含む）
type Range struct {
	Start int
	End   int
}

// DefaultRange は全域の払い出し範囲を返す。
func DefaultRange() Range {
	return Range{Start: model.UDNRangeStart, End: model.UDNRangeEnd}
}

// Total は範囲内のID総数を返す。
func (r Range) Total() int {
	return r.End - r.Start + 1
}

// Contains はIDが範囲内かを返す。
func (r Range) Contains(id int) bool {
	return id >= r.Start && id <= r.End
}

// Validate は範囲が全域 [2, 16777200] に収まっているかを検証する。
func (r Range) Validate() error {
	if r.Start < model.UDNRangeStart || r.End > model.UDNRangeEnd || r.Start > r.End {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Metadata は割り当てに付随する任意の紐付け情報
type Metadata struct {
	UserID         string `json:"user_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	IPSKID         string `json:"ipsk_id,omitempty"`
}

// Status はプールの使用状況
type Status struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Available  int `json:"available"`
	RangeStart int `json:"range_start"`
	RangeEnd   int `json:"range_end"`
}

// NewStatus は範囲と割り当て数からStatusを生成する。
func NewStatus(r Range, assigned int) *Status {
	available := r.Total() - assigned
	if available < 0 {
		available = 0
	}
	return &Status{
		Total:      r.Total(),
		Assigned:   assigned,
		Available:  available,
		RangeStart: r.Start,
		RangeEnd:   r.End,
	}
}

// Pool はUDN Allocatorの契約を定義する。
// 同一MACへの再割り当ては既存IDを返し、異なるMACに同じIDが同時に有効になることはない。
type Pool interface {
	// Assign はMACアドレスにUDN IDを割り当てる。既存の有効な割り当てがあればそれを返す。
	Assign(ctx context.Context, mac string, meta Metadata) (*model.UDNAssignment, error)
	// Revoke は割り当てを論理削除し、IDを再利用可能にする。
	Revoke(ctx context.Context, mac string) error
	// Lookup は有効な割り当てを返す。
	Lookup(ctx context.Context, mac string) (*model.UDNAssignment, error)
	// History は失効済みの割り当て履歴を古い順に返す。
	History(ctx context.Context, mac string) ([]model.UDNAssignment, error)
	// Status はプールの使用状況を返す。
	Status(ctx context.Context) (*Status, error)
}

// Clock は時刻取得関数
type Clock func() time.Time

// NormalizeMAC はMACアドレスを正規化し、不正な場合はErrInvalidMACを返す。
func NormalizeMAC(mac string) (string, error) {
	normalized, ok := model.NormalizeMAC(mac)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return normalized, nil
}
