package udn

import (
	"container/heap"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// span は解放済みIDの閉区間 [lo, hi]
type span struct{ lo, hi int }

// spanHeap は互いに重ならない解放済み区間をloの昇順で保持する最小ヒープ。
// 復元時の空き番号は区間1つで表すため、IDの最大値ではなく有効行数に比例する。
type spanHeap []span

func (h spanHeap) Len() int           { return len(h) }
func (h spanHeap) Less(i, j int) bool { return h[i].lo < h[j].lo }
func (h spanHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *spanHeap) Push(x any)        { *h = append(*h, x.(span)) }
func (h *spanHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// popMin は最小の解放済みIDを取り出す。
func (h *spanHeap) popMin() (int, bool) {
	if h.Len() == 0 {
		return 0, false
	}
	top := &(*h)[0]
	id := top.lo
	if top.lo < top.hi {
		top.lo++
		heap.Fix(h, 0)
	} else {
		heap.Pop(h)
	}
	return id, true
}

// MemoryPool はプロセス内のフリーリストで管理するPool実装。
// 未使用IDのうち最小のものから払い出す。
// next は一度も払い出していない最小ID、free は next 未満の解放済みID。
type MemoryPool struct {
	mu      sync.Mutex
	rng     Range
	next    int
	free    spanHeap
	active  map[string]*model.UDNAssignment
	ids     map[int]string
	history map[string][]model.UDNAssignment
	now     Clock
}

// NewMemoryPool は新しいMemoryPoolを生成する。
func NewMemoryPool(rng Range, now Clock) (*MemoryPool, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryPool{
		rng:     rng,
		next:    rng.Start,
		active:  make(map[string]*model.UDNAssignment),
		ids:     make(map[int]string),
		history: make(map[string][]model.UDNAssignment),
		now:     now,
	}, nil
}

// Restore は永続化済みの割り当て行からプール状態を復元する。
// 既存の状態は破棄される。範囲外・重複IDの有効行はエラーとする。
func (p *MemoryPool) Restore(rows []model.UDNAssignment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := make(map[string]*model.UDNAssignment)
	ids := make(map[int]string)
	history := make(map[string][]model.UDNAssignment)
	maxID := p.rng.Start - 1

	for i := range rows {
		row := rows[i]
		mac, err := NormalizeMAC(row.MACAddress)
		if err != nil {
			return err
		}
		row.MACAddress = mac

		if !row.IsActive {
			history[mac] = append(history[mac], row)
			continue
		}
		if !p.rng.Contains(row.UDNID) {
			return fmt.Errorf("%w: udn_id %d out of range", ErrInvalidRange, row.UDNID)
		}
		if owner, dup := ids[row.UDNID]; dup {
			return fmt.Errorf("%w: udn_id %d held by %s and %s", ErrAllocationConflict, row.UDNID, owner, mac)
		}
		if _, dup := active[mac]; dup {
			return fmt.Errorf("%w: multiple active rows for %s", ErrAllocationConflict, mac)
		}
		r := row
		active[mac] = &r
		ids[row.UDNID] = mac
		if row.UDNID > maxID {
			maxID = row.UDNID
		}
	}

	used := make([]int, 0, len(ids))
	for id := range ids {
		used = append(used, id)
	}
	slices.Sort(used)
	free := spanHeap{}
	lo := p.rng.Start
	for _, id := range used {
		if id > lo {
			free = append(free, span{lo: lo, hi: id - 1})
		}
		lo = id + 1
	}

	p.active = active
	p.ids = ids
	p.history = history
	p.free = free
	p.next = maxID + 1
	return nil
}

// Assign はMACアドレスにUDN IDを割り当てる。
func (p *MemoryPool) Assign(ctx context.Context, mac string, meta Metadata) (*model.UDNAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mac, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if a, ok := p.active[mac]; ok {
		a.LastAuthAt = &now
		a.UpdatedAt = now
		c := *a
		return &c, nil
	}

	id, ok := p.take()
	if !ok {
		return nil, ErrPoolExhausted
	}

	a := &model.UDNAssignment{
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
	p.active[mac] = a
	p.ids[id] = mac
	c := *a
	return &c, nil
}

// take は最小の未使用IDを取り出す。ロック保持中に呼ぶこと。
func (p *MemoryPool) take() (int, bool) {
	if id, ok := p.free.popMin(); ok {
		return id, true
	}
	if p.next <= p.rng.End {
		id := p.next
		p.next++
		return id, true
	}
	return 0, false
}

// Revoke は割り当てを論理削除し、IDを解放する。
func (p *MemoryPool) Revoke(ctx context.Context, mac string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mac, err := NormalizeMAC(mac)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.active[mac]
	if !ok {
		return ErrAssignmentNotFound
	}
	delete(p.active, mac)
	delete(p.ids, a.UDNID)
	heap.Push(&p.free, span{lo: a.UDNID, hi: a.UDNID})

	revoked := *a
	revoked.IsActive = false
	revoked.UpdatedAt = p.now()
	p.history[mac] = append(p.history[mac], revoked)
	return nil
}

// Lookup は有効な割り当てを返す。
func (p *MemoryPool) Lookup(_ context.Context, mac string) (*model.UDNAssignment, error) {
	mac, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.active[mac]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	c := *a
	return &c, nil
}

// History は失効済みの割り当て履歴を返す。
func (p *MemoryPool) History(_ context.Context, mac string) ([]model.UDNAssignment, error) {
	mac, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rows := p.history[mac]
	out := make([]model.UDNAssignment, len(rows))
	copy(out, rows)
	return out, nil
}

// Status はプールの使用状況を返す。
func (p *MemoryPool) Status(_ context.Context) (*Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewStatus(p.rng, len(p.active)), nil
}
