package policy

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryUsage はプロセス内メモリにポリシー使用状況を記録するUsageRecorder実装。
type MemoryUsage struct {
	mu      sync.Mutex
	entries map[Ref]*Usage
}

// NewMemoryUsage は新しいMemoryUsageを生成する。
func NewMemoryUsage() *MemoryUsage {
	return &MemoryUsage{entries: make(map[Ref]*Usage)}
}

// RecordUsage はusage_countを加算し、last_usedを更新する。
func (m *MemoryUsage) RecordUsage(_ context.Context, ref Ref, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.entries[ref]
	if !ok {
		u = &Usage{Ref: ref, Policy: ref.String()}
		m.entries[ref] = u
	}
	u.UsageCount++
	t := at
	u.LastUsed = &t
	return nil
}

// ListUsage は記録済みの使用状況をRef順で返す。
func (m *MemoryUsage) ListUsage(_ context.Context) ([]Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Usage, 0, len(m.entries))
	for _, u := range m.entries {
		c := *u
		if u.LastUsed != nil {
			t := *u.LastUsed
			c.LastUsed = &t
		}
		out = append(out, c)
	}
	SortUsage(out)
	return out, nil
}

// SortUsage は使用状況を(Kind, ID)順に並べ替える。
func SortUsage(list []Usage) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Ref.Kind != list[j].Ref.Kind {
			return list[i].Ref.Kind < list[j].Ref.Kind
		}
		return list[i].Ref.ID < list[j].Ref.ID
	})
}
