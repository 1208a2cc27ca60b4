package policy

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryUsage(t *testing.T) {
	m := NewMemoryUsage()
	ctx := context.Background()
	ref := Ref{Kind: KindStandard, ID: 3}
	t1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	if err := m.RecordUsage(ctx, ref, t1); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}
	if err := m.RecordUsage(ctx, ref, t2); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}
	if err := m.RecordUsage(ctx, Ref{Kind: KindStandard, ID: 1}, t1); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}

	list, err := m.ListUsage(ctx)
	if err != nil {
		t.Fatalf("ListUsage() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].Ref.ID != 1 {
		t.Errorf("list not sorted: first id = %d", list[0].Ref.ID)
	}
	u := list[1]
	if u.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", u.UsageCount)
	}
	if u.LastUsed == nil || !u.LastUsed.Equal(t2) {
		t.Errorf("LastUsed = %v, want %v", u.LastUsed, t2)
	}
	if u.Policy != "policy:3" {
		t.Errorf("Policy = %q, want %q", u.Policy, "policy:3")
	}
}

func TestMemoryUsageConcurrent(t *testing.T) {
	m := NewMemoryUsage()
	ref := Ref{Kind: KindUnlang, ID: 1}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RecordUsage(context.Background(), ref, time.Now())
		}()
	}
	wg.Wait()

	list, _ := m.ListUsage(context.Background())
	if len(list) != 1 || list[0].UsageCount != 50 {
		t.Errorf("usage = %+v, want count 50", list)
	}
}
