// Package udntest はPool実装共通の振る舞いテストを提供する。
package udntest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
)

// Factory は指定範囲の空のPoolを生成する。
type Factory func(t *testing.T, rng udn.Range) udn.Pool

// MACn はテスト用の一意なMACアドレスを生成する。
func MACn(n int) string {
	return fmt.Sprintf("02:00:%02x:%02x:%02x:%02x", (n>>24)&0xff, (n>>16)&0xff, (n>>8)&0xff, n&0xff)
}

// RunConformance はPool実装が満たすべき性質を検証する。
func RunConformance(t *testing.T, newPool Factory) {
	t.Run("uniqueness under concurrency", func(t *testing.T) {
		const n = 512
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()

		var wg sync.WaitGroup
		ids := make([]int, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, err := pool.Assign(ctx, MACn(i), udn.Metadata{})
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = a.UDNID
			}(i)
		}
		wg.Wait()

		seen := make(map[int]int, n)
		for i, id := range ids {
			if errs[i] != nil {
				t.Fatalf("Assign(%s) error = %v", MACn(i), errs[i])
			}
			if id < 2 || id > 16777200 {
				t.Errorf("id %d out of range", id)
			}
			if prev, dup := seen[id]; dup {
				t.Errorf("id %d assigned to both %s and %s", id, MACn(prev), MACn(i))
			}
			seen[id] = i
		}

		st, err := pool.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if st.Assigned != n {
			t.Errorf("Assigned = %d, want %d", st.Assigned, n)
		}
	})

	t.Run("exhaustion under concurrency", func(t *testing.T) {
		const n = 80
		rng := udn.Range{Start: 100, End: 149}
		pool := newPool(t, rng)
		ctx := context.Background()

		var wg sync.WaitGroup
		ids := make([]int, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, err := pool.Assign(ctx, MACn(i), udn.Metadata{})
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = a.UDNID
			}(i)
		}
		wg.Wait()

		seen := make(map[int]bool, rng.Total())
		exhausted := 0
		for i := range ids {
			switch {
			case errors.Is(errs[i], udn.ErrPoolExhausted):
				exhausted++
			case errs[i] != nil:
				t.Fatalf("Assign(%s) error = %v", MACn(i), errs[i])
			case !rng.Contains(ids[i]):
				t.Errorf("id %d out of range", ids[i])
			case seen[ids[i]]:
				t.Errorf("id %d assigned twice", ids[i])
			default:
				seen[ids[i]] = true
			}
		}
		if len(seen) != rng.Total() || exhausted != n-rng.Total() {
			t.Errorf("assigned=%d exhausted=%d, want %d/%d", len(seen), exhausted, rng.Total(), n-rng.Total())
		}
	})

	t.Run("smallest first", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			a, err := pool.Assign(ctx, MACn(i), udn.Metadata{})
			if err != nil {
				t.Fatalf("Assign() error = %v", err)
			}
			if a.UDNID != 2+i {
				t.Errorf("Assign #%d id = %d, want %d", i, a.UDNID, 2+i)
			}
		}
	})

	t.Run("idempotence", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()

		first, err := pool.Assign(ctx, "AA:BB:CC:DD:EE:FF", udn.Metadata{UserID: "u1"})
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		second, err := pool.Assign(ctx, "aa-bb-cc-dd-ee-ff", udn.Metadata{})
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if first.UDNID != second.UDNID {
			t.Errorf("repeated Assign returned %d then %d", first.UDNID, second.UDNID)
		}
		if second.MACAddress != "aa:bb:cc:dd:ee:ff" {
			t.Errorf("MACAddress = %q, want canonical form", second.MACAddress)
		}
		if second.LastAuthAt == nil {
			t.Error("LastAuthAt should be set")
		}
		st, _ := pool.Status(ctx)
		if st.Assigned != 1 {
			t.Errorf("Assigned = %d, want 1", st.Assigned)
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		pool := newPool(t, udn.Range{Start: 10, End: 12})
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if _, err := pool.Assign(ctx, MACn(i), udn.Metadata{}); err != nil {
				t.Fatalf("Assign() error = %v", err)
			}
		}

		_, err := pool.Assign(ctx, MACn(99), udn.Metadata{})
		if !errors.Is(err, udn.ErrPoolExhausted) {
			t.Fatalf("Assign() error = %v, want ErrPoolExhausted", err)
		}
		st, err := pool.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if st.Available != 0 || st.Assigned != st.Total || st.Total != 3 {
			t.Errorf("Status = %+v, want full pool", st)
		}
		if st.RangeStart != 10 || st.RangeEnd != 12 {
			t.Errorf("range = [%d, %d], want [10, 12]", st.RangeStart, st.RangeEnd)
		}

		// 割り当て済みMACは枯渇中でも既存IDを返す
		if _, err := pool.Assign(ctx, MACn(0), udn.Metadata{}); err != nil {
			t.Errorf("Assign(existing) error = %v", err)
		}
	})

	t.Run("reuse smallest revoked", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()

		a, _ := pool.Assign(ctx, MACn(1), udn.Metadata{})
		b, _ := pool.Assign(ctx, MACn(2), udn.Metadata{})
		c, _ := pool.Assign(ctx, MACn(3), udn.Metadata{})

		if err := pool.Revoke(ctx, MACn(3)); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if err := pool.Revoke(ctx, MACn(2)); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		d, err := pool.Assign(ctx, MACn(4), udn.Metadata{})
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if d.UDNID != b.UDNID {
			t.Errorf("reused id = %d, want %d (smallest revoked)", d.UDNID, b.UDNID)
		}
		e, _ := pool.Assign(ctx, MACn(5), udn.Metadata{})
		if e.UDNID != c.UDNID {
			t.Errorf("next reused id = %d, want %d", e.UDNID, c.UDNID)
		}
		if a.UDNID == d.UDNID {
			t.Error("active id must not be reused")
		}
	})

	t.Run("revoke keeps history", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()
		mac := MACn(7)

		first, _ := pool.Assign(ctx, mac, udn.Metadata{IPSKID: "ipsk-1"})
		if err := pool.Revoke(ctx, mac); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if _, err := pool.Lookup(ctx, mac); !errors.Is(err, udn.ErrAssignmentNotFound) {
			t.Errorf("Lookup() after revoke error = %v, want ErrAssignmentNotFound", err)
		}
		if err := pool.Revoke(ctx, mac); !errors.Is(err, udn.ErrAssignmentNotFound) {
			t.Errorf("second Revoke() error = %v, want ErrAssignmentNotFound", err)
		}

		hist, err := pool.History(ctx, mac)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(hist) != 1 {
			t.Fatalf("len(History) = %d, want 1", len(hist))
		}
		if hist[0].IsActive || hist[0].UDNID != first.UDNID || hist[0].IPSKID != "ipsk-1" {
			t.Errorf("history row = %+v", hist[0])
		}

		again, _ := pool.Assign(ctx, mac, udn.Metadata{})
		if again.UDNID != first.UDNID {
			t.Errorf("re-assign id = %d, want %d", again.UDNID, first.UDNID)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		ctx := context.Background()

		if _, err := pool.Lookup(ctx, MACn(1)); !errors.Is(err, udn.ErrAssignmentNotFound) {
			t.Errorf("Lookup() error = %v, want ErrAssignmentNotFound", err)
		}
		created, _ := pool.Assign(ctx, MACn(1), udn.Metadata{UserID: "user-9"})
		got, err := pool.Lookup(ctx, MACn(1))
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if got.UDNID != created.UDNID || got.UserID != "user-9" || !got.IsActive {
			t.Errorf("Lookup() = %+v", got)
		}
	})

	t.Run("invalid mac", func(t *testing.T) {
		pool := newPool(t, udn.DefaultRange())
		if _, err := pool.Assign(context.Background(), "not-a-mac", udn.Metadata{}); !errors.Is(err, udn.ErrInvalidMAC) {
			t.Errorf("Assign() error = %v, want ErrInvalidMAC", err)
		}
	})
}
