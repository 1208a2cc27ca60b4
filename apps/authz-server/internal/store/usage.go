package store

import (
	"context"
	"strconv"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/redis/go-redis/v9"
)

// Hashフィールド名（usage:{kind}:{id}）
const (
	fieldUsageCount = "usage_count"
	fieldLastUsed   = "last_used"
)

// UsageStore はポリシー使用状況をValkeyに記録する。
// policy.UsageRecorderインターフェースの実装。
type UsageStore struct {
	vc *ValkeyClient
}

var _ policy.UsageRecorder = (*UsageStore)(nil)

// NewUsageStore は新しいUsageStoreを生成する。
func NewUsageStore(vc *ValkeyClient) *UsageStore {
	return &UsageStore{vc: vc}
}

// RecordUsage はusage_countをHINCRBYで加算し、last_usedを更新する。
func (s *UsageStore) RecordUsage(ctx context.Context, ref policy.Ref, at time.Time) error {
	key := usageKey(ref)
	_, err := s.vc.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldUsageCount, 1)
		pipe.HSet(ctx, key, fieldLastUsed, at.UTC().Format(time.RFC3339Nano))
		pipe.SAdd(ctx, KeyUsageIx, ref.String())
		return nil
	})
	if err != nil {
		return unavailable("HINCRBY", key, err)
	}
	return nil
}

// ListUsage は記録済みの使用状況を(Kind, ID)順で返す。
func (s *UsageStore) ListUsage(ctx context.Context) ([]policy.Usage, error) {
	client := s.vc.Client()
	members, err := client.SMembers(ctx, KeyUsageIx).Result()
	if err != nil {
		return nil, unavailable("SMEMBERS", KeyUsageIx, err)
	}

	refs := make([]policy.Ref, 0, len(members))
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	pipe := client.Pipeline()
	for _, m := range members {
		ref, err := policy.ParseRef(m)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
		cmds = append(cmds, pipe.HGetAll(ctx, usageKey(ref)))
	}
	if len(cmds) == 0 {
		return []policy.Usage{}, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("HGETALL", KeyPrefixUsage+"*", err)
	}

	out := make([]policy.Usage, 0, len(refs))
	for i, ref := range refs {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		u := policy.Usage{Ref: ref, Policy: ref.String()}
		u.UsageCount, _ = strconv.ParseInt(fields[fieldUsageCount], 10, 64)
		if ts, err := time.Parse(time.RFC3339Nano, fields[fieldLastUsed]); err == nil {
			u.LastUsed = &ts
		}
		out = append(out, u)
	}
	policy.SortUsage(out)
	return out, nil
}
