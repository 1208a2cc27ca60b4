package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"github.com/redis/go-redis/v9"
)

// PolicyRepository はValkey上のポリシー関連レコードを読み書きする。
// policy.Repositoryインターフェースの実装。
type PolicyRepository struct {
	vc *ValkeyClient
}

var _ policy.Repository = (*PolicyRepository)(nil)

// NewPolicyRepository は新しいPolicyRepositoryを生成する。
func NewPolicyRepository(vc *ValkeyClient) *PolicyRepository {
	return &PolicyRepository{vc: vc}
}

// LoadRecords は全ポリシー・Unlangポリシー・プロファイル・バイパス設定を取得する。
// JSONとして解析できないレコードはログ出力のうえ読み飛ばす。
func (r *PolicyRepository) LoadRecords(ctx context.Context) (*model.PolicySet, error) {
	set := &model.PolicySet{}
	var err error

	if set.Policies, err = loadRecords[model.Policy](ctx, r.vc.Client(), KeyPrefixPolicy); err != nil {
		return nil, err
	}
	if set.UnlangPolicies, err = loadRecords[model.UnlangPolicy](ctx, r.vc.Client(), KeyPrefixUnlang); err != nil {
		return nil, err
	}
	if set.AuthorizationProfiles, err = loadRecords[model.AuthorizationProfile](ctx, r.vc.Client(), KeyPrefixProfile); err != nil {
		return nil, err
	}
	if set.MacBypassConfigs, err = loadRecords[model.MacBypassConfig](ctx, r.vc.Client(), KeyPrefixBypass); err != nil {
		return nil, err
	}
	return set, nil
}

// Save はレコード一式を書き込む。既存の同一IDレコードは上書きされる。
func (r *PolicyRepository) Save(ctx context.Context, set *model.PolicySet) error {
	pipe := r.vc.Client().TxPipeline()
	for i := range set.Policies {
		if err := queueRecord(ctx, pipe, KeyPrefixPolicy, set.Policies[i].ID, &set.Policies[i]); err != nil {
			return err
		}
	}
	for i := range set.UnlangPolicies {
		if err := queueRecord(ctx, pipe, KeyPrefixUnlang, set.UnlangPolicies[i].ID, &set.UnlangPolicies[i]); err != nil {
			return err
		}
	}
	for i := range set.AuthorizationProfiles {
		if err := queueRecord(ctx, pipe, KeyPrefixProfile, set.AuthorizationProfiles[i].ID, &set.AuthorizationProfiles[i]); err != nil {
			return err
		}
	}
	for i := range set.MacBypassConfigs {
		if err := queueRecord(ctx, pipe, KeyPrefixBypass, set.MacBypassConfigs[i].ID, &set.MacBypassConfigs[i]); err != nil {
			return err
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("MULTI", "policy records", err)
	}
	return nil
}

// Delete は指定レコードを削除する。
func (r *PolicyRepository) Delete(ctx context.Context, ref policy.Ref) error {
	prefix := KeyPrefixPolicy
	if ref.Kind == policy.KindUnlang {
		prefix = KeyPrefixUnlang
	}
	key := recordKey(prefix, ref.ID)
	pipe := r.vc.Client().TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, indexKey(prefix), ref.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("DEL", key, err)
	}
	return nil
}

func queueRecord(ctx context.Context, pipe redis.Pipeliner, prefix string, id int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s%d: %w", prefix, id, err)
	}
	pipe.Set(ctx, recordKey(prefix, id), data, 0)
	pipe.SAdd(ctx, indexKey(prefix), id)
	return nil
}

// loadRecords はIDセットに登録されたレコードをID昇順で取得する。
func loadRecords[T any](ctx context.Context, client *redis.Client, prefix string) ([]T, error) {
	idx := indexKey(prefix)
	members, err := client.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, unavailable("SMEMBERS", idx, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			slog.Warn("不正なインデックスメンバー",
				"event_id", "POLICY_INDEX_INVALID",
				"key", idx,
				"member", m,
			)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(prefix, id)
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("MGET", prefix+"*", err)
	}

	out := make([]T, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// インデックスのみ残存
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			slog.Warn("レコード解析失敗",
				"event_id", "POLICY_RECORD_CORRUPT",
				"key", keys[i],
				"error", err.Error(),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
