package store

import (
	"context"
	"strconv"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
	"github.com/redis/go-redis/v9"
)

// NADフィールド名（nad:{IP}）
const (
	fieldNADID         = "id"
	fieldNADName       = "name"
	fieldNADSecret     = "secret"
	fieldNADRadSec     = "supports_radsec"
	fieldNADCoA        = "supports_coa"
	fieldNADAccounting = "supports_accounting"
	fieldNADIPv6       = "supports_ipv6"
	fieldNADHealth     = "health_status"
	fieldNADActive     = "is_active"
	fieldNADUpdatedAt  = "updated_at"
)

// NADStore はRADIUSクライアント（NAD）登録情報へのアクセスを提供する。
type NADStore struct {
	vc *ValkeyClient
}

// NewNADStore は新しいNADStoreを生成する。
func NewNADStore(vc *ValkeyClient) *NADStore {
	return &NADStore{vc: vc}
}

// GetNAD は指定IPのNADを取得する。未登録の場合はnilとnilを返す。
func (s *NADStore) GetNAD(ctx context.Context, ip string) (*model.NetworkAccessDevice, error) {
	key := nadKey(ip)
	result, err := s.vc.Client().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("HGETALL", key, err)
	}
	// キーが存在しない場合、HGetAllは空mapを返す
	if len(result) == 0 {
		return nil, nil
	}

	n := &model.NetworkAccessDevice{
		IP:           ip,
		Name:         result[fieldNADName],
		Secret:       result[fieldNADSecret],
		HealthStatus: result[fieldNADHealth],
	}
	n.ID, _ = strconv.ParseInt(result[fieldNADID], 10, 64)
	n.SupportsRadSec = parseBool(result[fieldNADRadSec])
	n.SupportsCoA = parseBool(result[fieldNADCoA])
	n.SupportsAccounting = parseBool(result[fieldNADAccounting])
	n.SupportsIPv6 = parseBool(result[fieldNADIPv6])
	// is_active未設定は有効として扱う
	if v, ok := result[fieldNADActive]; ok {
		n.IsActive = parseBool(v)
	} else {
		n.IsActive = true
	}
	if n.HealthStatus == "" {
		n.HealthStatus = model.NADHealthUnknown
	}
	if ts, err := time.Parse(time.RFC3339, result[fieldNADUpdatedAt]); err == nil {
		n.UpdatedAt = ts
	}
	return n, nil
}

// SaveNAD はNADを登録・更新する。
func (s *NADStore) SaveNAD(ctx context.Context, n *model.NetworkAccessDevice) error {
	key := nadKey(n.IP)
	updated := n.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.vc.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldNADID, strconv.FormatInt(n.ID, 10),
			fieldNADName, n.Name,
			fieldNADSecret, n.Secret,
			fieldNADRadSec, strconv.FormatBool(n.SupportsRadSec),
			fieldNADCoA, strconv.FormatBool(n.SupportsCoA),
			fieldNADAccounting, strconv.FormatBool(n.SupportsAccounting),
			fieldNADIPv6, strconv.FormatBool(n.SupportsIPv6),
			fieldNADHealth, n.HealthStatus,
			fieldNADActive, strconv.FormatBool(n.IsActive),
			fieldNADUpdatedAt, updated.UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		return unavailable("HSET", key, err)
	}
	return nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
