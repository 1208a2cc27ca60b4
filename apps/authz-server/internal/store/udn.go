package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"github.com/oyaguma3/wpn-authz/pkg/valkey"
	"github.com/redis/go-redis/v9"
)

// UDN割り当てフィールド名（udn:mac:{MAC}）。assignScriptのHSETと一致させる。
const (
	fieldUDNID          = "udn_id"
	fieldUDNUserID      = "user_id"
	fieldUDNRegID       = "registration_id"
	fieldUDNIPSKID      = "ipsk_id"
	fieldUDNCreatedAt   = "created_at"
	fieldUDNUpdatedAt   = "updated_at"
	fieldUDNLastAuthAt  = "last_auth_at"
	udnHistoryScanCount = 100
)

// assignScript はMACの既存割り当て確認・IDの選択・書き込みを1回のEVALで原子的に行う。
// 返り値: {"existing", field, value, ...} | {"created", id} | {"exhausted"}
//
// KEYS: 1=udn:mac:{MAC} 2=udn:free 3=udn:next 4=udn:ids
// ARGV: 1=MAC 2=範囲開始 3=範囲終了 4=現在時刻 5=user_id 6=registration_id 7=ipsk_id
var assignScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], 'last_auth_at', ARGV[4], 'updated_at', ARGV[4])
  local out = {'existing'}
  local fields = redis.call('HGETALL', KEYS[1])
  for i = 1, #fields do
    out[#out + 1] = fields[i]
  end
  return out
end

local first = tonumber(ARGV[2])
local last = tonumber(ARGV[3])
local id
local free = redis.call('ZRANGE', KEYS[2], 0, 0)
if #free > 0 then
  id = tonumber(free[1])
  redis.call('ZREM', KEYS[2], free[1])
else
  id = tonumber(redis.call('GET', KEYS[3]) or first)
  if id < first then
    id = first
  end
  if id > last then
    return {'exhausted'}
  end
  redis.call('SET', KEYS[3], tostring(id + 1))
end

redis.call('HSET', KEYS[4], tostring(id), ARGV[1])
redis.call('HSET', KEYS[1],
  'udn_id', tostring(id),
  'user_id', ARGV[5],
  'registration_id', ARGV[6],
  'ipsk_id', ARGV[7],
  'created_at', ARGV[4],
  'updated_at', ARGV[4],
  'last_auth_at', ARGV[4])
return {'created', tostring(id)}
`)

// UDNPool はValkey上のUDN割り当てプール。
// 割り当てはassignScriptで原子的に行うため競合しない。
// 失効はMACキーのWATCH/MULTIで行い、競合時は再試行する。
type UDNPool struct {
	vc         *ValkeyClient
	rng        udn.Range
	maxRetries int
	now        udn.Clock
}

var _ udn.Pool = (*UDNPool)(nil)

// UDNPoolOption はUDNPoolの生成オプション
type UDNPoolOption func(*UDNPool)

// WithUDNClock は時刻取得関数を差し替える。
func WithUDNClock(now udn.Clock) UDNPoolOption {
	return func(p *UDNPool) { p.now = now }
}

// WithMaxRetries は失効処理の競合時の最大再試行回数を指定する。
func WithMaxRetries(n int) UDNPoolOption {
	return func(p *UDNPool) { p.maxRetries = n }
}

// NewUDNPool は新しいUDNPoolを生成する。
func NewUDNPool(vc *ValkeyClient, rng udn.Range, opts ...UDNPoolOption) (*UDNPool, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	p := &UDNPool{
		vc:         vc,
		rng:        rng,
		maxRetries: config.AllocationMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Assign はMACアドレスにUDN IDを割り当てる。既存の有効な割り当てがあればlast_auth_atを更新して返す。
// 解放済みIDの最小値、なければ未払い出しの最小IDを選ぶ。
func (p *UDNPool) Assign(ctx context.Context, mac string, meta udn.Metadata) (*model.UDNAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	key := udnMACKey(mac)
	now := p.now()
	res, err := assignScript.Run(ctx, p.vc.Client(),
		[]string{key, KeyUDNFree, KeyUDNNext, KeyUDNIDs},
		mac, p.rng.Start, p.rng.End, formatTime(now), meta.UserID, meta.RegistrationID, meta.IPSKID,
	).StringSlice()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("EVALSHA", key, err)
	}
	if len(res) == 0 {
		return nil, unavailable("EVALSHA", key, errors.New("empty script reply"))
	}

	switch res[0] {
	case "existing":
		fields := make(map[string]string, (len(res)-1)/2)
		for i := 1; i+1 < len(res); i += 2 {
			fields[res[i]] = res[i+1]
		}
		return decodeAssignment(mac, fields), nil
	case "created":
		if len(res) < 2 {
			break
		}
		id, err := strconv.Atoi(res[1])
		if err != nil {
			return nil, unavailable("EVALSHA", key, err)
		}
		t := now.UTC()
		return &model.UDNAssignment{
			MACAddress:     mac,
			UDNID:          id,
			UserID:         meta.UserID,
			RegistrationID: meta.RegistrationID,
			IPSKID:         meta.IPSKID,
			IsActive:       true,
			CreatedAt:      t,
			UpdatedAt:      t,
			LastAuthAt:     &t,
		}, nil
	case "exhausted":
		return nil, udn.ErrPoolExhausted
	}
	return nil, unavailable("EVALSHA", key, fmt.Errorf("unexpected script reply %q", res))
}

// Revoke は割り当てを論理削除し、IDを解放済みセットに戻す。
// 失効行は udn:history:{MAC} に追記される。
func (p *UDNPool) Revoke(ctx context.Context, mac string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		err = p.tryRevoke(ctx, mac)
		if !errors.Is(err, udn.ErrAllocationConflict) || attempt >= p.maxRetries {
			return err
		}
	}
}

func (p *UDNPool) tryRevoke(ctx context.Context, mac string) error {
	key := udnMACKey(mac)
	err := p.vc.Client().Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return udn.ErrAssignmentNotFound
		}
		a := decodeAssignment(mac, fields)
		a.IsActive = false
		a.UpdatedAt = p.now()
		row, err := json.Marshal(a)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HDel(ctx, KeyUDNIDs, strconv.Itoa(a.UDNID))
			pipe.ZAdd(ctx, KeyUDNFree, redis.Z{Score: float64(a.UDNID), Member: strconv.Itoa(a.UDNID)})
			pipe.RPush(ctx, udnHistoryKey(mac), row)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case valkey.IsTxConflict(err):
		return udn.ErrAllocationConflict
	case errors.Is(err, udn.ErrAssignmentNotFound):
		return err
	default:
		return unavailable("WATCH", key, err)
	}
}

// Lookup は有効な割り当てを返す。
func (p *UDNPool) Lookup(ctx context.Context, mac string) (*model.UDNAssignment, error) {
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	key := udnMACKey(mac)
	fields, err := p.vc.Client().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("HGETALL", key, err)
	}
	if len(fields) == 0 {
		return nil, udn.ErrAssignmentNotFound
	}
	return decodeAssignment(mac, fields), nil
}

// History は失効済みの割り当て履歴を古い順に返す。
func (p *UDNPool) History(ctx context.Context, mac string) ([]model.UDNAssignment, error) {
	mac, err := udn.NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	return p.history(ctx, udnHistoryKey(mac))
}

func (p *UDNPool) history(ctx context.Context, key string) ([]model.UDNAssignment, error) {
	rows, err := p.vc.Client().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, unavailable("LRANGE", key, err)
	}
	out := make([]model.UDNAssignment, 0, len(rows))
	for _, r := range rows {
		var a model.UDNAssignment
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Status はプールの使用状況を返す。
func (p *UDNPool) Status(ctx context.Context) (*udn.Status, error) {
	n, err := p.vc.Client().HLen(ctx, KeyUDNIDs).Result()
	if err != nil {
		return nil, unavailable("HLEN", KeyUDNIDs, err)
	}
	return udn.NewStatus(p.rng, int(n)), nil
}

// Rows は有効な割り当てと失効履歴をすべて返す。
// udn.MemoryPool.Restoreの入力として使用する。
func (p *UDNPool) Rows(ctx context.Context) ([]model.UDNAssignment, error) {
	client := p.vc.Client()
	owners, err := client.HGetAll(ctx, KeyUDNIDs).Result()
	if err != nil {
		return nil, unavailable("HGETALL", KeyUDNIDs, err)
	}

	var out []model.UDNAssignment
	for _, mac := range owners {
		fields, err := client.HGetAll(ctx, udnMACKey(mac)).Result()
		if err != nil {
			return nil, unavailable("HGETALL", udnMACKey(mac), err)
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, *decodeAssignment(mac, fields))
	}

	iter := client.Scan(ctx, 0, KeyPrefixUDNHistory+"*", udnHistoryScanCount).Iterator()
	for iter.Next(ctx) {
		rows, err := p.history(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("SCAN", KeyPrefixUDNHistory+"*", err)
	}
	return out, nil
}

func decodeAssignment(mac string, fields map[string]string) *model.UDNAssignment {
	a := &model.UDNAssignment{
		MACAddress:     mac,
		UserID:         fields[fieldUDNUserID],
		RegistrationID: fields[fieldUDNRegID],
		IPSKID:         fields[fieldUDNIPSKID],
		IsActive:       true,
		CreatedAt:      parseTime(fields[fieldUDNCreatedAt]),
		UpdatedAt:      parseTime(fields[fieldUDNUpdatedAt]),
	}
	a.UDNID, _ = strconv.Atoi(strings.TrimSpace(fields[fieldUDNID]))
	if v, ok := fields[fieldUDNLastAuthAt]; ok {
		t := parseTime(v)
		a.LastAuthAt = &t
	}
	return a
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
