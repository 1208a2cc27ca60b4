package logging

import "log/slog"

// ログフィールド名の定数
const (
	FieldTraceID    = "trace_id"
	FieldEventID    = "event_id"
	FieldError      = "error"
	FieldSrcIP      = "src_ip"
	FieldLatencyMs  = "latency_ms"
	FieldHTTPStatus = "http_status"
	FieldRetryCount = "retry_count"
	FieldMAC        = "mac"
	FieldUsername   = "username"
	FieldPolicy     = "policy"
	FieldUDNID      = "udn_id"
	FieldReason     = "reason"
)

// WithTraceID はトレースIDのslog.Attrを返す。
func WithTraceID(traceID string) slog.Attr {
	return slog.String(FieldTraceID, traceID)
}

// WithEventID はイベントIDのslog.Attrを返す。
func WithEventID(eventID string) slog.Attr {
	return slog.String(FieldEventID, eventID)
}

// WithError はエラーのslog.Attrを返す。
func WithError(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// WithSrcIP はソースIPアドレスのslog.Attrを返す。
func WithSrcIP(ip string) slog.Attr {
	return slog.String(FieldSrcIP, ip)
}

// WithLatency はレイテンシ（ミリ秒）のslog.Attrを返す。
func WithLatency(ms int64) slog.Attr {
	return slog.Int64(FieldLatencyMs, ms)
}

// WithHTTPStatus はHTTPステータスコードのslog.Attrを返す。
func WithHTTPStatus(status int) slog.Attr {
	return slog.Int(FieldHTTPStatus, status)
}

// WithRetryCount はリトライ回数のslog.Attrを返す。
func WithRetryCount(count int) slog.Attr {
	return slog.Int(FieldRetryCount, count)
}

// WithPolicy はポリシー参照（"policy:12"等）のslog.Attrを返す。
func WithPolicy(ref string) slog.Attr {
	return slog.String(FieldPolicy, ref)
}

// WithUDNID はUDN IDのslog.Attrを返す。
func WithUDNID(id int) slog.Attr {
	return slog.Int(FieldUDNID, id)
}

// WithReason は判定理由のslog.Attrを返す。
func WithReason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

// CommonFields はマスキング設定を保持するログフィールド生成器。
type CommonFields struct {
	masker *Masker
}

// NewCommonFields は新しいCommonFieldsを生成する。
func NewCommonFields(masker *Masker) *CommonFields {
	if masker == nil {
		masker = NewMasker(false)
	}
	return &CommonFields{masker: masker}
}

// WithMAC はマスキングされたMACアドレスのslog.Attrを返す。
func (cf *CommonFields) WithMAC(mac string) slog.Attr {
	return slog.String(FieldMAC, cf.masker.MAC(mac))
}

// WithUsername はマスキングされたユーザー名のslog.Attrを返す。
func (cf *CommonFields) WithUsername(username string) slog.Attr {
	return slog.String(FieldUsername, cf.masker.Username(username))
}

// AuthzLogFields は認可ログ用の共通フィールドを返す。
func (cf *CommonFields) AuthzLogFields(traceID, eventID, mac string) []any {
	return []any{
		WithTraceID(traceID),
		WithEventID(eventID),
		cf.WithMAC(mac),
	}
}
