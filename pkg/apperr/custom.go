package apperr

import "fmt"

// ValidationError はバリデーションエラーを表す。
type ValidationError struct {
	Field   string // エラーが発生したフィールド名
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field=%s, message=%s", e.Field, e.Message)
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ConfigurationError はポリシー等の設定レコードが不正な場合のエラーを表す。
// ロード時に検出され、該当レコードのみスキップされる。
type ConfigurationError struct {
	Source   string // レコード種別（policy, unlang, bypass, profile）
	RecordID int64  // レコードID
	Field    string // 問題のあるフィールド名（不明な場合は空）
	Reason   string // エラーの理由
	Cause    error  // 根本原因
}

// Error はerrorインターフェースを実装する。
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: source=%s, id=%d", e.Source, e.RecordID)
	if e.Field != "" {
		msg += ", field=" + e.Field
	}
	msg += ", reason=" + e.Reason
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause=%v", e.Cause)
	}
	return msg
}

// Unwrap は根本原因を返す。
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError はConfigurationErrorを生成する。
func NewConfigurationError(source string, id int64, field, reason string) *ConfigurationError {
	return &ConfigurationError{
		Source:   source,
		RecordID: id,
		Field:    field,
		Reason:   reason,
	}
}

// WithCause は根本原因を設定したConfigurationErrorを返す。
func (e *ConfigurationError) WithCause(cause error) *ConfigurationError {
	e.Cause = cause
	return e
}

// ValkeyError はValkeyとの操作エラーを表す。
type ValkeyError struct {
	Operation string // 操作名（GET, SET, DEL等）
	Key       string // 操作対象のキー
	Cause     error  // 根本原因
}

// Error はerrorインターフェースを実装する。
func (e *ValkeyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("valkey error: operation=%s, key=%s, cause=%v",
			e.Operation, e.Key, e.Cause)
	}
	return fmt.Sprintf("valkey error: operation=%s, key=%s", e.Operation, e.Key)
}

// Unwrap は根本原因を返す。
func (e *ValkeyError) Unwrap() error {
	return e.Cause
}

// NewValkeyError はValkeyErrorを生成する。
func NewValkeyError(operation, key string, cause error) *ValkeyError {
	return &ValkeyError{
		Operation: operation,
		Key:       key,
		Cause:     cause,
	}
}
