package store

import (
	"errors"
	"fmt"

	"github.com/oyaguma3/wpn-authz/pkg/apperr"
)

var (
	// ErrValkeyUnavailable はValkeyへの接続が利用不可能な場合のエラー
	ErrValkeyUnavailable = errors.New("valkey unavailable")

	// ErrCorruptRecord は保存済みレコードが解析できない場合のエラー
	ErrCorruptRecord = errors.New("corrupt record")
)

// unavailable はValkeyコマンドエラーを操作名・キー付きでラップする。
func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %w", ErrValkeyUnavailable, apperr.NewValkeyError(op, key, err))
}
