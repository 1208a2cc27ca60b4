package udn

import "errors"

var (
	// ErrPoolExhausted はプールに割り当て可能なIDがない場合のエラー
	ErrPoolExhausted = errors.New("udn pool exhausted")

	// ErrAllocationConflict は割り当て時の競合（再試行対象）
	ErrAllocationConflict = errors.New("udn allocation conflict")

	// ErrAssignmentNotFound は有効な割り当てが存在しない場合のエラー
	ErrAssignmentNotFound = errors.New("udn assignment not found")

	// ErrInvalidMAC は不正なMACアドレスの場合のエラー
	ErrInvalidMAC = errors.New("invalid MAC address")

	// ErrInvalidRange は不正な払い出し範囲の場合のエラー
	ErrInvalidRange = errors.New("invalid udn range")
)
