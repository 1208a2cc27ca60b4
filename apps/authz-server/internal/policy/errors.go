package policy

import "errors"

var (
	// ErrPolicyNotFound はポリシーが見つからない場合のエラー
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrPolicyInvalid はポリシーの内容が不正な場合のエラー
	ErrPolicyInvalid = errors.New("policy invalid")

	// ErrSnapshotUnavailable はスナップショット未ロード時のエラー
	ErrSnapshotUnavailable = errors.New("policy snapshot unavailable")

	// ErrRepositoryUnavailable はポリシー取得元にアクセスできない場合のエラー
	ErrRepositoryUnavailable = errors.New("policy repository unavailable")
)

// 判定理由
const (
	ReasonNoPolicyMatched = "no_policy_matched"
	ReasonPolicyReject    = "policy_reject"
)
