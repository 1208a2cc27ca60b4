package server

import (
	"context"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/engine"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Authorizer は認可判定を行うコンポーネントを定義する。
type Authorizer interface {
	Authorize(ctx context.Context, req *policy.Request) engine.Decision
}

// NADDirectory はRADIUSクライアント（NAD）登録情報へのアクセスを定義する。
type NADDirectory interface {
	// GetNAD は指定IPのNADを取得する。未登録の場合はnilとnilを返す。
	GetNAD(ctx context.Context, ip string) (*model.NetworkAccessDevice, error)
}
