package admin

import "github.com/gin-gonic/gin"

// SetupRouter はルーティングを設定する。
// jwtSecretが空の場合、/api/v1 は認証なしで公開される。
func SetupRouter(engine *gin.Engine, h *Handler, jwtSecret []byte) {
	// ヘルスチェック（常に認証なし）
	engine.GET("/health", h.HandleHealth)

	v1 := engine.Group("/api/v1")
	if len(jwtSecret) > 0 {
		v1.Use(JWTAuthMiddleware(jwtSecret))
	}
	{
		v1.GET("/udn/pool", h.HandlePoolStatus)
		v1.GET("/udn/assignments/:mac", h.HandleGetAssignment)
		v1.GET("/udn/assignments/:mac/history", h.HandleGetHistory)
		v1.POST("/udn/assignments", h.HandleAssign)
		v1.DELETE("/udn/assignments/:mac", h.HandleRevoke)

		v1.GET("/policies/usage", h.HandlePolicyUsage)
		v1.GET("/policies/snapshot", h.HandleSnapshot)
		v1.POST("/policies/reload", h.HandleReload)
	}
}
