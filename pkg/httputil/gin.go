package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

// WriteError はProblemDetailをGinレスポンスとして書き込む。
// instanceとtrace_idが未設定ならリクエストから補う。
func WriteError(c *gin.Context, problem *ProblemDetail) {
	p := withRequest(c, problem)
	c.Header("Content-Type", ContentType)
	c.JSON(p.Status, p)
}

// AbortWithError はProblemDetailを書き込み、後続のハンドラを中断する。
func AbortWithError(c *gin.Context, problem *ProblemDetail) {
	p := withRequest(c, problem)
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

func withRequest(c *gin.Context, problem *ProblemDetail) *ProblemDetail {
	p := *problem
	if c.Request == nil {
		return &p
	}
	if p.Instance == "" && c.Request.URL != nil {
		p.Instance = c.Request.URL.Path
	}
	if p.TraceID == "" {
		p.TraceID = logging.TraceIDFromContext(c.Request.Context())
	}
	return &p
}
