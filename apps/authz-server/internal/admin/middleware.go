package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/pkg/httputil"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

const (
	traceIDHeader = "X-Trace-ID"
	// TraceIDKey はgin.Contextに格納するトレースIDのキー
	TraceIDKey = "trace_id"
	// SubjectKey はgin.Contextに格納する認証済みsubのキー
	SubjectKey = "subject"
)

// TraceIDMiddleware はX-Trace-IDヘッダからトレースIDを取得する。
// ヘッダがない場合は新規に採番し、レスポンスヘッダにも設定する。
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(traceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(traceIDHeader, traceID)
		c.Request = c.Request.WithContext(logging.ContextWithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}

// LoggingMiddleware はリクエストログを出力する。
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		slog.Info("request completed",
			"event_id", "ADMIN_REQUEST",
			"trace_id", c.GetString(TraceIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"http_status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RecoveryMiddleware はパニックからの復旧を行う。
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"event_id", "ADMIN_PANIC",
					"trace_id", c.GetString(TraceIDKey),
					"error", err,
				)
				httputil.AbortWithError(c, httputil.InternalServerError("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// Claims は管理APIトークンのクレーム
type Claims struct {
	jwt.RegisteredClaims
}

// SignToken は管理API用のHS256トークンを発行する。
func SignToken(secret []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    config.AdminJWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken はHS256トークンを検証してクレームを返す。
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.AdminJWTIssuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, errNoExpiry
	}
	return claims, nil
}

// JWTAuthMiddleware はAuthorization: Bearerトークンを検証する。
func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *Claims
			claims, err = ParseToken(secret, tokenString)
			if err == nil {
				c.Set(SubjectKey, claims.Subject)
				c.Next()
				return
			}
		}

		slog.Warn("admin authentication failed",
			"event_id", "ADMIN_AUTH_FAIL",
			"trace_id", c.GetString(TraceIDKey),
			"path", c.Request.URL.Path,
			"error", err.Error(),
		)
		c.Header("WWW-Authenticate", `Bearer realm="wpn-authz"`)
		httputil.AbortWithError(c, httputil.Unauthorized("invalid or missing bearer token"))
	}
}

var (
	errNoBearer = errors.New("missing bearer token")
	errNoExpiry = errors.New("token has no exp claim")
)

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", errNoBearer)
	}
	return token, nil
}
