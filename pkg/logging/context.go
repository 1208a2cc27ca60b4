package logging

import "context"

type traceIDKey struct{}

// ContextWithTraceID はトレースIDを格納したコンテキストを返す。
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext はコンテキストからトレースIDを取り出す。未設定の場合は空文字。
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}
