// Package httputil はHTTP関連のユーティリティを提供する。
package httputil

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail はRFC 7807準拠のエラーレスポンス構造体。
type ProblemDetail struct {
	Type   string `json:"type"`             // エラータイプのURI
	Title  string `json:"title"`            // エラータイトル
	Status int    `json:"status"`           // HTTPステータスコード
	Detail string `json:"detail,omitempty"` // 詳細説明
	// Instance は問題が発生したリクエストパス
	Instance string `json:"instance,omitempty"`
	// TraceID はログと突き合わせるためのトレースID
	TraceID string `json:"trace_id,omitempty"`
}

// NewProblemDetail は新しいProblemDetailを生成する。
func NewProblemDetail(status int, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// BadRequest は400 Bad Requestのエラーレスポンスを生成する。
func BadRequest(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusBadRequest, "Bad Request", detail)
}

// NotFound は404 Not Foundのエラーレスポンスを生成する。
func NotFound(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusNotFound, "Not Found", detail)
}

// InternalServerError は500 Internal Server Errorのエラーレスポンスを生成する。
func InternalServerError(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusInternalServerError, "Internal Server Error", detail)
}

// Unauthorized は401 Unauthorizedのエラーレスポンスを生成する。
func Unauthorized(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusUnauthorized, "Unauthorized", detail)
}

// Conflict は409 Conflictのエラーレスポンスを生成する。
func Conflict(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusConflict, "Conflict", detail)
}

// ServiceUnavailable は503 Service Unavailableのエラーレスポンスを生成する。
func ServiceUnavailable(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusServiceUnavailable, "Service Unavailable", detail)
}

// JSON はProblemDetailをJSON形式にエンコードする。
func (p *ProblemDetail) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// ContentType はRFC 7807で定義されたContent-Typeヘッダー値。
const ContentType = "application/problem+json"
