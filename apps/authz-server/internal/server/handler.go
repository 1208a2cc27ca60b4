package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"layeh.com/radius"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/config"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/engine"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	radiuspkg "github.com/oyaguma3/wpn-authz/apps/authz-server/internal/radius"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

// Handler はRADIUSリクエストを処理するハンドラ。
// layeh.com/radius.Handlerインターフェースの実装。
type Handler struct {
	authz     Authorizer
	requireMA bool
	timeout   time.Duration
	status    func() string
}

// HandlerOption はHandlerの生成オプション。
type HandlerOption func(*Handler)

// WithRequireMessageAuthenticator はAccess-RequestのMessage-Authenticatorを必須にするかを設定する。
func WithRequireMessageAuthenticator(required bool) HandlerOption {
	return func(h *Handler) { h.requireMA = required }
}

// WithAuthorizeTimeout は1リクエストあたりの認可処理の上限時間を設定する。
func WithAuthorizeTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.timeout = d }
}

// WithStatusMessage はStatus-Server応答のReply-Messageを生成する関数を設定する。
func WithStatusMessage(fn func() string) HandlerOption {
	return func(h *Handler) { h.status = fn }
}

// NewHandler は新しいHandlerを生成する
func NewHandler(authz Authorizer, opts ...HandlerOption) *Handler {
	h := &Handler{
		authz:     authz,
		requireMA: true,
		timeout:   config.AuthorizeTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeRADIUS はRADIUSリクエストを処理する
func (h *Handler) ServeRADIUS(w radius.ResponseWriter, r *radius.Request) {
	traceID := uuid.New().String()
	srcIP := extractIP(r.RemoteAddr)

	slog.Info("RADIUSパケット受信",
		"event_id", "PKT_RECV",
		"trace_id", traceID,
		"src_ip", srcIP,
		"code", r.Code,
	)

	switch r.Code {
	case radius.CodeAccessRequest:
		h.handleAccessRequest(w, r, traceID, srcIP)
	case radius.CodeStatusServer:
		h.handleStatusServer(w, r, traceID, srcIP)
	default:
		slog.Warn("未対応のRADIUS Code",
			"event_id", "PKT_UNKNOWN_CODE",
			"trace_id", traceID,
			"code", r.Code,
		)
	}
}

// handleAccessRequest はAccess-Requestを認可判定し、Accept/Rejectを応答する
func (h *Handler) handleAccessRequest(w radius.ResponseWriter, r *radius.Request, traceID, srcIP string) {
	secret := r.Packet.Secret

	if err := radiuspkg.CheckMessageAuthenticator(r.Packet, secret, h.requireMA); err != nil {
		slog.Warn("Message-Authenticator検証失敗",
			"event_id", "PKT_MA_INVALID",
			"trace_id", traceID,
			"src_ip", srcIP,
			"error", err,
		)
		return // 応答なし
	}

	req := BuildRequest(r.Packet, srcIP)

	ctx, cancel := context.WithTimeout(logging.ContextWithTraceID(r.Context(), traceID), h.timeout)
	defer cancel()
	decision := h.authz.Authorize(ctx, req)

	var resp *radius.Packet
	if decision.Accept {
		var err error
		resp, err = radiuspkg.BuildAccessAccept(r.Packet, secret, &radiuspkg.AcceptParams{
			ReplyAttributes: decision.ReplyAttributes,
		})
		if err != nil {
			slog.Warn("応答属性の一部をスキップ",
				"event_id", "PKT_ATTR_SKIPPED",
				"trace_id", traceID,
				"policy", decision.Policy,
				"error", err,
			)
		}
	} else {
		resp = radiuspkg.BuildAccessReject(r.Packet, secret, &radiuspkg.RejectParams{
			ReplyMessage: decision.Reason,
		})
	}

	if err := w.Write(resp); err != nil {
		slog.Error("RADIUS応答送信失敗",
			"event_id", "PKT_SEND_ERR",
			"trace_id", traceID,
			"error", err,
		)
	}
}

// handleStatusServer はStatus-Serverリクエストに応答する。
// Message-Authenticator検証に失敗した場合は無応答（破棄）とする。
func (h *Handler) handleStatusServer(w radius.ResponseWriter, r *radius.Request, traceID, srcIP string) {
	params := &radiuspkg.StatusParams{}
	if h.status != nil {
		params.ReplyMessage = h.status()
	}
	resp, err := radiuspkg.BuildStatusReply(r.Packet, r.Packet.Secret, params)
	if err != nil {
		slog.Warn("Status-Server: Message-Authenticator検証失敗",
			"event_id", "RADIUS_STATUS_AUTH_FAIL",
			"trace_id", traceID,
			"src_ip", srcIP,
			"error", err,
		)
		return
	}
	if err := w.Write(resp); err != nil {
		slog.Error("Status-Server応答送信失敗",
			"event_id", "PKT_SEND_ERR",
			"trace_id", traceID,
			"error", err,
		)
		return
	}
	slog.Info("Status-Server: 応答送信",
		"event_id", "RADIUS_STATUS_OK",
		"trace_id", traceID,
		"src_ip", srcIP,
	)
}

// BuildRequest はAccess-Requestパケットを認可要求に変換する。
// NAS-IP-Addressがない場合は送信元IPをNAS IPとして扱う。
func BuildRequest(p *radius.Packet, srcIP string) *policy.Request {
	req := &policy.Request{
		AdditionalAttributes: radiuspkg.CollectAttributes(p),
	}
	req.Username, _ = radiuspkg.GetUserName(p)
	req.CallingStation, _ = radiuspkg.GetCallingStationID(p)
	req.NASIdentifier, _ = radiuspkg.GetNASIdentifier(p)
	if ip, ok := radiuspkg.GetNASIPAddress(p); ok {
		req.NASIP = ip.String()
	} else {
		req.NASIP = srcIP
	}
	return req
}

var _ Authorizer = (*engine.Engine)(nil)
