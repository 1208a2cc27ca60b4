// Package admin は管理・監視用HTTP API（UDNプール、ポリシースナップショット）を提供する。
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/apperr"
	"github.com/oyaguma3/wpn-authz/pkg/httputil"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Handler は管理APIのハンドラー
type Handler struct {
	pool      udn.Pool
	snapshots SnapshotStore
	usage     UsageLister
	fields    *logging.CommonFields
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(pool udn.Pool, snapshots SnapshotStore, usage UsageLister, masker *logging.Masker) *Handler {
	return &Handler{
		pool:      pool,
		snapshots: snapshots,
		usage:     usage,
		fields:    logging.NewCommonFields(masker),
	}
}

// HandleHealth はGET /health のハンドラー。
func (h *Handler) HandleHealth(c *gin.Context) {
	var version int64
	if snap := h.snapshots.Current(); snap != nil {
		version = snap.Version
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", SnapshotVersion: version})
}

// HandlePoolStatus はGET /api/v1/udn/pool のハンドラー。
func (h *Handler) HandlePoolStatus(c *gin.Context) {
	status, err := h.pool.Status(c.Request.Context())
	if err != nil {
		h.writeError(c, "UDN_STATUS_ERR", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleGetAssignment はGET /api/v1/udn/assignments/:mac のハンドラー。
func (h *Handler) HandleGetAssignment(c *gin.Context) {
	a, err := h.pool.Lookup(c.Request.Context(), c.Param("mac"))
	if err != nil {
		h.writeError(c, "UDN_LOOKUP_ERR", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// HandleGetHistory はGET /api/v1/udn/assignments/:mac/history のハンドラー。
func (h *Handler) HandleGetHistory(c *gin.Context) {
	mac, err := udn.NormalizeMAC(c.Param("mac"))
	if err != nil {
		h.writeError(c, "UDN_HISTORY_ERR", err)
		return
	}
	history, err := h.pool.History(c.Request.Context(), mac)
	if err != nil {
		h.writeError(c, "UDN_HISTORY_ERR", err)
		return
	}
	if history == nil {
		history = []model.UDNAssignment{}
	}
	c.JSON(http.StatusOK, HistoryResponse{MACAddress: mac, History: history})
}

// HandleAssign はPOST /api/v1/udn/assignments のハンドラー。
// 既に有効な割り当てがある場合はそれを返す。
func (h *Handler) HandleAssign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.WriteError(c, httputil.BadRequest("mac_address is required"))
		return
	}

	a, err := h.pool.Assign(c.Request.Context(), req.MACAddress, udn.Metadata{
		UserID:         req.UserID,
		RegistrationID: req.RegistrationID,
		IPSKID:         req.IPSKID,
	})
	if err != nil {
		h.writeError(c, "UDN_ASSIGN_ERR", err)
		return
	}

	slog.Info("UDN manually assigned",
		"event_id", "UDN_MANUAL_ASSIGN",
		"trace_id", c.GetString(TraceIDKey),
		"subject", c.GetString(SubjectKey),
		h.fields.WithMAC(a.MACAddress),
		logging.WithUDNID(a.UDNID),
	)
	c.JSON(http.StatusOK, a)
}

// HandleRevoke はDELETE /api/v1/udn/assignments/:mac のハンドラー。
func (h *Handler) HandleRevoke(c *gin.Context) {
	mac := c.Param("mac")
	if err := h.pool.Revoke(c.Request.Context(), mac); err != nil {
		h.writeError(c, "UDN_REVOKE_ERR", err)
		return
	}

	slog.Info("UDN revoked",
		"event_id", "UDN_REVOKE",
		"trace_id", c.GetString(TraceIDKey),
		"subject", c.GetString(SubjectKey),
		h.fields.WithMAC(mac),
	)
	c.Status(http.StatusNoContent)
}

// HandlePolicyUsage はGET /api/v1/policies/usage のハンドラー。
func (h *Handler) HandlePolicyUsage(c *gin.Context) {
	list, err := h.usage.ListUsage(c.Request.Context())
	if err != nil {
		h.writeError(c, "POLICY_USAGE_ERR", err)
		return
	}
	if list == nil {
		list = []policy.Usage{}
	}
	c.JSON(http.StatusOK, gin.H{"usage": list})
}

// HandleSnapshot はGET /api/v1/policies/snapshot のハンドラー。
func (h *Handler) HandleSnapshot(c *gin.Context) {
	snap := h.snapshots.Current()
	if snap == nil {
		httputil.WriteError(c, httputil.ServiceUnavailable("policy snapshot not loaded"))
		return
	}
	c.JSON(http.StatusOK, snap.Summary())
}

// HandleReload はPOST /api/v1/policies/reload のハンドラー。
// 失敗時は直前のスナップショットが維持される。
func (h *Handler) HandleReload(c *gin.Context) {
	snap, err := h.snapshots.Reload(c.Request.Context())
	if err != nil {
		h.writeError(c, "POLICY_RELOAD_ERR", err)
		return
	}
	c.JSON(http.StatusOK, snap.Summary())
}

// writeError はエラーを種別に応じたProblemDetailで返す。
func (h *Handler) writeError(c *gin.Context, eventID string, err error) {
	problem := problemFor(err)
	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request.Context(), level, "admin request failed",
		"event_id", eventID,
		"trace_id", c.GetString(TraceIDKey),
		"http_status", problem.Status,
		"error", err.Error(),
	)
	httputil.WriteError(c, problem)
}

func problemFor(err error) *httputil.ProblemDetail {
	var valkeyErr *apperr.ValkeyError
	switch {
	case errors.Is(err, udn.ErrInvalidMAC):
		return httputil.BadRequest(err.Error())
	case errors.Is(err, udn.ErrAssignmentNotFound):
		return httputil.NotFound(err.Error())
	case errors.Is(err, udn.ErrPoolExhausted), errors.Is(err, udn.ErrAllocationConflict):
		return httputil.Conflict(err.Error())
	case errors.Is(err, policy.ErrRepositoryUnavailable),
		errors.As(err, &valkeyErr),
		errors.Is(err, apperr.ErrDatabase):
		return httputil.ServiceUnavailable("backend unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return httputil.ServiceUnavailable("request cancelled")
	default:
		return httputil.InternalServerError("An unexpected error occurred")
	}
}
