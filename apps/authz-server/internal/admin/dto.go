package admin

import "github.com/oyaguma3/wpn-authz/pkg/model"

// HealthResponse はGET /health のレスポンス
type HealthResponse struct {
	Status          string `json:"status"`
	SnapshotVersion int64  `json:"snapshot_version"`
}

// AssignRequest はPOST /api/v1/udn/assignments のリクエスト
type AssignRequest struct {
	MACAddress     string `json:"mac_address" binding:"required"`
	UserID         string `json:"user_id"`
	RegistrationID string `json:"registration_id"`
	IPSKID         string `json:"ipsk_id"`
}

// HistoryResponse は割り当て履歴のレスポンス
type HistoryResponse struct {
	MACAddress string                `json:"mac_address"`
	History    []model.UDNAssignment `json:"history"`
}
