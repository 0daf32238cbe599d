package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
	"github.com/kimhsiao/fieldcapture/backend/internal/sync/scheduler"
)

// SyncService runs passes and reports the queue size.
type SyncService interface {
	SyncAll(ctx context.Context) (*models.SyncResult, error)
	GetPendingCount(ctx context.Context) (models.PendingCount, error)
}

// NetworkMonitor receives connectivity reports and exposes sync status.
type NetworkMonitor interface {
	SetOnline(online bool)
	Status() scheduler.Status
}

// SyncHandler handles sync operations and connectivity callbacks.
type SyncHandler struct {
	service SyncService
	monitor NetworkMonitor
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(service SyncService, monitor NetworkMonitor) *SyncHandler {
	return &SyncHandler{service: service, monitor: monitor}
}

// TriggerSync handles POST /api/sync.
// Runs a pass and returns its result. A pass with item failures still
// answers 200; the result carries Success=false and the errors.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetStatus handles GET /api/sync/status.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

// GetPending handles GET /api/pending.
func (h *SyncHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetPendingCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending":          count,
		"has_data_to_sync": !count.IsZero(),
	})
}

// SetNetwork handles PUT /api/network, the platform connectivity callback.
func (h *SyncHandler) SetNetwork(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalid, "invalid request body", err))
		return
	}
	if req.Online == nil {
		writeError(w, errors.New(errors.ErrInvalid, "online is required"))
		return
	}

	h.monitor.SetOnline(*req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": *req.Online})
}
