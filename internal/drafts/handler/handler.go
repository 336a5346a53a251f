// Package handler exposes the draft quote HTTP API.
package handler

import (
	"net/http"

	"forwarding_portal_backend/internal/drafts/service"
	"forwarding_portal_backend/internal/drafts/sync"
	"forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles draft quote HTTP requests.
type Handler struct {
	service *service.Service
	saver   *sync.Saver
	status  *sync.StatusStore
}

// New creates a new drafts handler.
func New(svc *service.Service, saver *sync.Saver, status *sync.StatusStore) *Handler {
	return &Handler{service: svc, saver: saver, status: status}
}

func draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid draft id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func optionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("optionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid option id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /drafts.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	draft, err := h.service.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, draft)
}

// List handles GET /drafts.
func (h *Handler) List(c *gin.Context) {
	var req transport.ListDraftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	result, err := h.service.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get handles GET /drafts/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, draft)
}

// Delete handles DELETE /drafts/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}

// UpdateStep handles PATCH /drafts/:id/steps/:step.
func (h *Handler) UpdateStep(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req transport.UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	draft, err := h.service.UpdateStep(c.Request.Context(), id, c.Param("step"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, draft)
}

// AddOption handles POST /drafts/:id/options.
func (h *Handler) AddOption(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req transport.AddOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	option, err := h.service.AddOption(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, option)
}

// UpdateOption handles PUT /drafts/:id/options/:optionId.
func (h *Handler) UpdateOption(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	optID, ok := optionID(c)
	if !ok {
		return
	}

	var req transport.UpdateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	option, err := h.service.UpdateOption(c.Request.Context(), id, optID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, option)
}

// RemoveOption handles DELETE /drafts/:id/options/:optionId.
func (h *Handler) RemoveOption(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	optID, ok := optionID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveOption(c.Request.Context(), id, optID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}

// SetPreferred handles PUT /drafts/:id/options/:optionId/preferred.
func (h *Handler) SetPreferred(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	optID, ok := optionID(c)
	if !ok {
		return
	}

	if err := h.service.SetPreferred(c.Request.Context(), id, optID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}

// Sync handles POST /drafts/:id/sync. The sync runs synchronously so the
// caller learns the outcome in the response.
func (h *Handler) Sync(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req transport.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.saver.Sync(c.Request.Context(), id, req.Direction); err != nil {
		if syncErr, ok := err.(*sync.Error); ok {
			httpkit.Error(c, http.StatusBadGateway, syncErr.Message, gin.H{"code": syncErr.Code})
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	draft, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, draft)
}

// SyncStatus handles GET /drafts/:id/sync-status.
func (h *Handler) SyncStatus(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	status, err := h.status.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.SyncStatusResponse{
		IsSyncing:         status.IsSyncing,
		LastSyncedAt:      status.LastSyncedAt,
		LastSyncDirection: status.LastSyncDirection,
		PendingChanges:    []string{},
		SyncErrors:        make([]transport.SyncErrorResponse, 0, len(status.Errors)),
	}
	if draft.Dirty {
		resp.PendingChanges = append(resp.PendingChanges, "draft")
	}
	for _, syncErr := range status.Errors {
		resp.SyncErrors = append(resp.SyncErrors, transport.SyncErrorResponse{
			Code:       syncErr.Code,
			Message:    syncErr.Message,
			OccurredAt: syncErr.OccurredAt,
		})
	}
	httpkit.OK(c, resp)
}
