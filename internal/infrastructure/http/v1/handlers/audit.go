package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/internal/infrastructure/storage/postgres"
)

// AuditHistory reads the audit trail of one entity.
type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

const maxAuditLimit = 500

// AuditHandler handles /audit routes.
type AuditHandler struct {
	*BaseHandler
	history AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

type auditQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// History handles GET /audit/:entityType/:entityId.
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.PathID(c, "entityId")
	if !ok {
		return
	}
	var q auditQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > maxAuditLimit {
		h.Error(c, apperror.NewValidation("limit is too large").WithDetail("max", maxAuditLimit))
		return
	}
	entries, err := h.history.History(c.Request.Context(), c.Param("entityType"), entityID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries))
}
