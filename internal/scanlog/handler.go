package scanlog

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/registrations"
	"github.com/acm-chapter/events-backend/pkg/response"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler serves GET /admin/scans.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a scan log handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /admin/scans?event=&limit= (admin/volunteer: recent scans with outcome counts).
func (h *Handler) List(c *gin.Context) {
	title := strings.TrimSpace(c.Query("event"))
	if title == "" {
		response.BadRequest(c, "event query parameter is required")
		return
	}
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	ctx := c.Request.Context()
	partition := registrations.PartitionKey(title)
	list, err := h.repo.ListByPartition(ctx, partition, limit)
	if err != nil {
		h.logger.Error("list scans failed", zap.Error(err), zap.String("partition", partition))
		response.Internal(c, "failed to list scans")
		return
	}
	sum, err := h.repo.Summary(ctx, partition)
	if err != nil {
		h.logger.Error("scan summary failed", zap.Error(err), zap.String("partition", partition))
		response.Internal(c, "failed to list scans")
		return
	}
	if list == nil {
		list = []models.Scan{}
	}
	response.OK(c, gin.H{"partition": partition, "summary": sum, "scans": list})
}
