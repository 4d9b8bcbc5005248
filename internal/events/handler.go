package events

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title            string  `json:"title" binding:"required"`
	Slug             string  `json:"slug"`
	Description      string  `json:"description"`
	Date             string  `json:"date" binding:"required"`
	Time             string  `json:"time"`
	Location         string  `json:"location"`
	FeeAmount        float64 `json:"feeAmount" binding:"gte=0"`
	MemberFeeAmount  float64 `json:"memberFeeAmount" binding:"gte=0"`
	ImageURL         string  `json:"imageUrl" binding:"omitempty,url"`
	RegistrationOpen *bool   `json:"registrationOpen"`
}

// UpdateRequest is the body for PATCH /events/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Date             *string  `json:"date"`
	Time             *string  `json:"time"`
	Location         *string  `json:"location"`
	FeeAmount        *float64 `json:"feeAmount" binding:"omitempty,gte=0"`
	MemberFeeAmount  *float64 `json:"memberFeeAmount" binding:"omitempty,gte=0"`
	ImageURL         *string  `json:"imageUrl"`
	RegistrationOpen *bool    `json:"registrationOpen"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /events. ?open=true limits to events accepting registrations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), c.Query("open") == "true")
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.OK(c, list)
}

// Get handles GET /events/:id where id is a UUID or slug.
func (h *Handler) Get(c *gin.Context) {
	e, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("get event failed", zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Create handles POST /events (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Title)
	}
	if slug == "" {
		response.BadRequest(c, "title must contain letters or digits")
		return
	}
	open := true
	if req.RegistrationOpen != nil {
		open = *req.RegistrationOpen
	}
	e := &models.Event{
		Slug:             slug,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Date:             strings.TrimSpace(req.Date),
		Time:             strings.TrimSpace(req.Time),
		Location:         strings.TrimSpace(req.Location),
		FeeAmount:        req.FeeAmount,
		MemberFeeAmount:  req.MemberFeeAmount,
		ImageURL:         req.ImageURL,
		RegistrationOpen: open,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, "an event with this slug already exists")
			return
		}
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id (admin only). Changing the title does not
// move existing registrations, which stay under the old title's partition.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	e, err := h.store.Get(ctx, id.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	applyString(&e.Title, req.Title)
	applyString(&e.Description, req.Description)
	applyString(&e.Date, req.Date)
	applyString(&e.Time, req.Time)
	applyString(&e.Location, req.Location)
	applyString(&e.ImageURL, req.ImageURL)
	if req.FeeAmount != nil {
		e.FeeAmount = *req.FeeAmount
	}
	if req.MemberFeeAmount != nil {
		e.MemberFeeAmount = *req.MemberFeeAmount
	}
	if req.RegistrationOpen != nil {
		e.RegistrationOpen = *req.RegistrationOpen
	}
	if strings.TrimSpace(e.Title) == "" {
		response.BadRequest(c, "title cannot be empty")
		return
	}
	if err := h.store.Update(ctx, e); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Delete handles DELETE /events/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}
