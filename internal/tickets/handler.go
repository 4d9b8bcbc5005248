package tickets

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/pkg/response"
)

// GenerateRequest is the body for the POST /generate-* endpoints.
type GenerateRequest struct {
	RegistrationData Data   `json:"registrationData"`
	AttendanceHash   string `json:"attendanceHash"`
	RegistrationID   string `json:"registrationId"`
}

// Handler serves document downloads.
type Handler struct {
	renderer *Renderer
	logger   *zap.Logger
}

// NewHandler creates a tickets handler.
func NewHandler(renderer *Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{renderer: renderer, logger: logger}
}

type renderFunc func(Document) ([]byte, error)

func (h *Handler) serve(c *gin.Context, render renderFunc, kind, ext, contentType string) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	doc := Document{
		Data:           req.RegistrationData,
		AttendanceHash: strings.TrimSpace(req.AttendanceHash),
		RegistrationID: strings.TrimSpace(req.RegistrationID),
	}
	body, err := render(doc)
	if err != nil {
		if errors.Is(err, ErrMissingData) {
			response.BadRequest(c, "Missing required registration data")
			return
		}
		h.logger.Error("render document failed", zap.Error(err), zap.String("kind", kind))
		response.Internal(c, "Failed to generate document")
		return
	}
	filename := Filename(doc.Data.EventTitle, doc.Data.RollNumber, kind, ext)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// RegistrationPDF handles POST /generate-pdf.
func (h *Handler) RegistrationPDF(c *gin.Context) {
	h.serve(c, h.renderer.RegistrationPDF, "registration", "pdf", "application/pdf")
}

// TicketPDF handles POST /generate-ticket-pdf.
func (h *Handler) TicketPDF(c *gin.Context) {
	h.serve(c, h.renderer.TicketPDF, "ticket", "pdf", "application/pdf")
}

// TicketImage handles POST /generate-ticket-image.
func (h *Handler) TicketImage(c *gin.Context) {
	h.serve(c, h.renderer.TicketPNG, "ticket", "png", "image/png")
}
