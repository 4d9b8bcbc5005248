package registrations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/ratelimit"
	"github.com/acm-chapter/events-backend/internal/validation"
	"github.com/acm-chapter/events-backend/pkg/queue"
	"github.com/acm-chapter/events-backend/pkg/response"
	"github.com/acm-chapter/events-backend/pkg/utils"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgRateLimited   = "Too many registration attempts. Please try again later."
	msgDuplicate     = "This email is already registered for this event"
	msgStoreFailure  = "Registration failed. Please try again."
	msgVerifyMissing = "Attendance hash and event title are required"
	msgUnknownHash   = "Invalid QR code or registration not found"
	msgVerifyFailure = "Failed to verify attendance. Please try again."
)

// TicketQueue schedules ticket archiving for a new registration.
type TicketQueue interface {
	EnqueueTicketArchive(ctx context.Context, payload queue.TicketArchivePayload) error
}

// ScanRecorder keeps an audit trail of verification scans.
type ScanRecorder interface {
	Record(ctx context.Context, scan *models.Scan) error
}

// AttendancePublisher notifies live check-in dashboards.
type AttendancePublisher interface {
	PublishAttendance(partition string, payload interface{})
}

// TicketLinker issues download links for archived tickets.
type TicketLinker interface {
	PresignTicket(ctx context.Context, key string) (string, error)
}

// Handler serves registration intake and attendance verification.
type Handler struct {
	store     Store
	limiter   ratelimit.Limiter
	tickets   TicketQueue
	scans     ScanRecorder
	publisher AttendancePublisher
	links     TicketLinker
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(store Store, limiter ratelimit.Limiter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, limiter: limiter, logger: logger}
}

// SetTicketQueue enables ticket archiving after registration.
func (h *Handler) SetTicketQueue(q TicketQueue) { h.tickets = q }

// SetScanRecorder enables the scan audit log.
func (h *Handler) SetScanRecorder(r ScanRecorder) { h.scans = r }

// SetPublisher enables live attendance notifications.
func (h *Handler) SetPublisher(p AttendancePublisher) { h.publisher = p }

// SetTicketLinker enables GET /admin/registrations/:id/ticket.
func (h *Handler) SetTicketLinker(l TicketLinker) { h.links = l }

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidBody)
		return
	}
	reg, err := req.toRegistration()
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			response.BadRequest(c, verr.Message)
			return
		}
		response.BadRequest(c, msgInvalidBody)
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, ip)
		if err != nil {
			// Fail open: a limiter outage must not block registrations.
			h.logger.Warn("rate limiter unavailable", zap.Error(err), zap.String("ip", ip))
		} else if !allowed {
			response.TooManyRequests(c, msgRateLimited)
			return
		}
	}

	reg.Partition = PartitionKey(reg.EventTitle)
	reg.AttendanceHash = utils.AttendanceHash(reg.FirstName, reg.RollNumber, reg.LastName, reg.Email)
	reg.IPAddress = ip

	if err := h.store.InsertIfAbsent(ctx, reg); err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, msgDuplicate)
			return
		}
		h.logger.Error("insert registration failed", zap.Error(err), zap.String("partition", reg.Partition))
		response.Internal(c, msgStoreFailure)
		return
	}

	if h.tickets != nil {
		if err := h.tickets.EnqueueTicketArchive(ctx, queue.TicketArchivePayload{RegistrationID: reg.ID}); err != nil {
			h.logger.Warn("enqueue ticket archive failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		}
	}

	h.logger.Info("registration created",
		zap.String("registration_id", reg.ID.String()),
		zap.String("partition", reg.Partition))

	response.OKMessage(c, "Registration successful", gin.H{
		"registrationId":   reg.ID,
		"attendanceHash":   reg.AttendanceHash,
		"registrationData": reg,
	})
}

// VerifyRequest is the body for POST /verify-attendance.
type VerifyRequest struct {
	AttendanceHash string `json:"attendanceHash"`
	EventTitle     string `json:"eventTitle"`
}

// attendanceBody always carries the attendance flag, including on errors.
type attendanceBody struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message,omitempty"`
	Error         string          `json:"error,omitempty"`
	Attendance    bool            `json:"attendance"`
	AlreadyMarked *bool           `json:"alreadyMarked,omitempty"`
	Data          *attendeeDetail `json:"data,omitempty"`
}

type attendeeDetail struct {
	Name       string     `json:"name"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	RollNumber string     `json:"rollNumber"`
	Email      string     `json:"email"`
	Branch     string     `json:"branch"`
	Year       string     `json:"year"`
	Division   string     `json:"division"`
	EventTitle string     `json:"eventTitle"`
	Status     string     `json:"status"`
	MarkedAt   *time.Time `json:"markedAt"`
}

func detailOf(reg *models.Registration) *attendeeDetail {
	return &attendeeDetail{
		Name:       reg.FullName(),
		FirstName:  reg.FirstName,
		LastName:   reg.LastName,
		RollNumber: reg.RollNumber,
		Email:      reg.Email,
		Branch:     reg.Branch,
		Year:       reg.Year,
		Division:   reg.Division,
		EventTitle: reg.EventTitle,
		Status:     string(reg.Status),
		MarkedAt:   reg.AttendanceMarkedAt,
	}
}

func attendanceError(c *gin.Context, status int, msg string) {
	c.JSON(status, attendanceBody{Success: false, Error: msg})
}

// VerifyAttendance handles POST /verify-attendance. A repeat scan of an
// already attended badge succeeds with alreadyMarked=true.
func (h *Handler) VerifyAttendance(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		attendanceError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	hash := strings.TrimSpace(req.AttendanceHash)
	title := strings.TrimSpace(req.EventTitle)
	if hash == "" || title == "" {
		attendanceError(c, http.StatusBadRequest, msgVerifyMissing)
		return
	}

	ctx := c.Request.Context()
	partition := PartitionKey(title)
	reg, already, err := h.store.MarkAttended(ctx, partition, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.recordScan(ctx, partition, hash, models.ScanNotFound, c.ClientIP())
			attendanceError(c, http.StatusNotFound, msgUnknownHash)
			return
		}
		h.logger.Error("mark attended failed", zap.Error(err), zap.String("partition", partition), zap.String("hash", hash))
		attendanceError(c, http.StatusInternalServerError, msgVerifyFailure)
		return
	}

	detail := detailOf(reg)
	if already {
		h.recordScan(ctx, partition, hash, models.ScanAlreadyMarked, c.ClientIP())
		c.JSON(http.StatusOK, attendanceBody{
			Success:       true,
			Message:       "Attendance already marked",
			Attendance:    true,
			AlreadyMarked: &already,
			Data:          detail,
		})
		return
	}

	h.recordScan(ctx, partition, hash, models.ScanMarked, c.ClientIP())
	if h.publisher != nil {
		h.publisher.PublishAttendance(partition, detail)
	}
	h.logger.Info("attendance marked", zap.String("registration_id", reg.ID.String()), zap.String("partition", partition))
	c.JSON(http.StatusOK, attendanceBody{
		Success:       true,
		Message:       "Attendance marked successfully",
		Attendance:    true,
		AlreadyMarked: &already,
		Data:          detail,
	})
}

// AttendanceStatus handles GET /verify-attendance?hash=&event=. It never mutates.
// The event is mandatory: hashes are only unique within an event.
func (h *Handler) AttendanceStatus(c *gin.Context) {
	hash := strings.TrimSpace(c.Query("hash"))
	title := strings.TrimSpace(c.Query("event"))
	if hash == "" || title == "" {
		attendanceError(c, http.StatusBadRequest, "hash and event query parameters are required")
		return
	}
	reg, err := h.store.FindByHash(c.Request.Context(), PartitionKey(title), hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			attendanceError(c, http.StatusNotFound, msgUnknownHash)
			return
		}
		h.logger.Error("attendance lookup failed", zap.Error(err), zap.String("hash", hash))
		attendanceError(c, http.StatusInternalServerError, msgVerifyFailure)
		return
	}
	c.JSON(http.StatusOK, attendanceBody{
		Success:    true,
		Attendance: reg.Attendance,
		Data:       detailOf(reg),
	})
}

func (h *Handler) recordScan(ctx context.Context, partition, hash string, outcome models.ScanOutcome, ip string) {
	if h.scans == nil {
		return
	}
	scan := &models.Scan{Partition: partition, AttendanceHash: hash, Outcome: outcome, ScannerIP: ip}
	if err := h.scans.Record(ctx, scan); err != nil {
		h.logger.Warn("record scan failed", zap.Error(err), zap.String("partition", partition))
	}
}

// ListByEvent handles GET /admin/registrations?event=.
func (h *Handler) ListByEvent(c *gin.Context) {
	title := strings.TrimSpace(c.Query("event"))
	if title == "" {
		response.BadRequest(c, "event query parameter is required")
		return
	}
	list, err := h.store.ListByPartition(c.Request.Context(), PartitionKey(title))
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	if list == nil {
		list = []models.Registration{}
	}
	response.OK(c, list)
}

// Stats handles GET /admin/registrations/stats?event=.
func (h *Handler) Stats(c *gin.Context) {
	title := strings.TrimSpace(c.Query("event"))
	if title == "" {
		response.BadRequest(c, "event query parameter is required")
		return
	}
	stats, err := h.store.Stats(c.Request.Context(), PartitionKey(title))
	if err != nil {
		h.logger.Error("registration stats failed", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, gin.H{"event": title, "partition": PartitionKey(title), "stats": stats})
}

// Get handles GET /admin/registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, reg)
}

// TicketLink handles GET /admin/registrations/:id/ticket and returns a
// pre-signed URL for the archived ticket PDF.
func (h *Handler) TicketLink(c *gin.Context) {
	if h.links == nil {
		response.ServiceUnavailable(c, "ticket archive is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	if reg.TicketKey == "" {
		response.NotFound(c, "ticket not archived yet")
		return
	}
	url, err := h.links.PresignTicket(c.Request.Context(), reg.TicketKey)
	if err != nil {
		h.logger.Error("presign ticket failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to create ticket link")
		return
	}
	response.OK(c, gin.H{"url": url})
}
