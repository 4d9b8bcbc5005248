package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/registrations"
	"github.com/acm-chapter/events-backend/internal/tickets"
	"github.com/acm-chapter/events-backend/pkg/queue"
	"github.com/acm-chapter/events-backend/pkg/storage"
)

// DequeueTimeout bounds each blocking pop so shutdown is noticed promptly.
const DequeueTimeout = 5 * time.Second

// Registrations is the subset of the registration store the archiver needs.
type Registrations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	SetTicketKey(ctx context.Context, id uuid.UUID, key string) error
}

// TicketStore uploads rendered tickets.
type TicketStore interface {
	UploadTicket(ctx context.Context, key string, pdf []byte) error
}

// JobSource yields jobs and takes back failed ones.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// TicketArchiver renders each new registration's ticket PDF and stores it in the bucket.
type TicketArchiver struct {
	regs     Registrations
	renderer *tickets.Renderer
	store    TicketStore
	jobs     JobSource
	backoff  time.Duration
	logger   *zap.Logger
}

// NewTicketArchiver creates a ticket archive processor.
func NewTicketArchiver(regs Registrations, renderer *tickets.Renderer, store TicketStore, jobs JobSource, logger *zap.Logger) *TicketArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketArchiver{regs: regs, renderer: renderer, store: store, jobs: jobs, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one ticket archive job. Jobs for registrations that no
// longer exist are dropped rather than retried.
func (a *TicketArchiver) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTicketArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TicketArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	reg, err := a.regs.GetByID(ctx, payload.RegistrationID)
	if errors.Is(err, registrations.ErrNotFound) {
		a.logger.Warn("registration gone, dropping ticket job", zap.String("registration_id", payload.RegistrationID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	if reg.TicketKey != "" {
		a.logger.Info("ticket already archived", zap.String("registration_id", reg.ID.String()))
		return nil
	}

	pdf, err := a.renderer.TicketPDF(tickets.FromRegistration(reg))
	if err != nil {
		return fmt.Errorf("render ticket: %w", err)
	}
	key := storage.TicketKey(reg.Partition, reg.RollNumber, reg.AttendanceHash)
	if err := a.store.UploadTicket(ctx, key, pdf); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := a.regs.SetTicketKey(ctx, reg.ID, key); err != nil {
		return fmt.Errorf("update db: %w", err)
	}

	a.logger.Info("ticket archived", zap.String("registration_id", reg.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. Returns when ctx is done.
func (a *TicketArchiver) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			a.logger.Info("ticket worker stopping")
			return
		}

		job, err := a.jobs.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			a.logger.Warn("dequeue error", zap.Error(err))
			a.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		a.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := a.Process(ctx, job); err != nil {
			a.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := a.jobs.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				a.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			a.sleep(ctx)
		}
	}
}

func (a *TicketArchiver) sleep(ctx context.Context) {
	t := time.NewTimer(a.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
