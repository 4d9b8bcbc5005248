package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acm-chapter/events-backend/internal/models"
)

const columns = `id, partition, event_id, event_title, event_date, event_time, event_location,
	first_name, last_name, email, phone, roll_number, branch, year, division,
	is_acm_member, membership_id, transaction_id, fee_amount, attendance_hash,
	attendance, attendance_marked_at, status, ip_address, COALESCE(ticket_key,''), created_at, updated_at`

// Repository is the PostgreSQL Store. Uniqueness is enforced by the
// (partition, email) and (partition, attendance_hash) unique indexes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	var status string
	err := row.Scan(&reg.ID, &reg.Partition, &reg.EventID, &reg.EventTitle, &reg.EventDate, &reg.EventTime, &reg.EventLocation,
		&reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone, &reg.RollNumber, &reg.Branch, &reg.Year, &reg.Division,
		&reg.IsACMMember, &reg.MembershipID, &reg.TransactionID, &reg.FeeAmount, &reg.AttendanceHash,
		&reg.Attendance, &reg.AttendanceMarkedAt, &status, &reg.IPAddress, &reg.TicketKey, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	reg.Status = models.RegistrationStatus(status)
	return &reg, nil
}

// InsertIfAbsent inserts a registration unless the email (or hash) already exists in the partition.
func (r *Repository) InsertIfAbsent(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, partition, event_id, event_title, event_date, event_time, event_location,
		first_name, last_name, email, phone, roll_number, branch, year, division,
		is_acm_member, membership_id, transaction_id, fee_amount, attendance_hash, status, ip_address)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 'registered', $20)
		ON CONFLICT DO NOTHING
		RETURNING id, attendance, attendance_marked_at, status, created_at, updated_at`
	var status string
	err := r.pool.QueryRow(ctx, q, reg.Partition, reg.EventID, reg.EventTitle, reg.EventDate, reg.EventTime, reg.EventLocation,
		reg.FirstName, reg.LastName, reg.Email, reg.Phone, reg.RollNumber, reg.Branch, reg.Year, reg.Division,
		reg.IsACMMember, reg.MembershipID, reg.TransactionID, reg.FeeAmount, reg.AttendanceHash, reg.IPAddress).
		Scan(&reg.ID, &reg.Attendance, &reg.AttendanceMarkedAt, &status, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	reg.Status = models.RegistrationStatus(status)
	return nil
}

// FindByEmail returns the registration for an email within a partition.
func (r *Repository) FindByEmail(ctx context.Context, partition, email string) (*models.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations WHERE partition = $1 AND email = $2`
	return scanRegistration(r.pool.QueryRow(ctx, q, partition, email))
}

// FindByHash returns the registration for an attendance hash within a partition.
func (r *Repository) FindByHash(ctx context.Context, partition, hash string) (*models.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations WHERE partition = $1 AND attendance_hash = $2`
	return scanRegistration(r.pool.QueryRow(ctx, q, partition, hash))
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations WHERE id = $1`
	return scanRegistration(r.pool.QueryRow(ctx, q, id))
}

// MarkAttended sets attendance only where it is still false, so concurrent
// scans of the same badge produce exactly one transition.
func (r *Repository) MarkAttended(ctx context.Context, partition, hash string) (*models.Registration, bool, error) {
	q := `UPDATE registrations
		SET attendance = TRUE, attendance_marked_at = NOW(), status = 'attended', updated_at = NOW()
		WHERE partition = $1 AND attendance_hash = $2 AND attendance = FALSE
		RETURNING ` + columns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, partition, hash))
	if err == nil {
		return reg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("mark attended: %w", err)
	}
	reg, err = r.FindByHash(ctx, partition, hash)
	if err != nil {
		return nil, false, err
	}
	return reg, true, nil
}

// ListByPartition returns all registrations for an event, newest first.
func (r *Repository) ListByPartition(ctx context.Context, partition string) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM registrations WHERE partition = $1 ORDER BY created_at DESC`, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// Stats returns registration and attendance counts for an event.
func (r *Repository) Stats(ctx context.Context, partition string) (models.RegistrationStats, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE attendance), COUNT(*) FILTER (WHERE is_acm_member), COALESCE(SUM(fee_amount), 0)
		FROM registrations WHERE partition = $1`
	var s models.RegistrationStats
	err := r.pool.QueryRow(ctx, q, partition).Scan(&s.Total, &s.Attended, &s.ACMMembers, &s.FeeTotal)
	return s, err
}

// SetTicketKey records where the archived ticket PDF was stored.
func (r *Repository) SetTicketKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE registrations SET ticket_key = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, key, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
