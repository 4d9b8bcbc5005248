package registrations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/acm-chapter/events-backend/internal/models"
)

var (
	// ErrDuplicate means the email is already registered in the event's partition.
	ErrDuplicate = errors.New("registration already exists")
	// ErrNotFound means no registration matched the lookup.
	ErrNotFound = errors.New("registration not found")
)

// Store persists registrations. Implementations must make InsertIfAbsent
// atomic per (partition, email) and MarkAttended a compare-and-set on the
// attendance flag.
type Store interface {
	// InsertIfAbsent inserts reg, filling ID and timestamps, or returns ErrDuplicate.
	InsertIfAbsent(ctx context.Context, reg *models.Registration) error
	FindByEmail(ctx context.Context, partition, email string) (*models.Registration, error)
	FindByHash(ctx context.Context, partition, hash string) (*models.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	// MarkAttended flips attendance false->true once. alreadyMarked reports
	// whether an earlier call had done so; the returned record is current either way.
	MarkAttended(ctx context.Context, partition, hash string) (reg *models.Registration, alreadyMarked bool, err error)
	ListByPartition(ctx context.Context, partition string) ([]models.Registration, error)
	Stats(ctx context.Context, partition string) (models.RegistrationStats, error)
	SetTicketKey(ctx context.Context, id uuid.UUID, key string) error
}

// PartitionKey derives the storage partition from an event title: lowercase,
// with every character outside [a-z0-9] replaced by '_'.
func PartitionKey(eventTitle string) string {
	lower := strings.ToLower(eventTitle)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
