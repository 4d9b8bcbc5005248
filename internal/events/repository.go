package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acm-chapter/events-backend/internal/models"
)

var (
	// ErrNotFound means no event matched.
	ErrNotFound = errors.New("event not found")
	// ErrSlugTaken means another event already uses the slug.
	ErrSlugTaken = errors.New("event slug already exists")
)

// Store persists events.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	Get(ctx context.Context, idOrSlug string) (*models.Event, error)
	List(ctx context.Context, openOnly bool) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Slugify turns a title into a URL slug: lowercase words joined by '-'.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

const eventColumns = `id, slug, title, description, event_date, event_time, location, fee_amount, member_fee_amount,
	COALESCE(image_url,''), registration_open, created_at, updated_at`

// Repository handles event persistence in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location, &e.FeeAmount, &e.MemberFeeAmount,
		&e.ImageURL, &e.RegistrationOpen, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, slug, title, description, event_date, event_time, location, fee_amount, member_fee_amount, image_url, registration_open)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9,''), $10)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.Slug, e.Title, e.Description, e.Date, e.Time, e.Location, e.FeeAmount, e.MemberFeeAmount, e.ImageURL, e.RegistrationOpen).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Get returns an event by UUID or slug.
func (r *Repository) Get(ctx context.Context, idOrSlug string) (*models.Event, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	}
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, idOrSlug))
}

// List returns events ordered by date, optionally only those open for registration.
func (r *Repository) List(ctx context.Context, openOnly bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if openOnly {
		q += ` WHERE registration_open`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY event_date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update overwrites the editable fields of an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, event_date = $3, event_time = $4, location = $5,
		fee_amount = $6, member_fee_amount = $7, image_url = NULLIF($8,''), registration_open = $9, updated_at = NOW()
		WHERE id = $10 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Date, e.Time, e.Location, e.FeeAmount, e.MemberFeeAmount, e.ImageURL, e.RegistrationOpen, e.ID).
		Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes an event by ID. Registrations are kept.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]models.Event
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[uuid.UUID]models.Event)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.Slug == e.Slug {
			return ErrSlugTaken
		}
	}
	now := time.Now().UTC()
	e.ID = uuid.New()
	e.CreatedAt, e.UpdatedAt = now, now
	m.events[e.ID] = *e
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, idOrSlug string) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, err := uuid.Parse(idOrSlug); err == nil {
		if e, ok := m.events[id]; ok {
			return &e, nil
		}
		return nil, ErrNotFound
	}
	for _, e := range m.events {
		if e.Slug == idOrSlug {
			e := e
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, openOnly bool) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []models.Event
	for _, e := range m.events {
		if openOnly && !e.RegistrationOpen {
			continue
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date > list[j].Date
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	e.Slug = existing.Slug
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	m.events[e.ID] = *e
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}
