package registrations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acm-chapter/events-backend/internal/models"
)

type partitionKey struct {
	partition string
	value     string
}

// MemoryStore is an in-process Store for local development and tests.
// A single mutex makes insert and mark atomic.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	byID    map[uuid.UUID]*models.Registration
	byEmail map[partitionKey]uuid.UUID
	byHash  map[partitionKey]uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		byID:    make(map[uuid.UUID]*models.Registration),
		byEmail: make(map[partitionKey]uuid.UUID),
		byHash:  make(map[partitionKey]uuid.UUID),
	}
}

func clone(reg *models.Registration) *models.Registration {
	cp := *reg
	if reg.MembershipID != nil {
		id := *reg.MembershipID
		cp.MembershipID = &id
	}
	if reg.AttendanceMarkedAt != nil {
		t := *reg.AttendanceMarkedAt
		cp.AttendanceMarkedAt = &t
	}
	return &cp
}

// InsertIfAbsent implements Store.
func (s *MemoryStore) InsertIfAbsent(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := partitionKey{reg.Partition, reg.Email}
	hashKey := partitionKey{reg.Partition, reg.AttendanceHash}
	if _, ok := s.byEmail[emailKey]; ok {
		return ErrDuplicate
	}
	if _, ok := s.byHash[hashKey]; ok {
		return ErrDuplicate
	}

	now := s.now().UTC()
	reg.ID = uuid.New()
	reg.Attendance = false
	reg.AttendanceMarkedAt = nil
	reg.Status = models.StatusRegistered
	reg.CreatedAt = now
	reg.UpdatedAt = now

	s.byID[reg.ID] = clone(reg)
	s.byEmail[emailKey] = reg.ID
	s.byHash[hashKey] = reg.ID
	return nil
}

func (s *MemoryStore) find(index map[partitionKey]uuid.UUID, key partitionKey) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := index[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByEmail implements Store.
func (s *MemoryStore) FindByEmail(_ context.Context, partition, email string) (*models.Registration, error) {
	return s.find(s.byEmail, partitionKey{partition, email})
}

// FindByHash implements Store.
func (s *MemoryStore) FindByHash(_ context.Context, partition, hash string) (*models.Registration, error) {
	return s.find(s.byHash, partitionKey{partition, hash})
}

// GetByID implements Store.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(reg), nil
}

// MarkAttended implements Store.
func (s *MemoryStore) MarkAttended(_ context.Context, partition, hash string) (*models.Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byHash[partitionKey{partition, hash}]
	if !ok {
		return nil, false, ErrNotFound
	}
	reg := s.byID[id]
	if reg.Attendance {
		return clone(reg), true, nil
	}
	now := s.now().UTC()
	reg.Attendance = true
	reg.AttendanceMarkedAt = &now
	reg.Status = models.StatusAttended
	reg.UpdatedAt = now
	return clone(reg), false, nil
}

// ListByPartition implements Store.
func (s *MemoryStore) ListByPartition(_ context.Context, partition string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Registration
	for _, reg := range s.byID {
		if reg.Partition == partition {
			list = append(list, *clone(reg))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context, partition string) (models.RegistrationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st models.RegistrationStats
	for _, reg := range s.byID {
		if reg.Partition != partition {
			continue
		}
		st.Total++
		if reg.Attendance {
			st.Attended++
		}
		if reg.IsACMMember {
			st.ACMMembers++
		}
		st.FeeTotal += reg.FeeAmount
	}
	return st, nil
}

// SetTicketKey implements Store.
func (s *MemoryStore) SetTicketKey(_ context.Context, id uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	reg.TicketKey = key
	reg.UpdatedAt = s.now().UTC()
	return nil
}
