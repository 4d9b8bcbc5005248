package scanlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acm-chapter/events-backend/internal/models"
)

// Store is the append-only verification scan log.
type Store interface {
	Record(ctx context.Context, scan *models.Scan) error
	ListByPartition(ctx context.Context, partition string, limit int) ([]models.Scan, error)
	Summary(ctx context.Context, partition string) (*Summary, error)
}

// Summary counts scans per outcome for an event.
type Summary struct {
	Marked        int `json:"marked"`
	AlreadyMarked int `json:"alreadyMarked"`
	NotFound      int `json:"notFound"`
}

func (s *Summary) add(outcome models.ScanOutcome, n int) {
	switch outcome {
	case models.ScanMarked:
		s.Marked += n
	case models.ScanAlreadyMarked:
		s.AlreadyMarked += n
	case models.ScanNotFound:
		s.NotFound += n
	}
}

// Repository handles attendance_scans.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scan log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one scan and fills its ID and timestamp.
func (r *Repository) Record(ctx context.Context, scan *models.Scan) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attendance_scans (partition, attendance_hash, outcome, scanner_ip)
		 VALUES ($1, $2, $3, $4) RETURNING id, scanned_at`,
		scan.Partition, scan.AttendanceHash, string(scan.Outcome), scan.ScannerIP,
	).Scan(&scan.ID, &scan.ScannedAt)
}

// ListByPartition returns the most recent scans for an event, newest first.
func (r *Repository) ListByPartition(ctx context.Context, partition string, limit int) ([]models.Scan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, partition, attendance_hash, outcome, scanner_ip, scanned_at
		 FROM attendance_scans WHERE partition = $1 ORDER BY scanned_at DESC LIMIT $2`,
		partition, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Scan
	for rows.Next() {
		var s models.Scan
		if err := rows.Scan(&s.ID, &s.Partition, &s.AttendanceHash, &s.Outcome, &s.ScannerIP, &s.ScannedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Summary aggregates scan outcomes for an event.
func (r *Repository) Summary(ctx context.Context, partition string) (*Summary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM attendance_scans WHERE partition = $1 GROUP BY outcome`, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sum Summary
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		sum.add(models.ScanOutcome(outcome), n)
	}
	return &sum, rows.Err()
}

// MemoryStore is an in-process scan log.
type MemoryStore struct {
	mu    sync.Mutex
	scans []models.Scan
	now   func() time.Time
}

// NewMemoryStore creates an empty scan log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Record implements Store.
func (m *MemoryStore) Record(_ context.Context, scan *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan.ID = uuid.New()
	scan.ScannedAt = m.now().UTC()
	m.scans = append(m.scans, *scan)
	return nil
}

// ListByPartition implements Store.
func (m *MemoryStore) ListByPartition(_ context.Context, partition string, limit int) ([]models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Scan
	for i := len(m.scans) - 1; i >= 0; i-- {
		if m.scans[i].Partition == partition {
			list = append(list, m.scans[i])
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ScannedAt.After(list[j].ScannedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Summary implements Store.
func (m *MemoryStore) Summary(_ context.Context, partition string) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum Summary
	for _, s := range m.scans {
		if s.Partition == partition {
			sum.add(s.Outcome, 1)
		}
	}
	return &sum, nil
}
