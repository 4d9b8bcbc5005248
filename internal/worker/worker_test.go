package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/registrations"
	"github.com/acm-chapter/events-backend/internal/tickets"
	"github.com/acm-chapter/events-backend/pkg/queue"
	"github.com/acm-chapter/events-backend/pkg/utils"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    int
}

func (b *memBucket) UploadTicket(_ context.Context, key string, pdf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail > 0 {
		b.fail--
		return errors.New("s3 unavailable")
	}
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[key] = pdf
	return nil
}

func (b *memBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		out = append(out, k)
	}
	return out
}

func seedRegistration(t *testing.T, store *registrations.MemoryStore) *models.Registration {
	t.Helper()
	reg := &models.Registration{
		Partition:     "ai_day",
		EventID:       "ai-day",
		EventTitle:    "AI Day",
		EventDate:     "2026-03-14",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.edu",
		Phone:         "9876543210",
		RollNumber:    "A1",
		Branch:        "CSE",
		Year:          "TE",
		TransactionID: "TXN1",
		FeeAmount:     100,
	}
	reg.AttendanceHash = utils.AttendanceHash(reg.FirstName, reg.RollNumber, reg.LastName, reg.Email)
	require.NoError(t, store.InsertIfAbsent(context.Background(), reg))
	return reg
}

func newQueue(t *testing.T) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.NewQueue(rdb, nil), mr
}

func TestProcessArchivesTicket(t *testing.T) {
	store := registrations.NewMemoryStore()
	reg := seedRegistration(t, store)
	q, _ := newQueue(t)
	bucket := &memBucket{}
	a := NewTicketArchiver(store, tickets.NewRenderer(""), bucket, q, nil)

	ctx := context.Background()
	require.NoError(t, q.EnqueueTicketArchive(ctx, queue.TicketArchivePayload{RegistrationID: reg.ID}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, a.Process(ctx, job))
	key := "tickets/ai_day/A1-" + reg.AttendanceHash[:12] + ".pdf"
	assert.Equal(t, []string{key}, bucket.keys())
	assert.Equal(t, "%PDF", string(bucket.objects[key][:4]))

	got, err := store.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, key, got.TicketKey)

	// second run is a no-op
	bucket.objects = nil
	require.NoError(t, a.Process(ctx, job))
	assert.Empty(t, bucket.keys())
}

func TestProcessDropsUnknownRegistration(t *testing.T) {
	q, _ := newQueue(t)
	bucket := &memBucket{}
	a := NewTicketArchiver(registrations.NewMemoryStore(), tickets.NewRenderer(""), bucket, q, nil)
	ctx := context.Background()
	require.NoError(t, q.EnqueueTicketArchive(ctx, queue.TicketArchivePayload{RegistrationID: uuid.New()}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.NoError(t, a.Process(ctx, job))
	assert.Empty(t, bucket.keys())
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	a := NewTicketArchiver(registrations.NewMemoryStore(), tickets.NewRenderer(""), &memBucket{}, nil, nil)
	err := a.Process(context.Background(), &queue.Job{Type: "email"})
	assert.Error(t, err)
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	store := registrations.NewMemoryStore()
	reg := seedRegistration(t, store)
	q, _ := newQueue(t)
	bucket := &memBucket{fail: 1}
	a := NewTicketArchiver(store, tickets.NewRenderer(""), bucket, q, nil)
	a.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.EnqueueTicketArchive(ctx, queue.TicketArchivePayload{RegistrationID: reg.ID}))

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := store.GetByID(context.Background(), reg.ID)
		return err == nil && got.TicketKey != ""
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * DequeueTimeout):
		t.Fatal("worker did not stop")
	}
}
