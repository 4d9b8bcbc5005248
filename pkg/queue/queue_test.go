package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueTicketArchive(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, q.EnqueueTicketArchive(ctx, TicketArchivePayload{RegistrationID: id}))

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeTicketArchive, job.Type)
	assert.Equal(t, 0, job.Attempt)

	var payload TicketArchivePayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, id, payload.RegistrationID)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "j1", Type: JobTypeTicketArchive, Payload: json.RawMessage(`{}`)}

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
	}
	tickets, err := mr.List(QueueTickets)
	require.NoError(t, err)
	assert.Len(t, tickets, MaxRetries-1)

	require.NoError(t, q.Retry(ctx, job))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	assert.Equal(t, MaxRetries, job.Attempt)
}

func TestDequeueSkipsMalformedJob(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Push(QueueTickets, "not-json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	assert.NoError(t, err)
	assert.Nil(t, job)
}
