package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/ratelimit"
	"github.com/acm-chapter/events-backend/pkg/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.TicketArchivePayload
	err  error
}

func (q *fakeQueue) EnqueueTicketArchive(_ context.Context, p queue.TicketArchivePayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, p)
	return q.err
}

type fakeScans struct {
	mu    sync.Mutex
	scans []models.Scan
}

func (f *fakeScans) Record(_ context.Context, s *models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, *s)
	return nil
}

type fakeLinker struct{}

func (fakeLinker) PresignTicket(_ context.Context, key string) (string, error) {
	return "https://tickets.example/" + key + "?sig=1", nil
}

type fakePublisher struct {
	partitions []string
}

func (p *fakePublisher) PublishAttendance(partition string, _ interface{}) {
	p.partitions = append(p.partitions, partition)
}

// brokenStore fails every call with a storage error.
type brokenStore struct{ Store }

var errBroken = errors.New("connection refused")

func (brokenStore) InsertIfAbsent(context.Context, *models.Registration) error { return errBroken }
func (brokenStore) MarkAttended(context.Context, string, string) (*models.Registration, bool, error) {
	return nil, false, errBroken
}
func (brokenStore) FindByHash(context.Context, string, string) (*models.Registration, error) {
	return nil, errBroken
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/verify-attendance", h.VerifyAttendance)
	r.GET("/verify-attendance", h.AttendanceStatus)
	r.GET("/admin/registrations", h.ListByEvent)
	r.GET("/admin/registrations/stats", h.Stats)
	r.GET("/admin/registrations/:id", h.Get)
	r.GET("/admin/registrations/:id/ticket", h.TicketLink)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}, ip string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ip == "" {
		ip = "192.0.2.1"
	}
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestEndToEnd_RegisterThenVerifyTwice(t *testing.T) {
	store := NewMemoryStore()
	q := &fakeQueue{}
	scans := &fakeScans{}
	pub := &fakePublisher{}
	h := NewHandler(store, ratelimit.NewMemory(time.Hour, 5), nil)
	h.SetTicketQueue(q)
	h.SetScanRecorder(scans)
	h.SetPublisher(pub)
	r := newRouter(h)

	w, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["success"])
	assert.NotEmpty(t, out["message"])

	data := out["data"].(map[string]interface{})
	hash := data["attendanceHash"].(string)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), hash)
	assert.NotEmpty(t, data["registrationId"])
	regData := data["registrationData"].(map[string]interface{})
	assert.Nil(t, regData["membershipId"])
	assert.Equal(t, "Jane", regData["firstName"])
	assert.Equal(t, false, regData["attendance"])
	require.Len(t, q.jobs, 1)

	verify := map[string]string{"attendanceHash": hash, "eventTitle": "AI Day"}
	w, first := do(t, r, http.MethodPost, "/verify-attendance", verify, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, first["attendance"])
	assert.Equal(t, false, first["alreadyMarked"])
	markedAt := first["data"].(map[string]interface{})["markedAt"]
	assert.NotNil(t, markedAt)

	w, second := do(t, r, http.MethodPost, "/verify-attendance", verify, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, second["attendance"])
	assert.Equal(t, true, second["alreadyMarked"])
	assert.Equal(t, markedAt, second["data"].(map[string]interface{})["markedAt"])

	require.Len(t, scans.scans, 2)
	assert.Equal(t, models.ScanMarked, scans.scans[0].Outcome)
	assert.Equal(t, models.ScanAlreadyMarked, scans.scans[1].Outcome)
	assert.Equal(t, []string{"ai_day"}, pub.partitions)
}

func TestRegister_Duplicate(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryStore(), nil, nil))

	w, _ := do(t, r, http.MethodPost, "/register", validBody(), "")
	require.Equal(t, http.StatusOK, w.Code)

	body := validBody()
	body["firstName"] = "Janet"
	body["rollNumber"] = "B7"
	w, out := do(t, r, http.MethodPost, "/register", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, out["success"])
	assert.NotEmpty(t, out["error"])
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryStore(), nil, nil))

	const n = 10
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, _ := json.Marshal(validBody())
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok, conflict := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
}

func TestRegister_RateLimit(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryStore(), ratelimit.NewMemory(time.Hour, 5), nil))

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com"}
	for i, email := range emails[:5] {
		body := validBody()
		body["email"] = email
		w, _ := do(t, r, http.MethodPost, "/register", body, "198.51.100.7")
		assert.Equal(t, http.StatusOK, w.Code, "attempt %d", i+1)
	}
	body := validBody()
	body["email"] = emails[5]
	w, out := do(t, r, http.MethodPost, "/register", body, "198.51.100.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, false, out["success"])

	w, _ = do(t, r, http.MethodPost, "/register", body, "198.51.100.8")
	assert.Equal(t, http.StatusOK, w.Code, "other IPs are unaffected")
}

func TestRegister_ValidationFailuresHaveNoSideEffects(t *testing.T) {
	store := NewMemoryStore()
	limiter := ratelimit.NewMemory(time.Hour, 1)
	r := newRouter(NewHandler(store, limiter, nil))

	body := validBody()
	body["phone"] = "12345"
	w, out := do(t, r, http.MethodPost, "/register", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "10 digits")

	delete(body, "email")
	w, out = do(t, r, http.MethodPost, "/register", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", out["error"])

	list, _ := store.ListByPartition(context.Background(), "ai_day")
	assert.Empty(t, list)

	w, _ = do(t, r, http.MethodPost, "/register", validBody(), "")
	assert.Equal(t, http.StatusOK, w.Code, "rejected requests do not consume quota")
}

func TestRegister_MalformedJSON(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryStore(), nil, nil))
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_StoreFailure(t *testing.T) {
	r := newRouter(NewHandler(brokenStore{}, nil, nil))
	w, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, out["error"], "connection refused")
}

func TestRegister_QueueFailureDoesNotFailRegistration(t *testing.T) {
	h := NewHandler(NewMemoryStore(), nil, nil)
	h.SetTicketQueue(&fakeQueue{err: errors.New("redis down")})
	w, _ := do(t, newRouter(h), http.MethodPost, "/register", validBody(), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyAttendance_Errors(t *testing.T) {
	scans := &fakeScans{}
	h := NewHandler(NewMemoryStore(), nil, nil)
	h.SetScanRecorder(scans)
	r := newRouter(h)

	w, out := do(t, r, http.MethodPost, "/verify-attendance", map[string]string{"attendanceHash": "abc"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, out["attendance"])

	w, out = do(t, r, http.MethodPost, "/verify-attendance", map[string]string{"attendanceHash": "abc", "eventTitle": "AI Day"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, out["attendance"])
	require.Len(t, scans.scans, 1)
	assert.Equal(t, models.ScanNotFound, scans.scans[0].Outcome)

	w, out = do(t, newRouter(NewHandler(brokenStore{}, nil, nil)), http.MethodPost, "/verify-attendance",
		map[string]string{"attendanceHash": "abc", "eventTitle": "AI Day"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["attendance"])
}

func TestVerifyAttendance_WrongEventIsNotFound(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryStore(), nil, nil))
	_, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	hash := out["data"].(map[string]interface{})["attendanceHash"].(string)

	w, _ := do(t, r, http.MethodPost, "/verify-attendance", map[string]string{"attendanceHash": hash, "eventTitle": "Web Day"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceStatus_ReadOnly(t *testing.T) {
	store := NewMemoryStore()
	r := newRouter(NewHandler(store, nil, nil))
	_, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	hash := out["data"].(map[string]interface{})["attendanceHash"].(string)

	q := url.Values{"hash": {hash}, "event": {"AI Day"}}
	for i := 0; i < 2; i++ {
		w, status := do(t, r, http.MethodGet, "/verify-attendance?"+q.Encode(), nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, status["attendance"])
		assert.Equal(t, "A1", status["data"].(map[string]interface{})["rollNumber"])
	}

	reg, err := store.FindByHash(context.Background(), "ai_day", hash)
	require.NoError(t, err)
	assert.False(t, reg.Attendance)

	w, _ := do(t, r, http.MethodGet, "/verify-attendance?hash="+hash, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "event is required")

	w, _ = do(t, r, http.MethodGet, "/verify-attendance?hash=nope&event=AI+Day", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListStatsAndGet(t *testing.T) {
	store := NewMemoryStore()
	r := newRouter(NewHandler(store, nil, nil))
	_, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	id := out["data"].(map[string]interface{})["registrationId"].(string)

	w, list := do(t, r, http.MethodGet, "/admin/registrations?event=AI+Day", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list["data"], 1)

	w, stats := do(t, r, http.MethodGet, "/admin/registrations/stats?event=AI+Day", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	st := stats["data"].(map[string]interface{})["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), st["total"])

	w, _ = do(t, r, http.MethodGet, "/admin/registrations/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/admin/registrations/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodGet, "/admin/registrations", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketLink(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandler(store, nil, nil)
	r := newRouter(h)
	_, out := do(t, r, http.MethodPost, "/register", validBody(), "")
	id := out["data"].(map[string]interface{})["registrationId"].(string)

	w, _ := do(t, r, http.MethodGet, "/admin/registrations/"+id+"/ticket", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetTicketLinker(fakeLinker{})
	w, _ = do(t, r, http.MethodGet, "/admin/registrations/"+id+"/ticket", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, store.SetTicketKey(context.Background(), uuid.MustParse(id), "tickets/ai_day/A1-abc.pdf"))
	w, body := do(t, r, http.MethodGet, "/admin/registrations/"+id+"/ticket", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://tickets.example/tickets/ai_day/A1-abc.pdf?sig=1", body["data"].(map[string]interface{})["url"])
}
