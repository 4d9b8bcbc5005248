package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewMemoryStore(), nil)
	r := gin.New()
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.POST("/events", h.Create)
	r.PATCH("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)
	return r
}

func send(t *testing.T, r http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ai-day-2026", Slugify("AI Day 2026"))
	assert.Equal(t, "hack-a-thon", Slugify("  Hack--a--thon!! "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestEventLifecycle(t *testing.T) {
	r := newRouter()

	code, out := send(t, r, http.MethodPost, "/events", map[string]interface{}{
		"title": "AI Day", "date": "2026-11-02", "time": "10:00", "location": "Hall", "feeAmount": 100,
	})
	require.Equal(t, http.StatusCreated, code)
	ev := out["data"].(map[string]interface{})
	id := ev["id"].(string)
	assert.Equal(t, "ai-day", ev["slug"])
	assert.Equal(t, true, ev["registrationOpen"])

	code, _ = send(t, r, http.MethodPost, "/events", map[string]interface{}{"title": "AI Day", "date": "2026-12-01"})
	assert.Equal(t, http.StatusConflict, code)

	code, out = send(t, r, http.MethodGet, "/events/ai-day", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, out["data"].(map[string]interface{})["id"])

	code, out = send(t, r, http.MethodPatch, "/events/"+id, map[string]interface{}{"registrationOpen": false, "location": " Auditorium "})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Auditorium", out["data"].(map[string]interface{})["location"])
	assert.Equal(t, "AI Day", out["data"].(map[string]interface{})["title"])

	_, out = send(t, r, http.MethodGet, "/events?open=true", nil)
	assert.Empty(t, out["data"])
	_, out = send(t, r, http.MethodGet, "/events", nil)
	assert.Len(t, out["data"], 1)

	code, _ = send(t, r, http.MethodDelete, "/events/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = send(t, r, http.MethodGet, "/events/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateValidation(t *testing.T) {
	r := newRouter()
	code, _ := send(t, r, http.MethodPost, "/events", map[string]interface{}{"date": "2026-11-02"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = send(t, r, http.MethodPost, "/events", map[string]interface{}{"title": "X", "date": "d", "feeAmount": -1})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = send(t, r, http.MethodPatch, "/events/not-a-uuid", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
}
