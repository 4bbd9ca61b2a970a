package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/classroom-seating/internal/config"
	"github.com/iliyamo/classroom-seating/internal/queue"
	"github.com/iliyamo/classroom-seating/internal/store"
)

type fakePublisher struct {
	events chan queue.ArrangementCompletedEvent
}

func (f *fakePublisher) PublishArrangementCompleted(_ context.Context, ev queue.ArrangementCompletedEvent) error {
	f.events <- ev
	return nil
}

// testUser plays the part of JWTAuth: the user id comes from X-Test-User,
// defaulting to 1.
func testUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := uint64(1)
		if v := c.Request().Header.Get("X-Test-User"); v != "" {
			n, _ := strconv.ParseUint(v, 10, 64)
			id = n
		}
		c.Set("user_id", id)
		c.Set("role", "TEACHER")
		return next(c)
	}
}

type testServer struct {
	e      *echo.Echo
	events chan queue.ArrangementCompletedEvent
	store  *store.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	pub := &fakePublisher{events: make(chan queue.ArrangementCompletedEvent, 8)}
	m := store.NewManager(store.NewMemoryBackend(), config.SessionConfig{TTL: time.Hour})
	h := NewSessionHandler(m, pub, nil)

	g := e.Group("/v1/sessions", testUser)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/chart", h.Chart)
	g.PUT("/:id/dimensions", h.Resize)
	g.PUT("/:id/orientation", h.SetOrientation)
	g.PUT("/:id/roster", h.SetRoster)
	g.POST("/:id/seats/:index/lock", h.Lock)
	g.DELETE("/:id/seats/:index/lock", h.Unlock)
	g.POST("/:id/seats/:index/lock/toggle", h.ToggleLock)
	g.POST("/:id/seats/:index/disable", h.Disable)
	g.DELETE("/:id/seats/:index/disable", h.Enable)
	g.POST("/:id/seats/:index/disable/toggle", h.ToggleDisabled)
	g.DELETE("/:id/seats/:index", h.Unassign)
	g.POST("/:id/drop", h.Drop)
	g.POST("/:id/arrange", h.Arrange)
	g.POST("/:id/clear", h.Clear)
	g.GET("/:id/snapshot", h.ExportSnapshot)
	g.PUT("/:id/snapshot", h.ImportSnapshot)
	g.GET("/:id/ws", h.Watch)
	return &testServer{e: e, events: pub.events, store: m}
}

func (ts *testServer) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
}

// createSession opens a rows×cols session and loads the roster.
func (ts *testServer) createSession(t *testing.T, rows, cols int, csv string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/sessions", `{"rows":`+strconv.Itoa(rows)+`,"cols":`+strconv.Itoa(cols)+`}`)
	expect(t, rec, http.StatusCreated)
	var v sessionView
	decode(t, rec, &v)
	if csv != "" {
		rec = ts.do(t, http.MethodPut, "/v1/sessions/"+v.ID+"/roster", csv, echo.HeaderContentType, "text/csv")
		expect(t, rec, http.StatusOK)
	}
	return v.ID
}
