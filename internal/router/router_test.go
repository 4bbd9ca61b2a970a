package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/classroom-seating/internal/config"
	"github.com/iliyamo/classroom-seating/internal/handler"
	"github.com/iliyamo/classroom-seating/internal/model"
	"github.com/iliyamo/classroom-seating/internal/service"
	"github.com/iliyamo/classroom-seating/internal/store"
	"github.com/iliyamo/classroom-seating/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T, limit echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Validator = handler.NewValidator()
	m := store.NewManager(store.NewMemoryBackend(), config.SessionConfig{TTL: time.Hour})
	RegisterRoutes(e)
	RegisterSessions(e, handler.NewSessionHandler(m, service.NopPublisher{}, nil), secret, limit)
	return e
}

func call(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newServer(t, nil)
	rec := call(e, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSessionRoutesRequireTeacher(t *testing.T) {
	e := newServer(t, nil)
	teacher, _ := utils.NewAccessToken(secret, 1, model.RoleTeacher, 5)
	other, _ := utils.NewAccessToken(secret, 2, "STUDENT", 5)

	if rec := call(e, http.MethodPost, "/v1/sessions", `{"rows":2,"cols":2}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/v1/sessions", `{"rows":2,"cols":2}`, other.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role = %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/v1/sessions", `{"rows":2,"cols":2}`, teacher.Token); rec.Code != http.StatusCreated {
		t.Fatalf("teacher = %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(e, http.MethodGet, "/v1/sessions/unknown/snapshot", "", teacher.Token); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session = %d", rec.Code)
	}
}

func TestArrangeLimiterIsScoped(t *testing.T) {
	hits := 0
	limit := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits++
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too_many_requests"})
		}
	}
	e := newServer(t, limit)
	teacher, _ := utils.NewAccessToken(secret, 1, model.RoleTeacher, 5)

	if rec := call(e, http.MethodPost, "/v1/sessions/x/arrange", `{"mode":"random"}`, teacher.Token); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("arrange = %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/v1/sessions/x/clear", `{}`, teacher.Token); rec.Code != http.StatusNotFound {
		t.Fatalf("clear = %d", rec.Code)
	}
	if hits != 1 {
		t.Fatalf("limiter ran %d times", hits)
	}
}
