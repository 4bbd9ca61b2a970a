package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/classroom-seating/internal/config"
	"github.com/iliyamo/classroom-seating/internal/utils"
)

const testSecret = "test-secret"

func okHandler(c echo.Context) error {
	id, _ := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": c.Get("role")})
}

func serve(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", okHandler, JWTAuth(testSecret), RequireRole("TEACHER"))
	e.GET("/admin", okHandler, JWTAuth(testSecret), RequireRole("ADMIN"))

	teacher, err := utils.NewAccessToken(testSecret, 12, "TEACHER", 5)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := utils.NewAccessToken("other", 12, "TEACHER", 5)

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   int
	}{
		{"no header", "/me", nil, http.StatusUnauthorized},
		{"not bearer", "/me", http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized},
		{"forged", "/me", http.Header{"Authorization": {"Bearer " + forged.Token}}, http.StatusUnauthorized},
		{"valid", "/me", http.Header{"Authorization": {"Bearer " + teacher.Token}}, http.StatusOK},
		{"wrong role", "/admin", http.Header{"Authorization": {"Bearer " + teacher.Token}}, http.StatusForbidden},
		{"query token without upgrade", "/me?access_token=" + teacher.Token, nil, http.StatusUnauthorized},
		{"query token on upgrade", "/me?access_token=" + teacher.Token, http.Header{"Upgrade": {"websocket"}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, tt.header)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", id)
			return next(c)
		}
	}
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
	e := echo.New()
	limit := NewTokenBucket(cfg, rdb)
	e.POST("/v1/sessions/:id/arrange", okHandler, asUser(1), limit)
	e.POST("/v1/other/:id/arrange", okHandler, asUser(2), limit)

	for i := 0; i < 2; i++ {
		if rec := serve(e, http.MethodPost, "/v1/sessions/a/arrange", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := serve(e, http.MethodPost, "/v1/sessions/b/arrange", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if !mr.Exists("rl:user:1:route:POST /v1/sessions/:id/arrange") {
		t.Fatalf("bucket key missing, have %v", mr.Keys())
	}

	// another user on another route has its own bucket
	if rec := serve(e, http.MethodPost, "/v1/other/a/arrange", nil); rec.Code != http.StatusOK {
		t.Fatalf("other bucket status = %d", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.POST("/arrange", okHandler, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodPost, "/arrange", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/arrange", okHandler, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodPost, "/arrange", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}
