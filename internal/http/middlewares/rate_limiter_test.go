package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *middlewares.RateLimiter, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/hit", rl.Middleware(), func(ctx *gin.Context) {
		ctx.JSON(status, gin.H{"ok": status < 400})
	})

	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hit", nil)
	req.RemoteAddr = ip + ":12345"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl := middlewares.NewRateLimiter("general", 3, time.Minute)
	r := limitedRouter(rl, http.StatusOK)

	for i := 0; i < 3; i++ {
		w := hit(r, "10.0.0.1")

		if w.Code != http.StatusOK {
			t.Fatalf("request %d got status %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	w := hit(r, "10.0.0.1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request over limit got status %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After header")
	}

	if !strings.Contains(w.Body.String(), `"rate_limited"`) {
		t.Fatalf("expected the rate_limited error envelope, got %s", w.Body.String())
	}

	// a different client is unaffected
	w = hit(r, "10.0.0.2")

	if w.Code != http.StatusOK {
		t.Fatalf("other client got status %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := middlewares.NewRateLimiter("general", 1, 50*time.Millisecond)
	r := limitedRouter(rl, http.StatusOK)

	if w := hit(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first request got %d", w.Code)
	}

	if w := hit(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request got %d, want 429", w.Code)
	}

	time.Sleep(60 * time.Millisecond)

	if w := hit(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("request after window elapsed got %d, want 200", w.Code)
	}
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tight := middlewares.NewRateLimiter("auth", 1, time.Minute)
	loose := middlewares.NewRateLimiter("general", 100, time.Minute)

	r := gin.New()
	r.POST("/tight", tight.Middleware(), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.POST("/loose", loose.Middleware(), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	do("/tight")

	if code := do("/tight"); code != http.StatusTooManyRequests {
		t.Fatalf("tight bucket should be throttled, got %d", code)
	}

	// same IP, other bucket still clear
	if code := do("/loose"); code != http.StatusOK {
		t.Fatalf("loose bucket should be clear, got %d", code)
	}
}

func TestRateLimiter_SuccessesExcluded(t *testing.T) {
	rl := middlewares.NewRateLimiter("auth", 2, time.Minute).ExcludingSuccesses()
	r := limitedRouter(rl, http.StatusOK)

	// successful attempts are refunded, so this never trips
	for i := 0; i < 10; i++ {
		w := hit(r, "10.0.0.1")

		if w.Code != http.StatusOK {
			t.Fatalf("successful request %d got %d", i+1, w.Code)
		}
	}
}

func TestRateLimiter_FailuresStillCount(t *testing.T) {
	rl := middlewares.NewRateLimiter("auth", 2, time.Minute).ExcludingSuccesses()
	r := limitedRouter(rl, http.StatusUnauthorized)

	hit(r, "10.0.0.1")
	hit(r, "10.0.0.1")

	w := hit(r, "10.0.0.1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third failed attempt got %d, want 429", w.Code)
	}
}
