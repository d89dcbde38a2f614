package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"Aethena/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

func newRouter(t *testing.T, capacity int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter, err := ratelimiter.NewKeyedTokenBucket(0, capacity, 100)
	if err != nil {
		t.Fatalf("NewKeyedTokenBucket() error = %v", err)
	}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if tenant := c.GetHeader("X-Tenant"); tenant != "" {
			c.Set("tenantID", tenant)
		}
		c.Next()
	})
	r.Use(RateLimit(limiter, TenantOrIP))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, tenant string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tenant != "" {
		req.Header.Set("X-Tenant", tenant)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitPerTenant(t *testing.T) {
	r := newRouter(t, 2)

	for i := 0; i < 2; i++ {
		if code := do(r, "a"); code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := do(r, "a"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once tenant a is exhausted, got %d", code)
	}
	if code := do(r, "b"); code != http.StatusOK {
		t.Errorf("tenant b should have its own bucket, got %d", code)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	r := newRouter(t, 1)
	if code := do(r, ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := do(r, ""); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the same IP, got %d", code)
	}
}
