package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":" Finance.Lead "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("username")(c)
	if key != "finance.lead|1.2.3.4" {
		t.Fatalf("key want finance.lead|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Finance.Lead") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestReadJSONFieldIgnoresNonString(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":42}`))
	c.Request.RemoteAddr = "5.6.7.8:1234"

	if got := KeyByIPAndJSONField("username")(c); got != "5.6.7.8" {
		t.Fatalf("non-string field should fall back to ip, got %s", got)
	}
}

func TestRateLimitRuleMessage(t *testing.T) {
	rule := RateLimitRule{Prefix: "fin:rate:admin_login", WindowSeconds: 60, MaxRequests: 5}
	if got := rule.key("a|1.1.1.1"); got != "fin:rate:admin_login:a|1.1.1.1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := rule.rejectMessage(12); got != "too many requests, retry in 12 seconds" {
		t.Fatalf("unexpected default message: %s", got)
	}
	rule.Message = "登录过于频繁，请 %d 秒后重试"
	if got := rule.rejectMessage(3); got != "登录过于频繁，请 3 秒后重试" {
		t.Fatalf("unexpected custom message: %s", got)
	}
	if (RateLimitRule{MaxRequests: 1}).enabled() {
		t.Fatalf("rule without window should be disabled")
	}
}
