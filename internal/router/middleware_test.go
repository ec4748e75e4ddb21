package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/authz"
	"github.com/lingxi-works/fincore/internal/config"
	"github.com/lingxi-works/fincore/internal/http/response"
	"github.com/lingxi-works/fincore/internal/models"
	"github.com/lingxi-works/fincore/internal/repository"
	"github.com/lingxi-works/fincore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": response.RequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func setupMiddlewareAuth(t *testing.T) (*service.AuthService, *authz.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "middleware-test-secret", ExpireHours: 1}}
	authService := service.NewAuthService(cfg, repository.NewAdminRepository(db))
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return authService, authzService, db
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestJWTAuthMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestJWTAuthMiddlewareTokenVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authService, _, db := setupMiddlewareAuth(t)

	admin := &models.Admin{Username: "cashier", PasswordHash: "x"}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	token, _, err := authService.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}

	r := gin.New()
	r.Use(JWTAuthMiddleware(authService))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "admin_id": c.GetUint(adminIDContextKey)})
	})

	call := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w
	}

	w := call()
	if code := decodeStatusCode(t, w); code != 0 {
		t.Fatalf("valid token should pass, got status_code %d body %s", code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), fmt.Sprintf(`"admin_id":%d`, admin.ID)) {
		t.Fatalf("admin id should be set in context, body %s", w.Body.String())
	}

	if err := db.Model(&models.Admin{}).Where("id = ?", admin.ID).Update("token_version", 1).Error; err != nil {
		t.Fatalf("bump token version failed: %v", err)
	}
	if code := decodeStatusCode(t, call()); code != 401 {
		t.Fatalf("revoked token should be rejected, got %d", code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("malformed header should be rejected, got %d", code)
	}
}

func TestAdminRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, authzService, _ := setupMiddlewareAuth(t)
	if _, err := authzService.SetAdminRoles(7, []string{authz.RoleReadonlyAuditor}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}

	build := func(adminID uint, isSuper bool) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(adminIDContextKey, adminID)
			c.Set(adminIsSuperContextKey, isSuper)
			c.Next()
		})
		r.Use(AdminRBACMiddleware(authzService))
		handler := func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status_code": 0})
		}
		r.GET("/api/v1/admin/finance/contracts", handler)
		r.POST("/api/v1/admin/finance/receipts", handler)
		return r
	}

	cases := []struct {
		name    string
		adminID uint
		isSuper bool
		method  string
		path    string
		want    int
	}{
		{name: "auditor read", adminID: 7, method: http.MethodGet, path: "/api/v1/admin/finance/contracts", want: 0},
		{name: "auditor write denied", adminID: 7, method: http.MethodPost, path: "/api/v1/admin/finance/receipts", want: 403},
		{name: "no role denied", adminID: 8, method: http.MethodGet, path: "/api/v1/admin/finance/contracts", want: 403},
		{name: "super bypass", adminID: 9, isSuper: true, method: http.MethodPost, path: "/api/v1/admin/finance/receipts", want: 0},
		{name: "missing admin", adminID: 0, method: http.MethodGet, path: "/api/v1/admin/finance/contracts", want: 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			build(tc.adminID, tc.isSuper).ServeHTTP(w, req)
			if code := decodeStatusCode(t, w); code != tc.want {
				t.Fatalf("status_code want %d got %d body %s", tc.want, code, w.Body.String())
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer  abc ", token: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range cases {
		token, ok := bearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("header %q: want (%q,%v) got (%q,%v)", tc.header, tc.token, tc.ok, token, ok)
		}
	}
}

func TestRequestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestTimeoutMiddleware(time.Minute))
	r.GET("/ping", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"has_deadline": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if !resp["has_deadline"] {
		t.Fatalf("request context should carry a deadline")
	}
}
