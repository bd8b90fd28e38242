package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const erpOrigin = "https://erp.example.com"

// pingRouter answers GET and POST /ping behind the given middleware
func pingRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) }
	r.GET("/ping", ok)
	r.POST("/ping", ok)
	return r
}

func TestCORSWithConfig(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		credentials bool
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllow   string
		wantCreds   string
	}{
		{name: "configured origin", origins: []string{erpOrigin}, method: http.MethodGet, origin: erpOrigin, wantStatus: http.StatusOK, wantAllow: erpOrigin},
		{name: "foreign origin", origins: []string{erpOrigin}, method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusForbidden},
		{name: "nothing configured", method: http.MethodGet, origin: erpOrigin, wantStatus: http.StatusForbidden},
		{name: "same origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "wildcard drops credentials", origins: []string{"*"}, credentials: true, method: http.MethodGet, origin: "https://any.example.com", wantStatus: http.StatusOK, wantAllow: "*"},
		{name: "credentials with explicit origin", origins: []string{erpOrigin}, credentials: true, method: http.MethodGet, origin: erpOrigin, wantStatus: http.StatusOK, wantAllow: erpOrigin, wantCreds: "true"},
		{name: "preflight", origins: []string{erpOrigin}, method: http.MethodOptions, origin: erpOrigin, preflight: true, wantStatus: http.StatusNoContent, wantAllow: erpOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.AllowOrigins = tt.origins
			cfg.AllowCredentials = tt.credentials

			req := httptest.NewRequest(tt.method, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			pingRouter(CORSWithConfig(cfg)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.preflight {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
				assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
			} else if tt.wantAllow != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)
			}
		})
	}
}

func TestDefaultCORSConfig_LedgerSurface(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.ElementsMatch(t, []string{"GET", "POST", "DELETE", "OPTIONS"}, cfg.AllowMethods)
	assert.Contains(t, cfg.ExposeHeaders, "Content-Disposition", "exports are downloaded cross-origin")
	assert.Contains(t, cfg.ExposeHeaders, "X-RateLimit-Remaining")
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "intake-7f3a", true},
		{"longest accepted id kept", strings.Repeat("r", MaxRequestIDLength), true},
		{"oversized id replaced", strings.Repeat("r", MaxRequestIDLength+1), false},
	}

	r := pingRouter(RequestID())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ping", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String(), "handlers see the echoed id")
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestGetRequestID_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(c))

	c.Request.Header.Set(RequestIDHeader, strings.Repeat("b", 300))
	assert.Len(t, GetRequestID(c), MaxRequestIDLength)
}

func TestSecure(t *testing.T) {
	w := httptest.NewRecorder()
	pingRouter(Secure()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		assert.Equal(t, value, w.Header().Get(header), header)
	}
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Security-Policy"), "default-src 'none'"))
}
