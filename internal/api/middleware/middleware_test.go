package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	pkgcasbin "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/casbin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens() *auth.TokenService {
	return auth.NewTokenService(config.SecurityConfig{JWTSecret: "middleware-secret"})
}

func token(t *testing.T, tokens *auth.TokenService, identity model.Identity) string {
	t.Helper()
	s, err := tokens.GenerateToken(identity, time.Hour)
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokens()
	r := gin.New()
	r.Use(AuthMiddleware(tokens))
	r.GET("/whoami", func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		require.True(t, ok)
		employeeID, _ := c.Get(ContextEmployeeID)
		c.JSON(http.StatusOK, gin.H{"id": identity.EmployeeID, "email": identity.Email, "ctx": employeeID})
	})

	valid := token(t, tokens, model.Identity{EmployeeID: 5, Email: "kim@hrhub.test"})
	tests := []struct {
		name   string
		header string
		userID string
		code   int
		body   string
	}{
		{"missing header", "", "", http.StatusUnauthorized, ""},
		{"no bearer prefix", valid, "", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"spoofed header only", "", "1", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + valid, "", http.StatusOK, `{"id":5,"email":"kim@hrhub.test","ctx":5}`},
		{"valid with spoofed header", "Bearer " + valid, "1", http.StatusOK, `{"id":5,"email":"kim@hrhub.test","ctx":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.userID != "" {
				req.Header.Set("X-User-Id", tt.userID)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func newEnforcer(t *testing.T) *casbin.SyncedCachedEnforcer {
	t.Helper()
	e, err := casbin.NewSyncedCachedEnforcer(pkgcasbin.NewModel())
	require.NoError(t, err)
	_, err = e.AddPolicies(pkgcasbin.DefaultPolicies())
	require.NoError(t, err)
	return e
}

func TestPermissionMiddleware(t *testing.T) {
	tokens := newTokens()
	r := gin.New()
	r.Use(AuthMiddleware(tokens), PermissionMiddleware(newEnforcer(t)))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/templates/:id", ok)
	r.PUT("/api/templates/:id", ok)
	r.POST("/api/templates/:id/validate", ok)
	r.DELETE("/api/template-categories/:id", ok)

	employee := token(t, tokens, model.Identity{EmployeeID: 5, Role: "user"})
	admin := token(t, tokens, model.Identity{EmployeeID: 1, Role: pkgcasbin.RoleAdmin})

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		code   int
	}{
		{"employee reads", employee, http.MethodGet, "/api/templates/3", http.StatusOK},
		{"employee validates", employee, http.MethodPost, "/api/templates/3/validate", http.StatusOK},
		{"employee cannot update", employee, http.MethodPut, "/api/templates/3", http.StatusForbidden},
		{"employee cannot delete category", employee, http.MethodDelete, "/api/template-categories/1", http.StatusForbidden},
		{"admin updates", admin, http.MethodPut, "/api/templates/3", http.StatusOK},
		{"admin deletes category", admin, http.MethodDelete, "/api/template-categories/1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

type failingEnforcer struct{}

func (failingEnforcer) Enforce(...interface{}) (bool, error) {
	return false, errors.New("adapter closed")
}

func TestPermissionMiddlewareEnforcerError(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(contextIdentity, model.Identity{EmployeeID: 1})
	}, PermissionMiddleware(failingEnforcer{}))
	r.GET("/api/templates", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("secret detail") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(), MetricsMiddleware())
	r.GET("/api/documents", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "https://hr.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hr.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
