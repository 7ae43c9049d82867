package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/finportal/marketing-console-backend/internal/models"
)

type mockAPIKeyValidator struct {
	mock.Mock
}

func (m *mockAPIKeyValidator) ValidateAPIKey(ctx context.Context, raw string) (*models.Project, error) {
	args := m.Called(ctx, raw)
	if p := args.Get(0); p != nil {
		return p.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokenValidator struct {
	mock.Mock
}

func (m *mockTokenValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Project, *models.TokenInfo, error) {
	args := m.Called(ctx, tokenString)
	if p := args.Get(0); p != nil {
		return p.(*models.Project), args.Get(1).(*models.TokenInfo), args.Error(2)
	}
	return nil, nil, args.Error(2)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(keys APIKeyValidator, tokens TokenValidator) *gin.Engine {
	r := gin.New()
	r.Use(NewAPIKeyMiddleware(keys).APIKeyAuthMiddleware())
	r.Use(NewBearerTokenMiddleware(tokens).BearerTokenAuthMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		tenant := c.MustGet("tenant").(models.Tenant)
		c.JSON(http.StatusOK, gin.H{"project_id": tenant.ProjectID, "auth_type": c.GetString("auth_type")})
	})
	return r
}

func TestAuthMiddlewareChain(t *testing.T) {
	project := &models.Project{ID: "p1", Timezone: "Asia/Ho_Chi_Minh"}

	tests := []struct {
		name       string
		header     string
		setup      func(*mockAPIKeyValidator, *mockTokenValidator)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Authorization header is required",
		},
		{
			name:   "valid api key",
			header: "ApiKey mk_abc.secret",
			setup: func(k *mockAPIKeyValidator, _ *mockTokenValidator) {
				k.On("ValidateAPIKey", mock.Anything, "mk_abc.secret").Return(project, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"auth_type":"api_key"`,
		},
		{
			name:   "revoked api key",
			header: "ApiKey mk_abc.secret",
			setup: func(k *mockAPIKeyValidator, _ *mockTokenValidator) {
				k.On("ValidateAPIKey", mock.Anything, "mk_abc.secret").Return(nil, errors.New("API key is inactive"))
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "API key is inactive",
		},
		{
			name:       "empty api key",
			header:     "ApiKey   ",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid API key format",
		},
		{
			name:   "valid bearer token",
			header: "Bearer tok",
			setup: func(_ *mockAPIKeyValidator, tv *mockTokenValidator) {
				tv.On("ValidateToken", mock.Anything, "tok").Return(project, &models.TokenInfo{ProjectID: "p1"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"auth_type":"bearer"`,
		},
		{
			name:   "expired bearer token",
			header: "Bearer tok",
			setup: func(_ *mockAPIKeyValidator, tv *mockTokenValidator) {
				tv.On("ValidateToken", mock.Anything, "tok").Return(nil, nil, errors.New("token is expired"))
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid or expired token",
		},
		{
			name:       "unknown scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid authorization header format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := &mockAPIKeyValidator{}
			tokens := &mockTokenValidator{}
			if tt.setup != nil {
				tt.setup(keys, tokens)
			}

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authRouter(keys, tokens).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			keys.AssertExpectations(t)
			tokens.AssertExpectations(t)
		})
	}
}

func TestAdminTokenMiddleware(t *testing.T) {
	newRouter := func(token string) *gin.Engine {
		r := gin.New()
		r.Use(AdminTokenMiddleware(token))
		r.GET("/admin/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		return r
	}
	do := func(r *gin.Engine, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		if header != "" {
			req.Header.Set("X-Admin-Token", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, do(newRouter(""), "anything").Code)

	r := newRouter("s3cret")
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "wrong").Code)
	w := do(r, "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestLoggerSkipsEventStreams(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/v1/campaigns/:id/events", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/c1/events", nil))
	assert.Empty(t, hook.AllEntries())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	if assert.Len(t, hook.AllEntries(), 1) {
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		assert.Equal(t, "/boom", hook.LastEntry().Data["path"])
	}
}
