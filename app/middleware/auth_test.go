package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpulse/pkg/config"
)

const testSecret = "unit-test-secret"

func newAuthRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	previous := config.GlobalConfig
	config.GlobalConfig = cfg
	t.Cleanup(func() { config.GlobalConfig = previous })

	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		email := c.GetString(IdentityKey)
		c.JSON(http.StatusOK, gin.H{"email": email})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	allowCfg := &config.Config{}
	allowCfg.Auth.JWTSecret = testSecret
	allowCfg.Auth.AllowedEmails = []string{"ops@example.com", "Admin@Example.com"}

	tests := []struct {
		name       string
		email      string
		secret     string
		ttl        time.Duration
		noToken    bool
		wantStatus int
	}{
		{
			name:       "allowed email",
			email:      "ops@example.com",
			secret:     testSecret,
			ttl:        time.Hour,
			wantStatus: http.StatusOK,
		},
		{
			name:       "allow-list match is case-insensitive",
			email:      "admin@example.com",
			secret:     testSecret,
			ttl:        time.Hour,
			wantStatus: http.StatusOK,
		},
		{
			name:       "email not in allow-list",
			email:      "intruder@example.com",
			secret:     testSecret,
			ttl:        time.Hour,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrong signing secret",
			email:      "ops@example.com",
			secret:     "some-other-secret",
			ttl:        time.Hour,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			email:      "ops@example.com",
			secret:     testSecret,
			ttl:        -time.Minute,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			noToken:    true,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(t, allowCfg)

			var token string
			if !tt.noToken {
				var err error
				token, err = GenerateToken(tt.secret, tt.email, tt.ttl)
				require.NoError(t, err)
			}

			w := doRequest(r, token)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthMiddlewareNoSecretSkipsAuth(t *testing.T) {
	r := newAuthRouter(t, &config.Config{})

	w := doRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareEmptyAllowListAdmitsAnyAuthenticated(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	r := newAuthRouter(t, cfg)

	token, err := GenerateToken(testSecret, "anyone@example.com", time.Hour)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anyone@example.com")
}

func TestAuthMiddlewareTokenWithoutEmailClaim(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	r := newAuthRouter(t, cfg)

	token, err := GenerateToken(testSecret, "", time.Hour)
	require.NoError(t, err)

	w := doRequest(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
