package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezauth/pkg/jwt"
)

func TestMain(m *testing.M) {
	// 认证中间件依赖全局JWT管理器，密钥必须在首次使用前就位
	os.Setenv("JWT_SECRET_KEY", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newIdentityEchoRouter 把认证结果暴露为JSON，便于断言
func newIdentityEchoRouter() (*gin.Engine, *httptest.ResponseRecorder) {
	router := gin.New()
	router.Use(Authenticate())
	router.GET("/whoami", func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"anonymous": false,
			"user_id":   identity.UserID,
			"tenant_id": identity.TenantID,
			"email":     identity.Email,
			"roles":     identity.Roles,
		})
	})
	return router, httptest.NewRecorder()
}

func TestAuthenticateNoHeaderIsAnonymous(t *testing.T) {
	router, w := newIdentityEchoRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestAuthenticateGarbageTokenIsAnonymous(t *testing.T) {
	router, w := newIdentityEchoRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	router.ServeHTTP(w, req)

	// 无效令牌静默放行为匿名，不返回错误
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestAuthenticateMalformedHeaderIsAnonymous(t *testing.T) {
	router, w := newIdentityEchoRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestAuthenticateValidAccessTokenPopulatesIdentity(t *testing.T) {
	router, w := newIdentityEchoRouter()

	token, err := jwt.GetJWTManager().GenerateAccessToken(42, "admin@acme.com", 7, "STANDARD", "ADMIN,VIEWER")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"anonymous":false`)
	assert.Contains(t, body, `"user_id":42`)
	assert.Contains(t, body, `"tenant_id":7`)
	assert.Contains(t, body, `"email":"admin@acme.com"`)
	assert.Contains(t, body, `"ADMIN"`)
}

func TestAuthenticateRejectsRefreshTokenAsAccess(t *testing.T) {
	router, w := newIdentityEchoRouter()

	token, err := jwt.GetJWTManager().GenerateRefreshToken(42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	// 刷新令牌不能当访问令牌用
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestRequireLoginBlocksAnonymous(t *testing.T) {
	router := gin.New()
	router.Use(Authenticate())

	auth := &AuthMiddleware{}
	router.GET("/protected", auth.RequireLogin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "请先登录")
}

func TestRequireSuperAdmin(t *testing.T) {
	router := gin.New()
	router.Use(Authenticate())

	auth := &AuthMiddleware{}
	router.GET("/admin", auth.RequireSuperAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	superToken, err := jwt.GetJWTManager().GenerateAccessToken(1, "root@acme.com", 1, "STANDARD", "SUPER_ADMIN")
	require.NoError(t, err)
	regularToken, err := jwt.GetJWTManager().GenerateAccessToken(2, "user@acme.com", 1, "STANDARD", "VIEWER")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+superToken)
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"ok":true`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+regularToken)
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "需要超级管理员权限")
}
