package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ezauth/internal/services"
	"ezauth/pkg/jwt"
	"ezauth/pkg/response"
)

// 身份信息的上下文键
const identityContextKey = "auth_identity"

// Identity 请求级身份信息，由Authenticate填充
type Identity struct {
	UserID   uint
	TenantID uint
	Email    string
	UserType string
	Roles    []string
}

// Authenticate 静默认证中间件
//
// 从Authorization头提取Bearer令牌并解析身份。认证失败不终止请求：
// 无令牌、格式错误、签名无效、已过期、非访问令牌一律按匿名放行，
// 由后续的RequireLogin/RequirePrivilege决定是否拒绝
func Authenticate() gin.HandlerFunc {
	jwtManager := jwt.GetJWTManager()

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}
		tokenString := authHeader[7:]

		// 必须是有效且未过期的访问令牌，刷新令牌不能当访问令牌用
		if !jwtManager.ValidateToken(tokenString) || !jwtManager.IsAccessToken(tokenString) {
			c.Next()
			return
		}

		userID, err := jwtManager.GetUserIDFromToken(tokenString)
		if err != nil {
			c.Next()
			return
		}
		tenantID, err := jwtManager.GetTenantIDFromToken(tokenString)
		if err != nil {
			c.Next()
			return
		}
		email, err := jwtManager.GetEmailFromToken(tokenString)
		if err != nil {
			c.Next()
			return
		}
		userType, _ := jwtManager.GetUserTypeFromToken(tokenString)
		rolesStr, _ := jwtManager.GetRolesFromToken(tokenString)

		identity := &Identity{
			UserID:   userID,
			TenantID: tenantID,
			Email:    email,
			UserType: userType,
		}
		if rolesStr != "" {
			identity.Roles = strings.Split(rolesStr, ",")
		}

		c.Set(identityContextKey, identity)
		c.Set("user_id", userID)
		c.Set("tenant_id", tenantID)

		c.Next()
	}
}

// CurrentIdentity 从上下文取当前身份，匿名请求返回nil
func CurrentIdentity(c *gin.Context) *Identity {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// AuthMiddleware 权限中间件
type AuthMiddleware struct {
	userService *services.UserService
}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{
		userService: services.NewUserService(),
	}
}

// RequireLogin 要求已认证身份
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c) == nil {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePrivilege 要求特定应用/模块/权限
// 权限快照经用户初始化缓存获取，重复鉴权不打数据库
func (m *AuthMiddleware) RequirePrivilege(appKey, moduleKey, privilegeKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		init, err := services.GetUserInitCache().Get(identity.UserID, func() (*services.UserInitResponse, error) {
			return m.userService.GetUserInitDetails(identity.UserID)
		})
		if err != nil {
			response.ServerError(c, "权限检查失败")
			c.Abort()
			return
		}

		if !hasPrivilege(init, appKey, moduleKey, privilegeKey) {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSuperAdmin 要求超级管理员角色
func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		for _, role := range identity.Roles {
			if role == "SUPER_ADMIN" {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "需要超级管理员权限")
		c.Abort()
	}
}

func hasPrivilege(init *services.UserInitResponse, appKey, moduleKey, privilegeKey string) bool {
	for i := range init.Apps {
		app := &init.Apps[i]
		if app.AppKey != appKey || !app.IsActive {
			continue
		}
		for _, key := range app.ModulePrivileges[moduleKey] {
			if key == privilegeKey {
				return true
			}
		}
	}
	return false
}
