package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ezauth/internal/middleware"
	"ezauth/internal/services"
	"ezauth/pkg/response"
)

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
	AppKey  string `json:"app_key"`
}

type AuthHandler struct {
	service *services.AuthService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		service: services.NewAuthService(),
	}
}

// SignIn 密码登录
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, user, err := h.service.SignIn(req.Email, req.Password)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"tokens": pair,
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"tenant_id": user.TenantID,
		},
	})
}

// GoogleSignIn Google登录（找不到账号时自动注册个人租户）
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, user, err := h.service.SignInWithGoogle(c.Request.Context(), req.IDToken, req.AppKey)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"tokens": pair,
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"tenant_id": user.TenantID,
		},
	})
}

// RefreshToken 刷新令牌对
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, err := h.service.RefreshToken(req.RefreshToken)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, pair)
}

// ValidateToken 校验访问令牌
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		response.Unauthorized(c, "缺少令牌")
		return
	}

	if !h.service.ValidateAccessToken(tokenString) {
		response.Unauthorized(c, "令牌无效或已过期")
		return
	}

	response.Success(c, gin.H{"valid": true})
}

// InitUser 用户初始化：返回身份、角色和按应用归并的权限快照
func (h *AuthHandler) InitUser(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		response.Unauthorized(c, "缺少令牌")
		return
	}

	init, err := h.service.InitUser(tokenString)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, init)
}

// CurrentIdentity 返回认证中间件解析出的当前身份
func (h *AuthHandler) CurrentIdentity(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		response.Unauthorized(c, "请先登录")
		return
	}
	response.Success(c, identity)
}

// bearerToken 从Authorization头提取Bearer令牌
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return authHeader[7:]
}
