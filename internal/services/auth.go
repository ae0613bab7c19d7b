package services

import (
	"context"
	"time"

	"ezauth/internal/models"
	"ezauth/pkg/errors"
	"ezauth/pkg/jwt"
	"ezauth/pkg/logger"
)

// AuthService 认证服务
type AuthService struct {
	jwtManager    *jwt.JWTManager
	userService   *UserService
	tenantService *TenantService
	authz         *AuthorizationService
	verifier      IDTokenVerifier
}

func NewAuthService() *AuthService {
	return &AuthService{
		jwtManager:    jwt.GetJWTManager(),
		userService:   NewUserService(),
		tenantService: NewTenantService(),
		authz:         NewAuthorizationService(),
		verifier:      NewGoogleTokenVerifier(),
	}
}

// TokenPair 签发的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // 访问令牌有效期（秒）
}

// SignIn 密码登录
// 统一返回凭证无效错误，不区分"用户不存在"与"密码错误"
func (s *AuthService) SignIn(email, password string) (*TokenPair, *models.User, error) {
	user, err := s.authz.LoadUserByEmail(email)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, nil, errors.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !user.IsActive() {
		return nil, nil, errors.ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, nil, errors.ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userService.UpdateLastLogin(user.ID); err != nil {
		logger.GetLogger().Warnf("更新最近登录时间失败 user_id=%d: %v", user.ID, err)
	}

	return pair, user, nil
}

// SignInWithGoogle Google登录：验证ID Token，找不到用户时自动注册个人租户
func (s *AuthService) SignInWithGoogle(ctx context.Context, idToken, appKey string) (*TokenPair, *models.User, error) {
	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.tenantService.RegisterGoogle(profile.Email, profile.Name, profile.PictureURL, appKey)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive() {
		return nil, nil, errors.ErrUserInactive
	}

	// 重新加载以获得角色关联
	loaded, err := s.authz.LoadUserForAuthorization(user.ID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokenPair(loaded)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userService.UpdateLastLogin(loaded.ID); err != nil {
		logger.GetLogger().Warnf("更新最近登录时间失败 user_id=%d: %v", loaded.ID, err)
	}

	return pair, loaded, nil
}

// RefreshToken 用刷新令牌换新令牌对
// 角色从数据库重新推导而不是复用旧令牌声明，保证角色变更即时生效
func (s *AuthService) RefreshToken(refreshToken string) (*TokenPair, error) {
	if !s.jwtManager.ValidateToken(refreshToken) {
		return nil, errors.ErrInvalidToken
	}
	if !s.jwtManager.IsRefreshToken(refreshToken) {
		return nil, errors.ErrInvalidToken
	}

	userID, err := s.jwtManager.GetUserIDFromToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.authz.LoadUserForAuthorization(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, errors.ErrUserInactive
	}

	return s.issueTokenPair(user)
}

// ValidateAccessToken 校验访问令牌（有效 且 类型为ACCESS）
func (s *AuthService) ValidateAccessToken(tokenString string) bool {
	return s.jwtManager.ValidateToken(tokenString) && s.jwtManager.IsAccessToken(tokenString)
}

// InitUser 用户初始化：从访问令牌解析用户ID，经缓存返回初始化快照
func (s *AuthService) InitUser(tokenString string) (*UserInitResponse, error) {
	if !s.ValidateAccessToken(tokenString) {
		return nil, errors.ErrInvalidToken
	}

	userID, err := s.jwtManager.GetUserIDFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	return GetUserInitCache().Get(userID, func() (*UserInitResponse, error) {
		return s.userService.GetUserInitDetails(userID)
	})
}

// issueTokenPair 为用户签发访问+刷新令牌对
func (s *AuthService) issueTokenPair(user *models.User) (*TokenPair, error) {
	roles := RoleKeysOf(user)

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.TenantID, user.UserType, roles)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.GetAccessDuration() / time.Second),
	}, nil
}
