package jwt

import (
	"ezauth/pkg/config"
	"ezauth/pkg/errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌类型常量
const (
	TokenTypeAccess  = "ACCESS"
	TokenTypeRefresh = "REFRESH"
)

// AuthClaims JWT声明
// 访问令牌携带完整身份声明；刷新令牌只携带subject和type，
// 授权信息在刷新时重新从数据库推导，避免角色变更后的陈旧声明
type AuthClaims struct {
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
	UserType string `json:"userType,omitempty"`
	Roles    string `json:"roles,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey       string
	accessDuration  time.Duration
	refreshDuration time.Duration
}

// NewJWTManager 创建JWT管理器，密钥缺失视为部署配置错误
func NewJWTManager(secretKey string, accessDuration, refreshDuration time.Duration) (*JWTManager, error) {
	if secretKey == "" {
		return nil, errors.ErrNoSigningSecret
	}
	return &JWTManager{
		secretKey:       secretKey,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}, nil
}

// GenerateAccessToken 生成访问令牌
func (manager *JWTManager) GenerateAccessToken(userID uint, email string, tenantID uint, userType, roles string) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Email:    email,
		TenantID: strconv.FormatUint(uint64(tenantID), 10),
		UserType: userType,
		Roles:    roles,
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(manager.accessDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// GenerateRefreshToken 生成刷新令牌（最小声明集）
func (manager *JWTManager) GenerateRefreshToken(userID uint) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Type: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(manager.refreshDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// Decode 解析并校验签名，不校验过期时间
// 过期判断由IsExpired单独承担，调用方由此能区分"被篡改"和"已过期"
func (manager *JWTManager) Decode(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&AuthClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// 验证签名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: 意外的签名方法", errors.ErrInvalidToken)
			}
			return []byte(manager.secretKey), nil
		},
		jwt.WithoutClaimsValidation(),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}

	return claims, nil
}

// IsExpired 判断令牌是否过期，任何解析失败一律视为过期（fail-closed）
func (manager *JWTManager) IsExpired(tokenString string) bool {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(time.Now())
}

// ValidateToken 令牌有效 = 签名完整 且 未过期
func (manager *JWTManager) ValidateToken(tokenString string) bool {
	if _, err := manager.Decode(tokenString); err != nil {
		return false
	}
	return !manager.IsExpired(tokenString)
}

// IsAccessToken 是否访问令牌，解析失败返回false而不抛错
func (manager *JWTManager) IsAccessToken(tokenString string) bool {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return false
	}
	return claims.Type == TokenTypeAccess
}

// IsRefreshToken 是否刷新令牌
func (manager *JWTManager) IsRefreshToken(tokenString string) bool {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return false
	}
	return claims.Type == TokenTypeRefresh
}

// ========== 类型化声明提取 ==========

// GetUserIDFromToken 提取用户ID（subject声明）
func (manager *JWTManager) GetUserIDFromToken(tokenString string) (uint, error) {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrClaimExtraction, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: subject不是合法的用户ID", errors.ErrClaimExtraction)
	}
	return uint(id), nil
}

// GetTenantIDFromToken 提取租户ID
func (manager *JWTManager) GetTenantIDFromToken(tokenString string) (uint, error) {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrClaimExtraction, err)
	}
	if claims.TenantID == "" {
		return 0, fmt.Errorf("%w: 缺少tenantId声明", errors.ErrClaimExtraction)
	}
	id, err := strconv.ParseUint(claims.TenantID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: tenantId不是合法的租户ID", errors.ErrClaimExtraction)
	}
	return uint(id), nil
}

// GetEmailFromToken 提取邮箱
func (manager *JWTManager) GetEmailFromToken(tokenString string) (string, error) {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrClaimExtraction, err)
	}
	if claims.Email == "" {
		return "", fmt.Errorf("%w: 缺少email声明", errors.ErrClaimExtraction)
	}
	return claims.Email, nil
}

// GetUserTypeFromToken 提取用户类型
func (manager *JWTManager) GetUserTypeFromToken(tokenString string) (string, error) {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrClaimExtraction, err)
	}
	return claims.UserType, nil
}

// GetRolesFromToken 提取角色Key串（逗号分隔）
func (manager *JWTManager) GetRolesFromToken(tokenString string) (string, error) {
	claims, err := manager.Decode(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrClaimExtraction, err)
	}
	return claims.Roles, nil
}

// GetAccessDuration 获取访问令牌有效期
func (manager *JWTManager) GetAccessDuration() time.Duration {
	return manager.accessDuration
}

// 单例实现
var (
	defaultManager *JWTManager
	once           sync.Once
	initErr        error
)

// Initialize 从配置初始化全局JWT管理器，密钥缺失在启动期即失败
func Initialize(cfg *config.Config) error {
	once.Do(func() {
		accessDuration, err := time.ParseDuration(cfg.JWT.AccessDuration)
		if err != nil {
			accessDuration = time.Hour
		}
		refreshDuration, err := time.ParseDuration(cfg.JWT.RefreshDuration)
		if err != nil {
			refreshDuration = 7 * 24 * time.Hour
		}
		defaultManager, initErr = NewJWTManager(cfg.JWT.SecretKey, accessDuration, refreshDuration)
	})
	return initErr
}

// GetJWTManager 获取全局JWT管理器实例
func GetJWTManager() *JWTManager {
	if defaultManager == nil {
		if err := Initialize(config.GetConfig()); err != nil {
			panic("JWT manager initialization failed: " + err.Error())
		}
	}
	return defaultManager
}
