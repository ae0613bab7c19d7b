package errors

import "errors"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// ========== 业务错误定义 ==========

// 令牌相关错误
var (
	ErrNoSigningSecret = errors.New("未配置JWT签名密钥")
	ErrInvalidToken    = errors.New("令牌无效")
	ErrTokenExpired    = errors.New("令牌已过期")
	ErrClaimExtraction = errors.New("令牌声明缺失或格式错误")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserInactive       = errors.New("用户已被停用")
)

// 租户/用户相关错误
var (
	ErrDuplicateEmail     = errors.New("邮箱已被注册")
	ErrInvalidApplication = errors.New("应用不存在")
	ErrTenantNotFound     = errors.New("租户不存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrRoleNotFound       = errors.New("角色不存在")
	ErrModuleNotFound     = errors.New("模块不存在")
	ErrPlanNotConfigured  = errors.New("默认订阅计划未配置")
	// 业务规则：SUPER_ADMIN用户不允许被停用
	ErrSuperAdminProtected = errors.New("不能停用超级管理员用户")
)

// Is 包装标准库errors.Is，方便handlers统一判定
func Is(err, target error) bool {
	return errors.Is(err, target)
}
