package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 用户模型
type User struct {
	BaseModel
	UserUUID     string  `json:"user_uuid" gorm:"size:36;uniqueIndex"` // 创建时生成，不可变
	FullName     string  `json:"full_name" gorm:"not null;size:100"`
	Email        string  `json:"email" gorm:"unique;not null;size:100;index"` // 全局唯一，不可变
	PasswordHash string  `json:"-" gorm:"not null;size:255"`
	Phone        *string `json:"phone" gorm:"size:20"`
	UserType     string  `json:"user_type" gorm:"size:50;default:'STANDARD'"`
	Status       string  `json:"status" gorm:"default:'active';size:20"`
	TenantID     uint    `json:"tenant_id" gorm:"not null;index"` // 所属租户，不可变

	// 外部身份（Google）带来的资料元数据
	Profile datatypes.JSON `gorm:"type:json" json:"profile,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// 关联关系
	Tenant           *Tenant           `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	UserRoles        []UserRole        `gorm:"foreignKey:UserID" json:"user_roles,omitempty"`
	UserApplications []UserApplication `gorm:"foreignKey:UserID" json:"user_applications,omitempty"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// 用户类型常量
const (
	UserTypeStandard = "STANDARD"
	UserTypeService  = "SERVICE"
)

// GoogleAuthPlaceholder Google注册用户的密码占位符
// 不是合法的bcrypt哈希，CheckPassword对它永远返回false，
// 因此该凭证无法用于密码登录
const GoogleAuthPlaceholder = "GOOGLE_AUTH_USER"

// BeforeCreate UUID在首次持久化前生成一次
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserUUID == "" {
		u.UserUUID = uuid.NewString()
	}
	return nil
}

// IsActive 用户是否激活
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码 - 数据操作方法
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// UserRole 用户-角色关联
// 去重身份是(user, role)自然键而不是代理ID：
// 新构建未保存的关联必须与已持久化的等价关联判定为同一条
type UserRole struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID     uint       `gorm:"not null;uniqueIndex:idx_user_role" json:"role_id"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	AssignedAt time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// TableName 表名
func (UserRole) TableName() string {
	return "user_roles"
}

// SameGrant 按(user, role)自然键判定是否同一条授权
func (ur *UserRole) SameGrant(other *UserRole) bool {
	return ur.UserID == other.UserID && ur.RoleID == other.RoleID
}

// IsEffective 授权有效 = 激活 且 (无过期时间 或 未过期)
func (ur *UserRole) IsEffective(now time.Time) bool {
	if !ur.IsActive {
		return false
	}
	return ur.ExpiresAt == nil || ur.ExpiresAt.After(now)
}

// UserApplication 用户-应用关联，每(user, application)唯一
type UserApplication struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_application" json:"user_id"`
	ApplicationID uint      `gorm:"not null;uniqueIndex:idx_user_application" json:"application_id"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	AssignedAt    time.Time `gorm:"autoCreateTime" json:"assigned_at"`

	// 关联
	User             *User                 `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Application      *Application          `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	ModulePrivileges []UserModulePrivilege `gorm:"foreignKey:UserApplicationID" json:"module_privileges,omitempty"`
}

// TableName 表名
func (UserApplication) TableName() string {
	return "user_applications"
}

// UserModulePrivilege 用户应用-模块-权限三元关联
// 去重身份是(userApplication, module, privilege)三元自然键
type UserModulePrivilege struct {
	ID                uint `gorm:"primarykey" json:"id"`
	UserApplicationID uint `gorm:"not null;uniqueIndex:idx_ua_module_privilege" json:"user_application_id"`
	ModuleID          uint `gorm:"not null;uniqueIndex:idx_ua_module_privilege" json:"module_id"`
	PrivilegeID       uint `gorm:"not null;uniqueIndex:idx_ua_module_privilege" json:"privilege_id"`
	IsActive          bool `gorm:"not null;default:true" json:"is_active"`

	// 关联
	UserApplication *UserApplication `gorm:"foreignKey:UserApplicationID;constraint:OnDelete:CASCADE" json:"user_application,omitempty"`
	Module          *Module          `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
	Privilege       *Privilege       `gorm:"foreignKey:PrivilegeID" json:"privilege,omitempty"`
}

// TableName 表名
func (UserModulePrivilege) TableName() string {
	return "user_module_privileges"
}

// GrantKey 三元自然键，供集合去重使用
type GrantKey struct {
	UserApplicationID uint
	ModuleID          uint
	PrivilegeID       uint
}

// Key 返回该授权行的自然键
func (ump *UserModulePrivilege) Key() GrantKey {
	return GrantKey{
		UserApplicationID: ump.UserApplicationID,
		ModuleID:          ump.ModuleID,
		PrivilegeID:       ump.PrivilegeID,
	}
}
