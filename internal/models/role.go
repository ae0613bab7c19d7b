package models

// Role 角色模型
type Role struct {
	BaseModel
	TenantID     uint   `gorm:"not null;index;uniqueIndex:idx_tenant_role_name" json:"tenant_id"` // 所属租户
	RoleKey      string `gorm:"size:100;not null" json:"role_key"`                                // 角色Key，如 "SUPER_ADMIN"
	RoleName     string `gorm:"size:100;not null;uniqueIndex:idx_tenant_role_name" json:"role_name"`
	Description  string `gorm:"size:255" json:"description"`
	IsSystemRole bool   `gorm:"default:false" json:"is_system_role"` // 系统角色不可删除
	Status       string `gorm:"size:20;default:'active'" json:"status"`

	// 关联关系
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 表名
func (Role) TableName() string {
	return "roles"
}

// 角色状态常量
const (
	RoleStatusActive   = "active"
	RoleStatusInactive = "inactive"
)

// 系统预定义角色Key
const (
	RoleKeySuperAdmin = "SUPER_ADMIN" // 租户超级管理员，不可被停用
)

// IsActive 角色是否激活
func (r *Role) IsActive() bool {
	return r.Status == RoleStatusActive
}
