package models

// Application 应用目录 - 全局目录，不属于任何租户
type Application struct {
	BaseModel
	AppKey      string `gorm:"uniqueIndex;size:100;not null" json:"app_key"` // 应用Key，如 "EZH_INV_001"
	AppName     string `gorm:"size:100;not null" json:"app_name"`
	Description string `gorm:"size:255" json:"description"`
	Status      string `gorm:"size:20;default:'active'" json:"status"`

	// 关联关系
	Modules []Module `gorm:"foreignKey:ApplicationID" json:"modules,omitempty"`
}

// TableName 表名
func (Application) TableName() string {
	return "applications"
}

// 应用状态常量
const (
	ApplicationStatusActive   = "active"
	ApplicationStatusInactive = "inactive"
)

// IsActive 应用是否激活
func (a *Application) IsActive() bool {
	return a.Status == ApplicationStatusActive
}

// Module 应用下的功能模块
type Module struct {
	BaseModel
	ApplicationID uint   `gorm:"not null;index;uniqueIndex:idx_app_module_key" json:"application_id"`
	ModuleKey     string `gorm:"size:100;not null;uniqueIndex:idx_app_module_key" json:"module_key"` // 应用内唯一
	ModuleName    string `gorm:"size:100;not null" json:"module_name"`
	Description   string `gorm:"size:255" json:"description"`
	Status        string `gorm:"size:20;default:'active'" json:"status"`

	// 关联关系
	Application *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	Privileges  []Privilege  `gorm:"foreignKey:ModuleID" json:"privileges,omitempty"`
}

// TableName 表名
func (Module) TableName() string {
	return "modules"
}

// 模块状态常量
const (
	ModuleStatusActive   = "active"
	ModuleStatusInactive = "inactive"
)

// IsActive 模块是否激活
func (m *Module) IsActive() bool {
	return m.Status == ModuleStatusActive
}

// Privilege 模块下的权限点，叶子权限单元
type Privilege struct {
	BaseModel
	ModuleID      uint   `gorm:"not null;index;uniqueIndex:idx_module_privilege_key" json:"module_id"`
	PrivilegeKey  string `gorm:"size:100;not null;uniqueIndex:idx_module_privilege_key" json:"privilege_key"` // 模块内唯一
	PrivilegeName string `gorm:"size:100;not null" json:"privilege_name"`
	Description   string `gorm:"size:255" json:"description"`

	// 关联关系
	Module *Module `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

// TableName 表名
func (Privilege) TableName() string {
	return "privileges"
}
