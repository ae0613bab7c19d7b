package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant 租户模型 - 贫血模型，只包含数据结构
type Tenant struct {
	BaseModel
	TenantUUID string `json:"tenant_uuid" gorm:"size:36;uniqueIndex"`
	Name       string `json:"name" gorm:"not null;size:100"`
	Code       string `json:"code" gorm:"unique;not null;size:50;index"` // 全局唯一，创建后不可变
	IsPersonal bool   `json:"is_personal" gorm:"default:false"`          // Google注册生成的个人工作区
	Status     string `json:"status" gorm:"default:'active';size:20"`

	// 管理员引用在管理员用户创建后回填（两阶段创建）
	AdminUserID *uint `json:"admin_user_id" gorm:"index"`

	CurrentSubscriptionID *uint `json:"current_subscription_id"`

	// 关联关系
	AdminUser           *User           `gorm:"foreignKey:AdminUserID" json:"admin_user,omitempty"`
	Applications        []Application   `gorm:"many2many:tenant_applications;" json:"applications,omitempty"`
	Addresses           []TenantAddress `gorm:"foreignKey:TenantID" json:"addresses,omitempty"`
	CurrentSubscription *Subscription   `gorm:"foreignKey:CurrentSubscriptionID" json:"current_subscription,omitempty"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// 租户状态常量
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// BeforeCreate UUID在首次持久化前生成一次
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.TenantUUID == "" {
		t.TenantUUID = uuid.NewString()
	}
	return nil
}

// IsActive 租户是否激活
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// TenantAddress 租户地址
type TenantAddress struct {
	BaseModel
	TenantID     uint   `gorm:"not null;index" json:"tenant_id"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	Route        string `gorm:"size:100" json:"route"`
	Area         string `gorm:"size:100" json:"area"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	Country      string `gorm:"size:100" json:"country"`
	PinCode      string `gorm:"size:20" json:"pin_code"`
	AddressType  string `gorm:"size:20" json:"address_type"` // OFFICE / BILLING / SHIPPING
}

// TableName 表名
func (TenantAddress) TableName() string {
	return "tenant_addresses"
}
