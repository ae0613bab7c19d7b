package models

import "time"

// SubscriptionPlan 订阅计划目录
type SubscriptionPlan struct {
	BaseModel
	Name         string  `gorm:"uniqueIndex;size:100;not null" json:"name"` // 如 "Free Trial"
	Description  string  `gorm:"size:255" json:"description"`
	DurationDays int     `gorm:"not null" json:"duration_days"`
	Price        float64 `gorm:"default:0" json:"price"`
}

// TableName 表名
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// 订阅状态常量
const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusExpired   = "EXPIRED"
	SubscriptionStatusCancelled = "CANCELLED"
)

// Subscription 租户的订阅实例
type Subscription struct {
	BaseModel
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	PlanID    uint      `gorm:"not null;index" json:"plan_id"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	AutoRenew bool      `gorm:"default:false" json:"auto_renew"`

	// 关联
	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName 表名
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsValid 订阅有效 = 状态ACTIVE 且 未到结束时间
func (s *Subscription) IsValid(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.Before(s.EndDate)
}
