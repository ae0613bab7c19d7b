package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/errors"
	"ezauth/pkg/logger"
)

// SubscriptionService 订阅服务
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService() *SubscriptionService {
	return &SubscriptionService{
		db: database.GetDB(),
	}
}

// GetPlanByName 按名称解析订阅计划
func (s *SubscriptionService) GetPlanByName(name string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.Where("name = ?", name).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPlanNotConfigured
		}
		return nil, err
	}
	return &plan, nil
}

// GetCurrent 获取租户当前订阅
func (s *SubscriptionService) GetCurrent(tenantID uint) (*models.Subscription, error) {
	var tenant models.Tenant
	if err := s.db.Preload("CurrentSubscription.Plan").First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, err
	}
	if tenant.CurrentSubscription == nil {
		return nil, errors.ErrPlanNotConfigured
	}
	return tenant.CurrentSubscription, nil
}

// ExpireLapsed 把已过期但状态仍为ACTIVE的订阅批量翻转为EXPIRED
func (s *SubscriptionService) ExpireLapsed() (int64, error) {
	result := s.db.Model(&models.Subscription{}).
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, time.Now()).
		Update("status", models.SubscriptionStatusExpired)
	return result.RowsAffected, result.Error
}

// ========== 订阅状态巡检调度器 ==========

// SubscriptionScheduler 定时巡检订阅状态
type SubscriptionScheduler struct {
	cron    *cron.Cron
	service *SubscriptionService
}

func NewSubscriptionScheduler() *SubscriptionScheduler {
	return &SubscriptionScheduler{
		cron:    cron.New(),
		service: NewSubscriptionService(),
	}
}

// Start 启动调度器，每小时巡检一次
func (s *SubscriptionScheduler) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		affected, err := s.service.ExpireLapsed()
		if err != nil {
			logger.GetLogger().Errorf("订阅状态巡检失败: %v", err)
			return
		}
		if affected > 0 {
			logger.GetLogger().Infof("订阅状态巡检: %d 个订阅已过期", affected)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.GetLogger().Info("订阅状态巡检调度器已启动")
	return nil
}

// Stop 停止调度器，等待进行中的任务完成
func (s *SubscriptionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.GetLogger().Info("订阅状态巡检调度器已停止")
}
