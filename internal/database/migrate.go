package database

import (
	"ezauth/internal/models"
	"ezauth/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		// 全局目录
		&models.Application{},
		&models.Module{},
		&models.Privilege{},
		&models.SubscriptionPlan{},
		// 租户域
		&models.Tenant{},
		&models.TenantAddress{},
		&models.Subscription{},
		&models.Role{},
		// 用户域
		&models.User{},
		&models.UserRole{},
		&models.UserApplication{},
		&models.UserModulePrivilege{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")

	// 种子数据初始化将在 main.go 中单独调用，避免循环依赖

	return nil
}
