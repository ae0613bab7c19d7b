package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ezauth/internal/database"
	"ezauth/internal/models"
)

// setupTestDB 以内存sqlite搭建隔离的测试库，并接管全局数据库句柄
// 限制单连接，保证所有操作落在同一个内存实例上
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Application{},
		&models.Module{},
		&models.Privilege{},
		&models.SubscriptionPlan{},
		&models.Tenant{},
		&models.TenantAddress{},
		&models.Subscription{},
		&models.Role{},
		&models.User{},
		&models.UserRole{},
		&models.UserApplication{},
		&models.UserModulePrivilege{},
	))

	database.DB = db
	return db
}

// seedCatalog 构建最小应用目录：默认应用 + BILLING模块(READ/WRITE) + 默认订阅计划
func seedCatalog(t *testing.T, db *gorm.DB) (*models.Application, *models.Module, *models.Privilege, *models.Privilege) {
	t.Helper()

	app := &models.Application{
		AppKey:  "EZH_INV_001",
		AppName: "EzHub Inventory",
		Status:  models.ApplicationStatusActive,
	}
	require.NoError(t, db.Create(app).Error)

	billing := &models.Module{
		ApplicationID: app.ID,
		ModuleKey:     "BILLING",
		ModuleName:    "计费管理",
		Status:        models.ModuleStatusActive,
	}
	require.NoError(t, db.Create(billing).Error)

	read := &models.Privilege{ModuleID: billing.ID, PrivilegeKey: "READ", PrivilegeName: "查看"}
	write := &models.Privilege{ModuleID: billing.ID, PrivilegeKey: "WRITE", PrivilegeName: "编辑"}
	require.NoError(t, db.Create(read).Error)
	require.NoError(t, db.Create(write).Error)

	plan := &models.SubscriptionPlan{Name: "Free Trial", DurationDays: 14}
	require.NoError(t, db.Create(plan).Error)

	return app, billing, read, write
}
