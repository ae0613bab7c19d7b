package main

import (
	"fmt"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/config"
	"ezauth/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	// 1. 创建默认应用目录（应用、模块、权限）
	if err := seedApplicationCatalog(db); err != nil {
		return fmt.Errorf("初始化应用目录失败: %v", err)
	}

	// 2. 创建订阅计划
	if err := seedSubscriptionPlans(db); err != nil {
		return fmt.Errorf("初始化订阅计划失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// moduleSeed 模块种子定义
type moduleSeed struct {
	Key        string
	Name       string
	Privileges []privilegeSeed
}

type privilegeSeed struct {
	Key  string
	Name string
}

// 默认权限集：每个模块都具备读写管理三档
var defaultPrivileges = []privilegeSeed{
	{Key: "READ", Name: "查看"},
	{Key: "WRITE", Name: "编辑"},
	{Key: "MANAGE", Name: "管理"},
}

// seedApplicationCatalog 创建默认应用及模块权限目录
func seedApplicationCatalog(db *gorm.DB) error {
	cfg := config.GetConfig()

	var count int64
	db.Model(&models.Application{}).Where("app_key = ?", cfg.App.DefaultAppKey).Count(&count)
	if count > 0 {
		logger.GetLogger().Info("默认应用已存在，跳过创建")
		return nil
	}

	app := &models.Application{
		AppKey:      cfg.App.DefaultAppKey,
		AppName:     "EzHub Inventory",
		Description: "库存与计费管理应用",
		Status:      models.ApplicationStatusActive,
	}
	if err := db.Create(app).Error; err != nil {
		return err
	}

	moduleSeeds := []moduleSeed{
		{Key: "DASHBOARD", Name: "工作台", Privileges: defaultPrivileges},
		{Key: "INVENTORY", Name: "库存管理", Privileges: defaultPrivileges},
		{Key: "BILLING", Name: "计费管理", Privileges: defaultPrivileges},
		{Key: "REPORTS", Name: "报表中心", Privileges: defaultPrivileges},
		{Key: "SETTINGS", Name: "系统设置", Privileges: defaultPrivileges},
	}

	for _, seed := range moduleSeeds {
		module := &models.Module{
			ApplicationID: app.ID,
			ModuleKey:     seed.Key,
			ModuleName:    seed.Name,
			Status:        models.ModuleStatusActive,
		}
		if err := db.Create(module).Error; err != nil {
			return err
		}

		for _, p := range seed.Privileges {
			privilege := &models.Privilege{
				ModuleID:      module.ID,
				PrivilegeKey:  p.Key,
				PrivilegeName: p.Name,
			}
			if err := db.Create(privilege).Error; err != nil {
				return err
			}
		}
	}

	logger.GetLogger().Info("默认应用目录创建成功")
	return nil
}

// seedSubscriptionPlans 创建订阅计划，默认计划必须存在否则租户注册会失败
func seedSubscriptionPlans(db *gorm.DB) error {
	cfg := config.GetConfig()

	plans := []models.SubscriptionPlan{
		{Name: cfg.App.DefaultPlanName, DurationDays: 14, Price: 0},
		{Name: "Standard", DurationDays: 365, Price: 99},
		{Name: "Enterprise", DurationDays: 365, Price: 299},
	}

	for _, plan := range plans {
		var count int64
		db.Model(&models.SubscriptionPlan{}).Where("name = ?", plan.Name).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(&plan).Error; err != nil {
			return err
		}
	}

	logger.GetLogger().Info("订阅计划初始化成功")
	return nil
}
