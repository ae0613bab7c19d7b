package services

import (
	"fmt"
	"strings"
	"time"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/config"
	"ezauth/pkg/errors"
	"ezauth/pkg/logger"

	"gorm.io/gorm"
)

type TenantService struct {
	db           *gorm.DB
	emailService *EmailService
}

func NewTenantService() *TenantService {
	return &TenantService{
		db:           database.GetDB(),
		emailService: NewEmailService(),
	}
}

// TenantRegistrationInput 租户注册入参
type TenantRegistrationInput struct {
	TenantName    string
	AppKey        string
	IsPersonal    bool
	AdminFullName string
	AdminEmail    string
	AdminPhone    *string
	Password      string
	Address       *AddressInput
}

// AddressInput 地址入参
type AddressInput struct {
	ID           *uint
	AddressLine1 string
	AddressLine2 string
	Route        string
	Area         string
	City         string
	State        string
	Country      string
	PinCode      string
	AddressType  string
}

// TenantRegistrationResult 注册结果
type TenantRegistrationResult struct {
	TenantID   uint   `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	TenantCode string `json:"tenant_code"`
	AdminID    uint   `json:"admin_user_id"`
	AdminEmail string `json:"admin_email"`
}

// DeriveTenantCode 从租户名派生租户代码：大写、去掉非字母数字、截断到6位
func DeriveTenantCode(tenantName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(tenantName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 6 {
			break
		}
	}
	return b.String()
}

// Register 租户注册：单事务完成租户、订阅、管理员、全量授权、SUPER_ADMIN角色
// 任一步失败整体回滚，不留下半成品租户
func (s *TenantService) Register(input *TenantRegistrationInput) (*TenantRegistrationResult, error) {
	var result *TenantRegistrationResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. 管理员邮箱必须未被注册
		var emailCount int64
		if err := tx.Model(&models.User{}).Where("email = ?", input.AdminEmail).Count(&emailCount).Error; err != nil {
			return err
		}
		if emailCount > 0 {
			return errors.ErrDuplicateEmail
		}

		// 2. 派生租户代码，撞码时追加毫秒时间戳后缀消歧
		tenantCode := DeriveTenantCode(input.TenantName)
		var codeCount int64
		if err := tx.Model(&models.Tenant{}).Where("code = ?", tenantCode).Count(&codeCount).Error; err != nil {
			return err
		}
		if codeCount > 0 {
			tenantCode = fmt.Sprintf("%s-%d", tenantCode, time.Now().UnixMilli())
		}

		// 3. 解析目标应用
		var app models.Application
		if err := tx.Where("app_key = ?", input.AppKey).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrInvalidApplication
			}
			return err
		}

		// 4. 创建租户并挂接应用
		tenant := &models.Tenant{
			Name:       input.TenantName,
			Code:       tenantCode,
			IsPersonal: input.IsPersonal,
			Status:     models.TenantStatusActive,
		}
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		if err := tx.Model(tenant).Association("Applications").Append(&app); err != nil {
			return err
		}

		// 5-6. 默认订阅计划 + 订阅实例
		if err := provisionDefaultSubscription(tx, tenant); err != nil {
			return err
		}

		// 可选地址
		if input.Address != nil {
			address := buildTenantAddress(tenant.ID, input.Address)
			if err := tx.Create(address).Error; err != nil {
				return err
			}
		}

		// 7. 创建管理员用户
		adminUser := &models.User{
			FullName: input.AdminFullName,
			Email:    input.AdminEmail,
			Phone:    input.AdminPhone,
			UserType: models.UserTypeStandard,
			Status:   models.UserStatusActive,
			TenantID: tenant.ID,
		}
		if err := adminUser.SetPassword(input.Password); err != nil {
			return fmt.Errorf("密码加密失败: %v", err)
		}
		if err := tx.Create(adminUser).Error; err != nil {
			return err
		}

		// 8-10. 应用关联、全量授权、SUPER_ADMIN角色
		if err := provisionAdminAccess(tx, tenant, adminUser, &app); err != nil {
			return err
		}

		// 11. 回填租户管理员引用
		if err := tx.Model(tenant).Update("admin_user_id", adminUser.ID).Error; err != nil {
			return err
		}

		result = &TenantRegistrationResult{
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
			TenantCode: tenant.Code,
			AdminID:    adminUser.ID,
			AdminEmail: adminUser.Email,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 欢迎邮件在事务提交后发送，失败只记日志，不影响注册结果
	s.emailService.SendWelcomeEmail(result.AdminEmail, result.TenantName, result.TenantID)

	return result, nil
}

// RegisterGoogle Google登录自动注册个人租户
// 幂等：邮箱已存在时直接返回既有用户，不重复建租户
func (s *TenantService) RegisterGoogle(email, fullName, pictureURL, appKey string) (*models.User, error) {
	var existing models.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg := config.GetConfig()
	targetAppKey := appKey
	if targetAppKey == "" {
		targetAppKey = cfg.App.DefaultAppKey
	}

	var user *models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where("app_key = ?", targetAppKey).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrInvalidApplication
			}
			return err
		}

		tenantCode := DeriveTenantCode(fullName)
		var codeCount int64
		if err := tx.Model(&models.Tenant{}).Where("code = ?", tenantCode).Count(&codeCount).Error; err != nil {
			return err
		}
		if codeCount > 0 {
			tenantCode = fmt.Sprintf("%s-%d", tenantCode, time.Now().UnixMilli())
		}

		tenant := &models.Tenant{
			Name:       fullName + "'s Workspace",
			Code:       tenantCode,
			IsPersonal: true,
			Status:     models.TenantStatusActive,
		}
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		if err := tx.Model(tenant).Association("Applications").Append(&app); err != nil {
			return err
		}

		if err := provisionDefaultSubscription(tx, tenant); err != nil {
			return err
		}

		// 外部身份用户存占位凭证，不可用于密码登录
		adminUser := &models.User{
			FullName:     fullName,
			Email:        email,
			PasswordHash: models.GoogleAuthPlaceholder,
			UserType:     models.UserTypeStandard,
			Status:       models.UserStatusActive,
			TenantID:     tenant.ID,
		}
		if pictureURL != "" {
			adminUser.Profile = []byte(fmt.Sprintf(`{"name":%q,"picture":%q}`, fullName, pictureURL))
		}
		if err := tx.Create(adminUser).Error; err != nil {
			return err
		}

		if err := provisionAdminAccess(tx, tenant, adminUser, &app); err != nil {
			return err
		}

		if err := tx.Model(tenant).Update("admin_user_id", adminUser.ID).Error; err != nil {
			return err
		}

		user = adminUser
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emailService.SendWelcomeEmail(email, fullName, user.TenantID)
	logger.GetLogger().Infof("Google用户自动注册成功: %s", email)

	return user, nil
}

// provisionDefaultSubscription 解析默认订阅计划并创建订阅实例
// 计划缺失是部署缺陷而不是用户错误
func provisionDefaultSubscription(tx *gorm.DB, tenant *models.Tenant) error {
	planName := config.GetConfig().App.DefaultPlanName

	var plan models.SubscriptionPlan
	if err := tx.Where("name = ?", planName).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrPlanNotConfigured
		}
		return err
	}

	now := time.Now()
	subscription := &models.Subscription{
		TenantID:  tenant.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		AutoRenew: false,
	}
	if err := tx.Create(subscription).Error; err != nil {
		return err
	}

	return tx.Model(tenant).Update("current_subscription_id", subscription.ID).Error
}

// provisionAdminAccess 管理员接入：应用关联、全模块全权限授权、SUPER_ADMIN角色
func provisionAdminAccess(tx *gorm.DB, tenant *models.Tenant, adminUser *models.User, app *models.Application) error {
	userApplication := &models.UserApplication{
		UserID:        adminUser.ID,
		ApplicationID: app.ID,
		IsActive:      true,
	}
	if err := tx.Create(userApplication).Error; err != nil {
		return err
	}

	// 应用下每个模块的每个权限各建一条激活授权
	var modules []models.Module
	if err := tx.Preload("Privileges").Where("application_id = ?", app.ID).Find(&modules).Error; err != nil {
		return err
	}
	var grants []models.UserModulePrivilege
	for i := range modules {
		for j := range modules[i].Privileges {
			grants = append(grants, models.UserModulePrivilege{
				UserApplicationID: userApplication.ID,
				ModuleID:          modules[i].ID,
				PrivilegeID:       modules[i].Privileges[j].ID,
				IsActive:          true,
			})
		}
	}
	if len(grants) > 0 {
		if err := tx.Create(&grants).Error; err != nil {
			return err
		}
	}

	superAdminRole := &models.Role{
		TenantID:     tenant.ID,
		RoleKey:      models.RoleKeySuperAdmin,
		RoleName:     "Super Admin",
		Description:  "Full access to all applications and modules",
		IsSystemRole: true,
		Status:       models.RoleStatusActive,
	}
	if err := tx.Create(superAdminRole).Error; err != nil {
		return err
	}

	userRole := &models.UserRole{
		UserID:   adminUser.ID,
		RoleID:   superAdminRole.ID,
		IsActive: true,
	}
	return tx.Create(userRole).Error
}

func buildTenantAddress(tenantID uint, input *AddressInput) *models.TenantAddress {
	return &models.TenantAddress{
		TenantID:     tenantID,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		Route:        input.Route,
		Area:         input.Area,
		City:         input.City,
		State:        input.State,
		Country:      input.Country,
		PinCode:      input.PinCode,
		AddressType:  input.AddressType,
	}
}

// ========== 查询与维护 ==========

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *TenantService) GetWithFiltersAndPage(status, keyword string, page, pageSize int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name LIKE ? OR code LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("AdminUser").Preload("Applications").
		Offset(offset).Limit(pageSize).Find(&tenants).Error
	if err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}

// GetByID 根据ID获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.
		Preload("AdminUser").
		Preload("Applications").
		Preload("Addresses").
		Preload("CurrentSubscription.Plan").
		First(&tenant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByIDs 批量获取租户，返回id -> 租户映射，重复ID只取一次
func (s *TenantService) GetByIDs(ids []uint) (map[uint]*models.Tenant, error) {
	result := make(map[uint]*models.Tenant)
	if len(ids) == 0 {
		return result, nil
	}

	var tenants []*models.Tenant
	if err := s.db.Preload("AdminUser").Where("id IN ?", ids).Find(&tenants).Error; err != nil {
		return nil, err
	}

	for _, tenant := range tenants {
		if _, exists := result[tenant.ID]; !exists {
			result[tenant.ID] = tenant
		}
	}
	return result, nil
}

// Update 更新租户：管理员电话和地址（按ID优先、地址类型兜底的upsert）
func (s *TenantService) Update(id uint, adminPhone *string, address *AddressInput) (*models.Tenant, error) {
	tenant, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if adminPhone != nil && *adminPhone != "" && tenant.AdminUserID != nil {
			if err := tx.Model(&models.User{}).Where("id = ?", *tenant.AdminUserID).
				Update("phone", *adminPhone).Error; err != nil {
				return err
			}
		}

		if address != nil {
			if err := upsertTenantAddress(tx, tenant, address); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

// upsertTenantAddress 地址upsert：优先按ID匹配，其次按地址类型，都没有则新建
func upsertTenantAddress(tx *gorm.DB, tenant *models.Tenant, input *AddressInput) error {
	var existing *models.TenantAddress
	for i := range tenant.Addresses {
		addr := &tenant.Addresses[i]
		if input.ID != nil && addr.ID == *input.ID {
			existing = addr
			break
		}
		if input.ID == nil && addr.AddressType == input.AddressType {
			existing = addr
			break
		}
	}

	if existing != nil {
		existing.AddressLine1 = input.AddressLine1
		existing.AddressLine2 = input.AddressLine2
		existing.Route = input.Route
		existing.Area = input.Area
		existing.City = input.City
		existing.State = input.State
		existing.Country = input.Country
		existing.PinCode = input.PinCode
		existing.AddressType = input.AddressType
		return tx.Save(existing).Error
	}

	return tx.Create(buildTenantAddress(tenant.ID, input)).Error
}

// Activate 激活租户
func (s *TenantService) Activate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusActive)
}

// Deactivate 停用租户
func (s *TenantService) Deactivate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusInactive)
}

func (s *TenantService) setStatus(id uint, status string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, err
	}

	tenant.Status = status
	if err := s.db.Save(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}
