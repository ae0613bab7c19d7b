package services

import (
	"fmt"
	"time"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/errors"

	"gorm.io/gorm"
)

type UserService struct {
	db    *gorm.DB
	authz *AuthorizationService
}

func NewUserService() *UserService {
	return &UserService{
		db:    database.GetDB(),
		authz: NewAuthorizationService(),
	}
}

// ========== 用户初始化快照 ==========

// UserApplicationInit 快照中单个应用的授权视图
type UserApplicationInit struct {
	ID               uint                `json:"id"`
	AppKey           string              `json:"app_key"`
	AppName          string              `json:"app_name"`
	IsActive         bool                `json:"is_active"`
	ModulePrivileges map[string][]string `json:"module_privileges"`
}

// UserInitResponse 用户初始化快照：身份信息 + 角色 + 按应用归并的权限
type UserInitResponse struct {
	ID         uint                  `json:"id"`
	UserUUID   string                `json:"user_uuid"`
	FullName   string                `json:"full_name"`
	Email      string                `json:"email"`
	Phone      *string               `json:"phone"`
	IsActive   bool                  `json:"is_active"`
	UserType   string                `json:"user_type"`
	TenantID   uint                  `json:"tenant_id"`
	TenantName string                `json:"tenant_name"`
	Roles      []string              `json:"roles"`
	Apps       []UserApplicationInit `json:"applications"`
}

// GetUserInitDetails 构建用户初始化快照（缓存的加载函数）
func (s *UserService) GetUserInitDetails(userID uint) (*UserInitResponse, error) {
	user, err := s.authz.LoadUserForAuthorization(userID)
	if err != nil {
		return nil, err
	}

	snapshot := ResolvePermissions(user)

	resp := &UserInitResponse{
		ID:       user.ID,
		UserUUID: user.UserUUID,
		FullName: user.FullName,
		Email:    user.Email,
		Phone:    user.Phone,
		IsActive: user.IsActive(),
		UserType: user.UserType,
		TenantID: user.TenantID,
		Roles:    []string{},
		Apps:     []UserApplicationInit{},
	}
	if user.Tenant != nil {
		resp.TenantName = user.Tenant.Name
	}

	now := time.Now()
	for i := range user.UserRoles {
		ur := &user.UserRoles[i]
		if ur.IsEffective(now) && ur.Role != nil {
			resp.Roles = append(resp.Roles, ur.Role.RoleKey)
		}
	}

	for i := range user.UserApplications {
		ua := &user.UserApplications[i]
		if ua.Application == nil {
			continue
		}
		appInit := UserApplicationInit{
			ID:               ua.Application.ID,
			AppKey:           ua.Application.AppKey,
			AppName:          ua.Application.AppName,
			IsActive:         ua.IsActive && ua.Application.IsActive(),
			ModulePrivileges: map[string][]string{},
		}
		if modules, ok := snapshot[ua.Application.AppKey]; ok && appInit.IsActive {
			appInit.ModulePrivileges = modules
		}
		resp.Apps = append(resp.Apps, appInit)
	}

	return resp, nil
}

// ========== 用户增删改查 ==========

// UserCreateInput 创建用户入参
type UserCreateInput struct {
	FullName     string
	Email        string
	Phone        *string
	Password     string
	UserType     string
	TenantID     uint
	RoleIDs      []uint
	Applications []UserApplicationInput
}

// UserApplicationInput 应用授权入参
type UserApplicationInput struct {
	ApplicationID uint
	Privileges    []ModulePrivilegeInput
}

// ModulePrivilegeInput 模块权限授权入参
type ModulePrivilegeInput struct {
	ModuleID    uint
	PrivilegeID uint
}

// Create 创建用户：同一事务内落用户、角色、应用授权，并逐出缓存
func (s *UserService) Create(input *UserCreateInput) (*models.User, error) {
	var created *models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.First(&tenant, input.TenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrTenantNotFound
			}
			return err
		}

		var emailCount int64
		if err := tx.Model(&models.User{}).Where("email = ?", input.Email).Count(&emailCount).Error; err != nil {
			return err
		}
		if emailCount > 0 {
			return errors.ErrDuplicateEmail
		}

		userType := input.UserType
		if userType == "" {
			userType = models.UserTypeStandard
		}
		user := &models.User{
			FullName: input.FullName,
			Email:    input.Email,
			Phone:    input.Phone,
			UserType: userType,
			Status:   models.UserStatusActive,
			TenantID: input.TenantID,
		}
		if err := user.SetPassword(input.Password); err != nil {
			return fmt.Errorf("密码加密失败: %v", err)
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if err := syncUserRoles(tx, user.ID, tenant.ID, input.RoleIDs); err != nil {
			return err
		}
		if err := syncUserApplications(tx, user.ID, input.Applications); err != nil {
			return err
		}

		// 缓存逐出必须发生在事务完成之前
		GetUserInitCache().Evict(user.ID)

		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后再次逐出：事务内的逐出与提交之间若有并发读回填了
	// 提交前的旧快照，这里将其清掉
	GetUserInitCache().Evict(created.ID)
	return created, nil
}

// UserUpdateInput 更新用户入参，nil切片表示不改动对应维度
type UserUpdateInput struct {
	FullName     *string
	Phone        *string
	UserType     *string
	RoleIDs      []uint
	Applications []UserApplicationInput
}

// Update 更新用户：基本信息覆盖，角色与应用授权做差量同步
// 既有的等价授权保留（保留AssignedAt等历史），缺的补，多的删
func (s *UserService) Update(id uint, input *UserUpdateInput) (*models.User, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrUserNotFound
			}
			return err
		}

		updates := make(map[string]interface{})
		if input.FullName != nil {
			updates["full_name"] = *input.FullName
		}
		if input.Phone != nil {
			updates["phone"] = *input.Phone
		}
		if input.UserType != nil {
			updates["user_type"] = *input.UserType
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		if input.RoleIDs != nil {
			if err := syncUserRoles(tx, user.ID, user.TenantID, input.RoleIDs); err != nil {
				return err
			}
		}
		if input.Applications != nil {
			if err := syncUserApplications(tx, user.ID, input.Applications); err != nil {
				return err
			}
		}

		GetUserInitCache().Evict(user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后再次逐出，清掉提交前被并发读回填的旧快照
	GetUserInitCache().Evict(id)
	return s.GetByID(id)
}

// syncUserRoles 角色差量同步：期望集合之外的删除，缺失的新建，已有的保留
// 新旧关联按(user, role)自然键比对，保留的行不重建，AssignedAt等历史不丢
func syncUserRoles(tx *gorm.DB, userID, tenantID uint, roleIDs []uint) error {
	desired := make([]models.UserRole, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		// 角色必须属于用户所在租户
		var role models.Role
		if err := tx.Where("id = ? AND tenant_id = ?", roleID, tenantID).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrRoleNotFound
			}
			return err
		}

		candidate := models.UserRole{UserID: userID, RoleID: roleID, IsActive: true}
		duplicate := false
		for i := range desired {
			if desired[i].SameGrant(&candidate) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			desired = append(desired, candidate)
		}
	}

	var existing []models.UserRole
	if err := tx.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return err
	}

	for i := range existing {
		ur := &existing[i]
		matched := false
		for j := range desired {
			if desired[j].ID == 0 && ur.SameGrant(&desired[j]) {
				// 已持久化的等价关联，标记为保留
				desired[j].ID = ur.ID
				matched = true
				break
			}
		}
		if !matched {
			if err := tx.Delete(ur).Error; err != nil {
				return err
			}
		}
	}

	for i := range desired {
		if desired[i].ID != 0 {
			continue
		}
		if err := tx.Create(&desired[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// syncUserApplications 应用与模块权限授权的差量同步
func syncUserApplications(tx *gorm.DB, userID uint, inputs []UserApplicationInput) error {
	desiredApps := make(map[uint][]ModulePrivilegeInput, len(inputs))
	for _, in := range inputs {
		var app models.Application
		if err := tx.First(&app, in.ApplicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrInvalidApplication
			}
			return err
		}
		// 授权的模块必须隶属于该应用
		for _, grant := range in.Privileges {
			var module models.Module
			if err := tx.Where("id = ? AND application_id = ?", grant.ModuleID, app.ID).
				First(&module).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.ErrModuleNotFound
				}
				return err
			}
		}
		desiredApps[in.ApplicationID] = in.Privileges
	}

	var existing []models.UserApplication
	if err := tx.Preload("ModulePrivileges").Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return err
	}

	existingByApp := make(map[uint]*models.UserApplication, len(existing))
	for i := range existing {
		ua := &existing[i]
		if _, keep := desiredApps[ua.ApplicationID]; !keep {
			if err := tx.Where("user_application_id = ?", ua.ID).
				Delete(&models.UserModulePrivilege{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(ua).Error; err != nil {
				return err
			}
			continue
		}
		existingByApp[ua.ApplicationID] = ua
	}

	for appID, grants := range desiredApps {
		ua := existingByApp[appID]
		if ua == nil {
			ua = &models.UserApplication{UserID: userID, ApplicationID: appID, IsActive: true}
			if err := tx.Create(ua).Error; err != nil {
				return err
			}
		}
		if err := syncModulePrivileges(tx, ua, grants); err != nil {
			return err
		}
	}
	return nil
}

// syncModulePrivileges 三元授权行的差量同步，按自然键去重
func syncModulePrivileges(tx *gorm.DB, ua *models.UserApplication, grants []ModulePrivilegeInput) error {
	desired := make(map[models.GrantKey]struct{}, len(grants))
	for _, grant := range grants {
		desired[models.GrantKey{
			UserApplicationID: ua.ID,
			ModuleID:          grant.ModuleID,
			PrivilegeID:       grant.PrivilegeID,
		}] = struct{}{}
	}

	existingSet := make(map[models.GrantKey]struct{}, len(ua.ModulePrivileges))
	for i := range ua.ModulePrivileges {
		ump := &ua.ModulePrivileges[i]
		if _, keep := desired[ump.Key()]; !keep {
			if err := tx.Delete(ump).Error; err != nil {
				return err
			}
			continue
		}
		existingSet[ump.Key()] = struct{}{}
	}

	for key := range desired {
		if _, ok := existingSet[key]; ok {
			continue
		}
		row := &models.UserModulePrivilege{
			UserApplicationID: key.UserApplicationID,
			ModuleID:          key.ModuleID,
			PrivilegeID:       key.PrivilegeID,
			IsActive:          true,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// ToggleStatus 切换用户激活状态
// 超级管理员禁止停用：这是业务规则失败，存储状态保持不变
func (s *UserService) ToggleStatus(id uint) (*models.User, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("UserRoles.Role").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrUserNotFound
			}
			return err
		}

		if user.IsActive() && IsSuperAdmin(&user) {
			return errors.ErrSuperAdminProtected
		}

		newStatus := models.UserStatusActive
		if user.IsActive() {
			newStatus = models.UserStatusInactive
		}
		if err := tx.Model(&user).Update("status", newStatus).Error; err != nil {
			return err
		}

		GetUserInitCache().Evict(user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后再次逐出，清掉提交前被并发读回填的旧快照
	GetUserInitCache().Evict(id)
	return s.GetByID(id)
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := s.db.
		Preload("Tenant").
		Preload("UserRoles.Role").
		Preload("UserApplications.Application").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *UserService) GetWithFiltersAndPage(tenantID uint, status, keyword string, page, pageSize int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.Model(&models.User{}).Where("tenant_id = ?", tenantID)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("full_name LIKE ? OR email LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("UserRoles.Role").Offset(offset).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// GetByIDs 批量获取用户，返回id -> 用户映射
func (s *UserService) GetByIDs(ids []uint) (map[uint]*models.User, error) {
	result := make(map[uint]*models.User)
	if len(ids) == 0 {
		return result, nil
	}

	var users []*models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	for _, user := range users {
		if _, exists := result[user.ID]; !exists {
			result[user.ID] = user
		}
	}
	return result, nil
}

// UpdateLastLogin 记录最近登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", &now).Error
}
