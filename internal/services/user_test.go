package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezauth/internal/models"
	"ezauth/pkg/errors"
)

// provisionTenantWithRoles 注册租户并补建两个普通角色，供授权同步用例使用
func provisionTenantWithRoles(t *testing.T) (*TenantRegistrationResult, *models.Role, *models.Role) {
	t.Helper()

	result, err := NewTenantService().Register(acmeRegistration())
	require.NoError(t, err)

	db := NewUserService().db
	adminRole := &models.Role{
		TenantID: result.TenantID,
		RoleKey:  "ADMIN",
		RoleName: "Admin",
		Status:   models.RoleStatusActive,
	}
	viewerRole := &models.Role{
		TenantID: result.TenantID,
		RoleKey:  "VIEWER",
		RoleName: "Viewer",
		Status:   models.RoleStatusActive,
	}
	require.NoError(t, db.Create(adminRole).Error)
	require.NoError(t, db.Create(viewerRole).Error)

	return result, adminRole, viewerRole
}

func TestUpdateUserRoleSmartSync(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	tenant, adminRole, viewerRole := provisionTenantWithRoles(t)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		RoleIDs:  []uint{adminRole.ID},
	})
	require.NoError(t, err)

	// 预热缓存，拿到旧角色快照
	stale, err := GetUserInitCache().Get(user.ID, func() (*UserInitResponse, error) {
		return svc.GetUserInitDetails(user.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, stale.Roles)

	// {ADMIN} -> {VIEWER}
	_, err = svc.Update(user.ID, &UserUpdateInput{RoleIDs: []uint{viewerRole.ID}})
	require.NoError(t, err)

	// 数据库只剩新角色关联
	var rows []models.UserRole
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, viewerRole.ID, rows[0].RoleID)

	// 缓存已被逐出，下次读取重算得到新角色
	fresh, err := GetUserInitCache().Get(user.ID, func() (*UserInitResponse, error) {
		return svc.GetUserInitDetails(user.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEWER"}, fresh.Roles)
}

func TestUpdateUserRoleSyncKeepsExistingGrant(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	tenant, adminRole, viewerRole := provisionTenantWithRoles(t)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		RoleIDs:  []uint{adminRole.ID, viewerRole.ID},
	})
	require.NoError(t, err)

	var adminGrant models.UserRole
	require.NoError(t, db.Where("user_id = ? AND role_id = ?", user.ID, adminRole.ID).
		First(&adminGrant).Error)

	// {ADMIN, VIEWER} -> {ADMIN}：保留的关联不重建，多出的删除
	_, err = svc.Update(user.ID, &UserUpdateInput{RoleIDs: []uint{adminRole.ID}})
	require.NoError(t, err)

	var rows []models.UserRole
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, adminGrant.ID, rows[0].ID)
	assert.Equal(t, adminRole.ID, rows[0].RoleID)
}

func TestUpdateUserRoleSyncRejectsForeignTenantRole(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	tenant, adminRole, _ := provisionTenantWithRoles(t)

	// 另一个租户的角色
	foreignRole := &models.Role{
		TenantID: tenant.TenantID + 100,
		RoleKey:  "ADMIN",
		RoleName: "Foreign Admin",
		Status:   models.RoleStatusActive,
	}
	require.NoError(t, db.Create(foreignRole).Error)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		RoleIDs:  []uint{adminRole.ID},
	})
	require.NoError(t, err)

	_, err = svc.Update(user.ID, &UserUpdateInput{RoleIDs: []uint{foreignRole.ID}})
	assert.ErrorIs(t, err, errors.ErrRoleNotFound)

	// 同步失败整体回滚，原有关联保留
	var rows []models.UserRole
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, adminRole.ID, rows[0].RoleID)
}

func TestUpdateUserModulePrivilegeDiff(t *testing.T) {
	db := setupTestDB(t)
	app, billing, read, write := seedCatalog(t, db)
	tenant, _, _ := provisionTenantWithRoles(t)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		Applications: []UserApplicationInput{{
			ApplicationID: app.ID,
			Privileges:    []ModulePrivilegeInput{{ModuleID: billing.ID, PrivilegeID: read.ID}},
		}},
	})
	require.NoError(t, err)

	var readGrant models.UserModulePrivilege
	require.NoError(t, db.Where("module_id = ? AND privilege_id = ?", billing.ID, read.ID).
		Joins("JOIN user_applications ON user_applications.id = user_module_privileges.user_application_id").
		Where("user_applications.user_id = ?", user.ID).
		First(&readGrant).Error)

	// {READ} -> {READ, WRITE}：已有行保留，新增WRITE
	_, err = svc.Update(user.ID, &UserUpdateInput{
		Applications: []UserApplicationInput{{
			ApplicationID: app.ID,
			Privileges: []ModulePrivilegeInput{
				{ModuleID: billing.ID, PrivilegeID: read.ID},
				{ModuleID: billing.ID, PrivilegeID: write.ID},
			},
		}},
	})
	require.NoError(t, err)

	var rows []models.UserModulePrivilege
	require.NoError(t, db.Where("user_application_id = ?", readGrant.UserApplicationID).Find(&rows).Error)
	require.Len(t, rows, 2)

	// {READ, WRITE} -> {WRITE}：READ删除，WRITE保留
	_, err = svc.Update(user.ID, &UserUpdateInput{
		Applications: []UserApplicationInput{{
			ApplicationID: app.ID,
			Privileges:    []ModulePrivilegeInput{{ModuleID: billing.ID, PrivilegeID: write.ID}},
		}},
	})
	require.NoError(t, err)

	rows = nil
	require.NoError(t, db.Where("user_application_id = ?", readGrant.UserApplicationID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, write.ID, rows[0].PrivilegeID)

	// 权限快照反映最终授权
	snapshot, err := svc.GetUserInitDetails(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"WRITE"}, snapshot.Apps[0].ModulePrivileges["BILLING"])
}

func TestUpdateUserRemovesApplicationGrant(t *testing.T) {
	db := setupTestDB(t)
	app, billing, read, _ := seedCatalog(t, db)
	tenant, _, _ := provisionTenantWithRoles(t)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		Applications: []UserApplicationInput{{
			ApplicationID: app.ID,
			Privileges:    []ModulePrivilegeInput{{ModuleID: billing.ID, PrivilegeID: read.ID}},
		}},
	})
	require.NoError(t, err)

	// 期望集合为空：应用关联与其授权行一并清除
	_, err = svc.Update(user.ID, &UserUpdateInput{Applications: []UserApplicationInput{}})
	require.NoError(t, err)

	var uaCount int64
	db.Model(&models.UserApplication{}).Where("user_id = ?", user.ID).Count(&uaCount)
	assert.Zero(t, uaCount)

	// 只清除了目标用户的授权，管理员的应用关联不受影响
	var adminUA models.UserApplication
	require.NoError(t, db.Where("user_id = ?", tenant.AdminID).First(&adminUA).Error)

	var grantCount int64
	db.Model(&models.UserModulePrivilege{}).
		Where("user_application_id = ?", adminUA.ID).Count(&grantCount)
	assert.Positive(t, grantCount)
}

func TestToggleStatusSuperAdminVeto(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	result, err := NewTenantService().Register(acmeRegistration())
	require.NoError(t, err)

	svc := NewUserService()
	_, err = svc.ToggleStatus(result.AdminID)
	assert.ErrorIs(t, err, errors.ErrSuperAdminProtected)

	// 存储状态保持不变
	var admin models.User
	require.NoError(t, db.First(&admin, result.AdminID).Error)
	assert.Equal(t, models.UserStatusActive, admin.Status)
}

func TestToggleStatusRegularUser(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	tenant, adminRole, _ := provisionTenantWithRoles(t)

	svc := NewUserService()
	user, err := svc.Create(&UserCreateInput{
		FullName: "Carol",
		Email:    "carol@acme.com",
		Password: "password123",
		TenantID: tenant.TenantID,
		RoleIDs:  []uint{adminRole.ID},
	})
	require.NoError(t, err)

	toggled, err := svc.ToggleStatus(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, toggled.Status)

	// 停用的用户可以重新激活
	toggled, err = svc.ToggleStatus(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, toggled.Status)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	result, err := NewTenantService().Register(acmeRegistration())
	require.NoError(t, err)

	svc := NewUserService()
	_, err = svc.Create(&UserCreateInput{
		FullName: "Imposter",
		Email:    "alice@acme.com", // 管理员已占用
		Password: "password123",
		TenantID: result.TenantID,
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateEmail)
}
