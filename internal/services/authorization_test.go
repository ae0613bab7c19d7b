package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ezauth/internal/models"
)

func activeApp(id uint, key string) *models.Application {
	app := &models.Application{
		AppKey:  key,
		AppName: key,
		Status:  models.ApplicationStatusActive,
	}
	app.ID = id
	return app
}

func activeModule(id, appID uint, key string) *models.Module {
	module := &models.Module{
		ApplicationID: appID,
		ModuleKey:     key,
		ModuleName:    key,
		Status:        models.ModuleStatusActive,
	}
	module.ID = id
	return module
}

func privilege(id uint, key string) *models.Privilege {
	p := &models.Privilege{PrivilegeKey: key, PrivilegeName: key}
	p.ID = id
	return p
}

func grant(ua *models.UserApplication, module *models.Module, priv *models.Privilege, active bool) models.UserModulePrivilege {
	return models.UserModulePrivilege{
		UserApplicationID: ua.ID,
		ModuleID:          module.ID,
		PrivilegeID:       priv.ID,
		IsActive:          active,
		Module:            module,
		Privilege:         priv,
	}
}

func roleGrant(roleKey string, active bool, expiresAt *time.Time) models.UserRole {
	return models.UserRole{
		IsActive:  active,
		ExpiresAt: expiresAt,
		Role:      &models.Role{RoleKey: roleKey, RoleName: roleKey, Status: models.RoleStatusActive},
	}
}

func TestRoleKeysOf(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	user := &models.User{
		UserRoles: []models.UserRole{
			roleGrant("ADMIN", true, nil),
			roleGrant("VIEWER", true, &future),
			roleGrant("EXPIRED_ROLE", true, &past),
			roleGrant("DISABLED_ROLE", false, nil),
		},
	}

	keys := RoleKeysOf(user)
	assert.Contains(t, keys, "ADMIN")
	assert.Contains(t, keys, "VIEWER")
	assert.NotContains(t, keys, "EXPIRED_ROLE")
	assert.NotContains(t, keys, "DISABLED_ROLE")
}

func TestRoleKeysOfEmpty(t *testing.T) {
	assert.Equal(t, "", RoleKeysOf(nil))
	assert.Equal(t, "", RoleKeysOf(&models.User{}))
}

func TestIsSuperAdmin(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	super := &models.User{UserRoles: []models.UserRole{roleGrant(models.RoleKeySuperAdmin, true, nil)}}
	assert.True(t, IsSuperAdmin(super))

	// SUPER_ADMIN角色已过期或停用不算超级管理员
	expired := &models.User{UserRoles: []models.UserRole{roleGrant(models.RoleKeySuperAdmin, true, &past)}}
	assert.False(t, IsSuperAdmin(expired))

	disabled := &models.User{UserRoles: []models.UserRole{roleGrant(models.RoleKeySuperAdmin, false, nil)}}
	assert.False(t, IsSuperAdmin(disabled))

	regular := &models.User{UserRoles: []models.UserRole{roleGrant("ADMIN", true, nil)}}
	assert.False(t, IsSuperAdmin(regular))
}

func TestResolvePermissionsBasic(t *testing.T) {
	app := activeApp(1, "EZH_INV_001")
	billing := activeModule(10, 1, "BILLING")
	read := privilege(100, "READ")
	write := privilege(101, "WRITE")

	ua := &models.UserApplication{ApplicationID: 1, IsActive: true, Application: app}
	ua.ID = 1
	ua.ModulePrivileges = []models.UserModulePrivilege{
		grant(ua, billing, read, true),
		grant(ua, billing, write, true),
	}

	user := &models.User{UserApplications: []models.UserApplication{*ua}}

	snapshot := ResolvePermissions(user)
	assert.Equal(t, []string{"READ", "WRITE"}, snapshot["EZH_INV_001"]["BILLING"])
	assert.True(t, snapshot.HasPrivilege("EZH_INV_001", "BILLING", "READ"))
	assert.False(t, snapshot.HasPrivilege("EZH_INV_001", "BILLING", "DELETE"))
}

func TestResolvePermissionsCollapsesDuplicates(t *testing.T) {
	app := activeApp(1, "EZH_INV_001")
	billing := activeModule(10, 1, "BILLING")
	read := privilege(100, "READ")

	ua := &models.UserApplication{ApplicationID: 1, IsActive: true, Application: app}
	ua.ID = 1
	// 同一三元组的重复授权行
	ua.ModulePrivileges = []models.UserModulePrivilege{
		grant(ua, billing, read, true),
		grant(ua, billing, read, true),
		grant(ua, billing, read, true),
	}

	user := &models.User{UserApplications: []models.UserApplication{*ua}}

	snapshot := ResolvePermissions(user)
	assert.Equal(t, []string{"READ"}, snapshot["EZH_INV_001"]["BILLING"])
}

func TestResolvePermissionsExcludesInactive(t *testing.T) {
	app := activeApp(1, "EZH_INV_001")
	inactiveApp := activeApp(2, "DISABLED_APP")
	inactiveApp.Status = models.ApplicationStatusInactive

	billing := activeModule(10, 1, "BILLING")
	disabledModule := activeModule(11, 1, "LEGACY")
	disabledModule.Status = models.ModuleStatusInactive
	read := privilege(100, "READ")

	ua := &models.UserApplication{ApplicationID: 1, IsActive: true, Application: app}
	ua.ID = 1
	// 授权行停用、模块停用，两者都不应出现在快照中
	ua.ModulePrivileges = []models.UserModulePrivilege{
		grant(ua, billing, read, false),
		grant(ua, disabledModule, read, true),
	}

	uaInactive := &models.UserApplication{ApplicationID: 2, IsActive: false, Application: inactiveApp}
	uaInactive.ID = 2

	user := &models.User{UserApplications: []models.UserApplication{*ua, *uaInactive}}

	snapshot := ResolvePermissions(user)
	// 应用有效但没有有效授权，保留空条目
	assert.Contains(t, snapshot, "EZH_INV_001")
	assert.Empty(t, snapshot["EZH_INV_001"])
	assert.NotContains(t, snapshot, "DISABLED_APP")
}

func TestResolvePermissionsSkipsCrossApplicationRows(t *testing.T) {
	app := activeApp(1, "EZH_INV_001")
	// 该模块属于另一个应用，脏数据行必须被跳过
	foreignModule := activeModule(20, 99, "FOREIGN")
	read := privilege(100, "READ")

	ua := &models.UserApplication{ApplicationID: 1, IsActive: true, Application: app}
	ua.ID = 1
	ua.ModulePrivileges = []models.UserModulePrivilege{
		grant(ua, foreignModule, read, true),
	}

	user := &models.User{UserApplications: []models.UserApplication{*ua}}

	snapshot := ResolvePermissions(user)
	assert.NotContains(t, snapshot["EZH_INV_001"], "FOREIGN")
}

func TestResolvePermissionsIdempotent(t *testing.T) {
	app := activeApp(1, "EZH_INV_001")
	billing := activeModule(10, 1, "BILLING")
	read := privilege(100, "READ")

	ua := &models.UserApplication{ApplicationID: 1, IsActive: true, Application: app}
	ua.ID = 1
	ua.ModulePrivileges = []models.UserModulePrivilege{grant(ua, billing, read, true)}

	user := &models.User{UserApplications: []models.UserApplication{*ua}}

	first := ResolvePermissions(user)
	second := ResolvePermissions(user)
	assert.Equal(t, first, second)
}

func TestResolvePermissionsNilUser(t *testing.T) {
	snapshot := ResolvePermissions(nil)
	assert.NotNil(t, snapshot)
	assert.Empty(t, snapshot)
}
