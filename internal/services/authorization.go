package services

import (
	"sort"
	"strings"
	"time"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/errors"

	"gorm.io/gorm"
)

// PermissionSnapshot 解析后的权限快照：应用Key -> 模块Key -> 权限Key列表（去重后排序）
type PermissionSnapshot map[string]map[string][]string

// AuthorizationService 权限解析引擎
// 解析本身是对已加载关联的纯计算，数据库只在加载用户时参与
type AuthorizationService struct {
	db *gorm.DB
}

func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{
		db: database.GetDB(),
	}
}

// LoadUserForAuthorization 加载用户及权限解析所需的全部关联
func (s *AuthorizationService) LoadUserForAuthorization(userID uint) (*models.User, error) {
	var user models.User
	err := s.db.
		Preload("Tenant").
		Preload("UserRoles.Role").
		Preload("UserApplications.Application").
		Preload("UserApplications.ModulePrivileges.Module").
		Preload("UserApplications.ModulePrivileges.Privilege").
		First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// LoadUserByEmail 按邮箱加载用户及角色关联，供登录使用
func (s *AuthorizationService) LoadUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.
		Preload("UserRoles.Role").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RoleKeysOf 提取用户有效角色Key，逗号拼接，顺序不保证
// 结果永远是字符串，空角色集返回""
func RoleKeysOf(user *models.User) string {
	if user == nil || len(user.UserRoles) == 0 {
		return ""
	}

	now := time.Now()
	var keys []string
	for i := range user.UserRoles {
		ur := &user.UserRoles[i]
		if !ur.IsEffective(now) {
			continue
		}
		if ur.Role == nil {
			continue
		}
		keys = append(keys, ur.Role.RoleKey)
	}
	return strings.Join(keys, ",")
}

// IsSuperAdmin 任一有效UserRole指向SUPER_ADMIN角色即为超级管理员
func IsSuperAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	now := time.Now()
	for i := range user.UserRoles {
		ur := &user.UserRoles[i]
		if !ur.IsEffective(now) {
			continue
		}
		if ur.Role != nil && ur.Role.RoleKey == models.RoleKeySuperAdmin {
			return true
		}
	}
	return false
}

// ResolvePermissions 为用户解析权限快照
//
// 逐个有效UserApplication、逐条有效授权行，按模块Key归并为权限Key集合。
// 同一(userApplication, module, privilege)三元组的重复行通过集合并集
// 自然坍缩为一条逻辑授权，不报错。授权行按(module, userApplication)对
// 限定范围：模块必须属于该UserApplication指向的应用，跨应用的脏数据行
// 直接跳过而不是信任全局模块ID
func ResolvePermissions(user *models.User) PermissionSnapshot {
	snapshot := make(PermissionSnapshot)
	if user == nil {
		return snapshot
	}

	for i := range user.UserApplications {
		ua := &user.UserApplications[i]
		if !ua.IsActive {
			continue
		}
		if ua.Application == nil || !ua.Application.IsActive() {
			continue
		}

		appKey := ua.Application.AppKey
		moduleSets := make(map[string]map[string]struct{})

		for j := range ua.ModulePrivileges {
			ump := &ua.ModulePrivileges[j]
			if !ump.IsActive {
				continue
			}
			if ump.Module == nil || ump.Privilege == nil {
				continue
			}
			if !ump.Module.IsActive() {
				continue
			}
			// 防御性校验：模块必须隶属于该UserApplication的应用
			if ump.Module.ApplicationID != ua.ApplicationID {
				continue
			}

			moduleKey := ump.Module.ModuleKey
			if moduleSets[moduleKey] == nil {
				moduleSets[moduleKey] = make(map[string]struct{})
			}
			moduleSets[moduleKey][ump.Privilege.PrivilegeKey] = struct{}{}
		}

		if len(moduleSets) == 0 {
			// 应用有效但没有任何有效授权，快照中仍保留应用条目
			if snapshot[appKey] == nil {
				snapshot[appKey] = make(map[string][]string)
			}
			continue
		}

		if snapshot[appKey] == nil {
			snapshot[appKey] = make(map[string][]string)
		}
		for moduleKey, privSet := range moduleSets {
			merged := privSet
			// 同一应用出现多个UserApplication时（理论上唯一约束阻止），并集合并
			for _, existing := range snapshot[appKey][moduleKey] {
				merged[existing] = struct{}{}
			}
			keys := make([]string, 0, len(merged))
			for k := range merged {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			snapshot[appKey][moduleKey] = keys
		}
	}

	return snapshot
}

// HasPrivilege 快照查询辅助
func (p PermissionSnapshot) HasPrivilege(appKey, moduleKey, privilegeKey string) bool {
	modules, ok := p[appKey]
	if !ok {
		return false
	}
	privileges, ok := modules[moduleKey]
	if !ok {
		return false
	}
	for _, key := range privileges {
		if key == privilegeKey {
			return true
		}
	}
	return false
}
