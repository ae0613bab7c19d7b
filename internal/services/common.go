package services

import (
	"gorm.io/gorm"

	"ezauth/internal/database"
	"ezauth/internal/models"
	"ezauth/pkg/errors"
)

// CommonService 目录类公共查询
type CommonService struct {
	db *gorm.DB
}

func NewCommonService() *CommonService {
	return &CommonService{
		db: database.GetDB(),
	}
}

// GetApplicationsOfTenant 获取租户挂接的应用列表
func (s *CommonService) GetApplicationsOfTenant(tenantID uint) ([]models.Application, error) {
	var tenant models.Tenant
	err := s.db.Preload("Applications").First(&tenant, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, err
	}
	return tenant.Applications, nil
}

// GetModulesByApplication 获取应用的模块列表（含各模块权限）
func (s *CommonService) GetModulesByApplication(applicationID uint) ([]models.Module, error) {
	var app models.Application
	if err := s.db.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidApplication
		}
		return nil, err
	}

	var modules []models.Module
	err := s.db.Preload("Privileges").
		Where("application_id = ?", applicationID).
		Order("module_key").
		Find(&modules).Error
	if err != nil {
		return nil, err
	}
	return modules, nil
}

// GetRolesOfTenant 获取租户下的角色列表
func (s *CommonService) GetRolesOfTenant(tenantID uint) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.Where("tenant_id = ?", tenantID).Order("role_name").Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}
