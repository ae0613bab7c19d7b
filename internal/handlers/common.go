package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ezauth/internal/services"
	"ezauth/pkg/response"
)

type CommonHandler struct {
	service      *services.CommonService
	subscription *services.SubscriptionService
}

func NewCommonHandler() *CommonHandler {
	return &CommonHandler{
		service:      services.NewCommonService(),
		subscription: services.NewSubscriptionService(),
	}
}

// GetTenantApplications 获取租户挂接的应用列表
func (h *CommonHandler) GetTenantApplications(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "租户ID格式错误")
		return
	}

	apps, err := h.service.GetApplicationsOfTenant(uint(tenantID))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, apps)
}

// GetApplicationModules 获取应用的模块目录（含权限）
func (h *CommonHandler) GetApplicationModules(c *gin.Context) {
	appID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "应用ID格式错误")
		return
	}

	modules, err := h.service.GetModulesByApplication(uint(appID))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, modules)
}

// GetTenantRoles 获取租户下的角色列表
func (h *CommonHandler) GetTenantRoles(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "租户ID格式错误")
		return
	}

	roles, err := h.service.GetRolesOfTenant(uint(tenantID))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, roles)
}

// GetTenantSubscription 获取租户当前订阅
func (h *CommonHandler) GetTenantSubscription(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "租户ID格式错误")
		return
	}

	subscription, err := h.subscription.GetCurrent(uint(tenantID))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, subscription)
}
