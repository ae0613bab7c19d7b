package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ezauth/internal/services"
	"ezauth/pkg/pagination"
	"ezauth/pkg/response"
)

type RegisterTenantRequest struct {
	TenantName    string          `json:"tenant_name" validate:"required,min=2,max=100"`
	AppKey        string          `json:"app_key" validate:"required"`
	IsPersonal    bool            `json:"is_personal"`
	AdminFullName string          `json:"admin_full_name" validate:"required,min=2,max=100"`
	AdminEmail    string          `json:"admin_email" validate:"required,email"`
	AdminPhone    *string         `json:"admin_phone"`
	Password      string          `json:"password" validate:"required,min=8"`
	Address       *AddressRequest `json:"address"`
}

type AddressRequest struct {
	ID           *uint  `json:"id"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	Route        string `json:"route"`
	Area         string `json:"area"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PinCode      string `json:"pin_code"`
	AddressType  string `json:"address_type"`
}

type UpdateTenantRequest struct {
	AdminPhone *string         `json:"admin_phone"`
	Address    *AddressRequest `json:"address"`
}

type BatchGetRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

type TenantHandler struct {
	service  *services.TenantService
	validate *validator.Validate
}

func NewTenantHandler() *TenantHandler {
	return &TenantHandler{
		service:  services.NewTenantService(),
		validate: validator.New(),
	}
}

// Register 租户注册（公开接口）
func (h *TenantHandler) Register(c *gin.Context) {
	var req RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(c, "参数校验失败: "+err.Error())
		return
	}

	input := &services.TenantRegistrationInput{
		TenantName:    req.TenantName,
		AppKey:        req.AppKey,
		IsPersonal:    req.IsPersonal,
		AdminFullName: req.AdminFullName,
		AdminEmail:    req.AdminEmail,
		AdminPhone:    req.AdminPhone,
		Password:      req.Password,
		Address:       toAddressInput(req.Address),
	}

	result, err := h.service.Register(input)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户注册成功", result)
}

// GetAll 获取租户列表
func (h *TenantHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	tenants, total, err := h.service.GetWithFiltersAndPage(status, keyword, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, tenants, pageInfo)
}

// GetByID 获取租户详情
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.GetByID(uint(id))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, tenant)
}

// GetByIDs 批量获取租户
func (h *TenantHandler) GetByIDs(c *gin.Context) {
	var req BatchGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenants, err := h.service.GetByIDs(req.IDs)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tenants)
}

// Update 更新租户（管理员电话和地址）
func (h *TenantHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.Update(uint(id), req.AdminPhone, toAddressInput(req.Address))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, tenant)
}

// Activate 激活租户
func (h *TenantHandler) Activate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.Activate(uint(id))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, tenant)
}

// Deactivate 停用租户
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.Deactivate(uint(id))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, tenant)
}

func toAddressInput(req *AddressRequest) *services.AddressInput {
	if req == nil {
		return nil
	}
	return &services.AddressInput{
		ID:           req.ID,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		Route:        req.Route,
		Area:         req.Area,
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		PinCode:      req.PinCode,
		AddressType:  req.AddressType,
	}
}
