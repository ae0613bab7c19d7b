package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ezauth/internal/services"
	"ezauth/pkg/pagination"
	"ezauth/pkg/response"
)

type CreateUserRequest struct {
	FullName     string                   `json:"full_name" binding:"required"`
	Email        string                   `json:"email" binding:"required,email"`
	Phone        *string                  `json:"phone"`
	Password     string                   `json:"password" binding:"required,min=8"`
	UserType     string                   `json:"user_type"`
	TenantID     uint                     `json:"tenant_id" binding:"required"`
	RoleIDs      []uint                   `json:"role_ids"`
	Applications []UserApplicationRequest `json:"applications"`
}

type UserApplicationRequest struct {
	ApplicationID uint                     `json:"application_id" binding:"required"`
	Privileges    []ModulePrivilegeRequest `json:"privileges"`
}

type ModulePrivilegeRequest struct {
	ModuleID    uint `json:"module_id" binding:"required"`
	PrivilegeID uint `json:"privilege_id" binding:"required"`
}

type UpdateUserRequest struct {
	FullName     *string                  `json:"full_name"`
	Phone        *string                  `json:"phone"`
	UserType     *string                  `json:"user_type"`
	RoleIDs      []uint                   `json:"role_ids"`
	Applications []UserApplicationRequest `json:"applications"`
}

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler() *UserHandler {
	return &UserHandler{
		service: services.NewUserService(),
	}
}

// ========== 基础CRUD方法 ==========

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	input := &services.UserCreateInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     req.Password,
		UserType:     req.UserType,
		TenantID:     req.TenantID,
		RoleIDs:      req.RoleIDs,
		Applications: toApplicationInputs(req.Applications),
	}

	user, err := h.service.Create(input)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, user)
}

// GetByID 获取用户
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.GetByID(uint(id))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, user)
}

// GetAll 获取用户列表（按租户）
func (h *UserHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	tenantID, err := strconv.ParseUint(c.Query("tenant_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "租户ID格式错误")
		return
	}

	users, total, err := h.service.GetWithFiltersAndPage(uint(tenantID), status, keyword, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, users, pageInfo)
}

// GetByIDs 批量获取用户
func (h *UserHandler) GetByIDs(c *gin.Context) {
	var req BatchGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	users, err := h.service.GetByIDs(req.IDs)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, users)
}

// Update 更新用户（基本信息 + 角色/应用授权差量同步）
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	input := &services.UserUpdateInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		UserType: req.UserType,
		RoleIDs:  req.RoleIDs,
	}
	if req.Applications != nil {
		input.Applications = toApplicationInputs(req.Applications)
	}

	user, err := h.service.Update(uint(id), input)
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, user)
}

// ToggleStatus 切换用户激活状态（超级管理员不可停用）
func (h *UserHandler) ToggleStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.ToggleStatus(uint(id))
	if err != nil {
		response.BusinessError(c, err)
		return
	}

	response.Success(c, user)
}

func toApplicationInputs(reqs []UserApplicationRequest) []services.UserApplicationInput {
	inputs := make([]services.UserApplicationInput, 0, len(reqs))
	for _, r := range reqs {
		input := services.UserApplicationInput{ApplicationID: r.ApplicationID}
		for _, p := range r.Privileges {
			input.Privileges = append(input.Privileges, services.ModulePrivilegeInput{
				ModuleID:    p.ModuleID,
				PrivilegeID: p.PrivilegeID,
			})
		}
		inputs = append(inputs, input)
	}
	return inputs
}
