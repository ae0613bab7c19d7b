package router

import (
	"ezauth/internal/database"
	"ezauth/internal/handlers"
	"ezauth/internal/middleware"
	"ezauth/pkg/response"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())
	// 静默认证：有令牌就解析身份，没有就匿名放行
	router.Use(middleware.Authenticate())

	// 注册路由
	registerRoutes(router)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {

	auth := middleware.NewAuthMiddleware()

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由（登录注册无需认证）
		authHandler := handlers.NewAuthHandler()
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/sign-in", authHandler.SignIn)
			authGroup.POST("/google", authHandler.GoogleSignIn)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.GET("/validate", authHandler.ValidateToken)

			// 用户初始化快照（身份 + 角色 + 权限）
			authGroup.GET("/user/init", authHandler.InitUser)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.CurrentIdentity)
		}

		// 租户路由
		tenantHandler := handlers.NewTenantHandler()
		tenants := api.Group("/tenants")
		{
			// 租户注册是公开接口
			tenants.POST("/register", tenantHandler.Register)

			tenants.GET("", auth.RequireLogin(), auth.RequireSuperAdmin(), tenantHandler.GetAll)
			tenants.GET("/:id", auth.RequireLogin(), tenantHandler.GetByID)
			tenants.POST("/batch", auth.RequireLogin(), tenantHandler.GetByIDs)
			tenants.PUT("/:id", auth.RequireLogin(), auth.RequireSuperAdmin(), tenantHandler.Update)
			tenants.POST("/:id/activate", auth.RequireLogin(), auth.RequireSuperAdmin(), tenantHandler.Activate)
			tenants.POST("/:id/deactivate", auth.RequireLogin(), auth.RequireSuperAdmin(), tenantHandler.Deactivate)
		}

		// 用户路由
		userHandler := handlers.NewUserHandler()
		users := api.Group("/users")
		{
			users.POST("", auth.RequireLogin(), auth.RequireSuperAdmin(), userHandler.Create)
			users.GET("", auth.RequireLogin(), userHandler.GetAll)
			users.GET("/:id", auth.RequireLogin(), userHandler.GetByID)
			users.POST("/batch", auth.RequireLogin(), userHandler.GetByIDs)
			users.PUT("/:id", auth.RequireLogin(), auth.RequireSuperAdmin(), userHandler.Update)
			users.POST("/:id/toggle-status", auth.RequireLogin(), auth.RequireSuperAdmin(), userHandler.ToggleStatus)
		}

		// 目录类公共查询
		commonHandler := handlers.NewCommonHandler()
		common := api.Group("/common")
		{
			common.GET("/tenants/:id/applications", auth.RequireLogin(), commonHandler.GetTenantApplications)
			common.GET("/tenants/:id/roles", auth.RequireLogin(), commonHandler.GetTenantRoles)
			common.GET("/tenants/:id/subscription", auth.RequireLogin(), commonHandler.GetTenantSubscription)
			common.GET("/applications/:id/modules", auth.RequireLogin(), commonHandler.GetApplicationModules)
		}
	}
}

// 健康检查
func healthCheck(c *gin.Context) {
	sqlDB, err := database.GetDB().DB()
	if err != nil {
		response.ServerError(c, "数据库连接异常")
		return
	}
	if err := sqlDB.Ping(); err != nil {
		response.ServerError(c, "数据库连接异常")
		return
	}

	response.Success(c, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ping
func ping(c *gin.Context) {
	response.Success(c, gin.H{"message": "pong"})
}
