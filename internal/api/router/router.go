package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roselle-luo/KexieSignSystem/config"
	"github.com/roselle-luo/KexieSignSystem/internal/api/handler"
	"github.com/roselle-luo/KexieSignSystem/internal/api/middleware"
	"github.com/roselle-luo/KexieSignSystem/pkg/jwt"
	"github.com/roselle-luo/KexieSignSystem/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 签到模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("/sign-in", h.Attendance.SignIn)
				attendance.POST("/sign-out", h.Attendance.SignOut)
				attendance.GET("/records", h.Attendance.ListRecords)
				attendance.GET("/terms", h.Attendance.ListTerms)
				attendance.GET("/online", middleware.RoleAuth("admin", "manager"), h.Attendance.ListOnline)
			}

			// 申诉模块
			appeals := authorized.Group("/appeals")
			{
				appeals.POST("", h.Appeal.FileAppeal)
				appeals.GET("", middleware.RoleAuth("admin", "manager"), h.Appeal.ListAppeals)
				appeals.POST("/deal", middleware.RoleAuth("admin", "manager"), h.Appeal.DealAppeal)
			}

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth("admin", "manager"), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth("admin", "manager"), h.User.GetUser)
				// 内部接口：凭请求体中的内部凭证授权，角色不设限
				users.POST("/:id/time", h.User.ModifyTime)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/records", h.Export.ExportRecordsXLSX)
				export.GET("/calendar", h.Export.ExportRecordsICS)
			}
		}
	}

	return r
}
