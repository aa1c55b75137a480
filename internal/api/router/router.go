package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/api/handler"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/api/middleware"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/jwt"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/redis"
)

// 批量写入接口限流：每用户每分钟 10 次
const (
	batchApplyLimit  = 10
	batchApplyWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流自动放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		admin := middleware.RoleAuth(middleware.RoleAdmin, middleware.RoleRoot)

		// 站点模块
		sites := authorized.Group("/sites")
		{
			sites.GET("/:id/schedule", h.Schedule.Resolve)
			sites.GET("/:id/base-schedule", h.Schedule.GetBaseSchedule)
			sites.PUT("/:id/base-schedule", admin, h.Schedule.SetBaseSchedule)
			sites.PUT("/:id/day-exceptions", admin, h.Schedule.PutDayException)
			sites.POST("/:id/range-exceptions", admin, h.Schedule.AddRangeException)
			sites.GET("/:id/report", h.Attendance.SiteReport)
			sites.GET("/:id/calendars/:year", h.Calendar.GetSiteCalendar)
			sites.GET("/:id/calendars/:year/ics", h.Export.ExportSiteCalendarICS)
			sites.POST("/:id/calendars/:year/ics", admin, h.Calendar.ImportSiteCalendarICS)
		}

		// 员工模块
		workers := authorized.Group("/workers")
		{
			workers.GET("/:id/report", h.Attendance.WorkerReport)
			workers.GET("/:id/report/export", h.Export.ExportWorkerReport)
			workers.GET("/:id/calendars/:year", h.Calendar.GetWorkerCalendar)
			workers.PUT("/:id/principal-site", admin, h.Worker.ChangePrincipalSite)
			workers.POST("/:id/deactivate", admin, h.Worker.Deactivate)
		}

		// 考勤面板
		authorized.GET("/attendance/today", h.Attendance.PresentToday)

		// 批量日历助手
		batches := authorized.Group("/calendar-batches", admin)
		{
			batches.POST("/preview", h.CalendarBatch.Preview)
			batches.POST("", middleware.RateLimit(rdb, batchApplyLimit, batchApplyWindow), h.CalendarBatch.Apply)
			batches.DELETE("/:batchId", h.CalendarBatch.Undo)
		}
	}

	return r
}
