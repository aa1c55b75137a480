package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/api/handler"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/api/router"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/database"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/jwt"
	applogger "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/logger"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Attendance.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，批量锁退化为进程内锁，限流与 Token 黑名单不可用", zap.Error(err))
		rdb = nil
	}

	var locker service.Locker
	if rdb != nil {
		locker = service.NewLocker(rdb, cfg.Batch.LockTTL, cfg.Batch.LockWait, logger)
	} else {
		locker = service.NewLocker(nil, cfg.Batch.LockTTL, cfg.Batch.LockWait, logger)
	}

	// 5. 日期归一化器：业务时区只在这里注入
	norm, err := datenorm.New(cfg.Attendance.Timezone, clock.Real())
	if err != nil {
		logger.Fatal("加载业务时区失败", zap.Error(err))
	}

	// 6. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, norm, locker, clock.Real(), logger)

	var health *handler.HealthHandler
	if rdb != nil {
		health = handler.NewHealthHandler(repo, rdb)
	} else {
		health = handler.NewHealthHandler(repo, nil)
	}
	h := handler.NewHandler(svc, health)

	// 8. 后台维护任务：清理超过宽限期的待删除站点
	bgCtx, stopBackground := context.WithCancel(context.Background())
	go svc.Maintenance.Run(bgCtx)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
