package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/handler"
	"github.com/huaiminqin/collection-self/internal/middleware"
	"github.com/huaiminqin/collection-self/internal/repository"
	"github.com/huaiminqin/collection-self/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting collection service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 自动建表
	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	// 无管理员时创建初始账号
	if err := services.Auth.EnsureDefaultAdmin(context.Background()); err != nil {
		zapLogger.Fatal("Failed to ensure default admin", zap.Error(err))
	}

	// 启动自动提醒调度器
	if err := services.Scheduler.Start(); err != nil {
		zapLogger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	services.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.College{},
		&entity.Grade{},
		&entity.Class{},
		&entity.Member{},
		&entity.Task{},
		&entity.Submission{},
		&entity.Admin{},
		&entity.Setting{},
		&entity.ReminderLog{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 登录 (无需认证)
		v1.POST("/auth/login", h.Auth.Login)

		// 成员提交入口 (无需认证，用学号识别身份)
		v1.GET("/tasks", h.Task.List)
		v1.GET("/tasks/:id", h.Task.Get)
		v1.GET("/members/lookup", h.Member.Lookup)

		submissions := v1.Group("/submissions")
		{
			submissions.POST("/upload", h.Submission.Upload)
			submissions.POST("/text", h.Submission.SubmitText)
			submissions.POST("/questionnaire", h.Submission.SubmitQuestionnaire)
			submissions.GET("/mine", h.Submission.ListOwn)
			submissions.GET("/public", h.Submission.ListPublic)
			submissions.DELETE("/:id/own", h.Submission.DeleteOwn)
		}

		// 管理端接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前管理员
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.POST("/auth/change-password", h.Auth.ChangePassword)

			// 组织结构
			authorized.GET("/colleges", h.Organization.ListColleges)
			authorized.POST("/colleges", h.Organization.CreateCollege)
			authorized.PUT("/colleges/:id", h.Organization.UpdateCollege)
			authorized.DELETE("/colleges/:id", h.Organization.DeleteCollege)

			authorized.GET("/grades", h.Organization.ListGrades)
			authorized.POST("/grades", h.Organization.CreateGrade)
			authorized.PUT("/grades/:id", h.Organization.UpdateGrade)
			authorized.DELETE("/grades/:id", h.Organization.DeleteGrade)

			authorized.GET("/classes", h.Organization.ListClasses)
			authorized.GET("/classes/:id", h.Organization.GetClass)
			authorized.POST("/classes", h.Organization.CreateClass)
			authorized.PUT("/classes/:id", h.Organization.UpdateClass)
			authorized.DELETE("/classes/:id", h.Organization.DeleteClass)

			// 成员管理
			members := authorized.Group("/members")
			{
				members.GET("", h.Member.List)
				members.POST("", h.Member.Create)
				members.GET("/template", h.Member.Template)
				members.GET("/export", h.Member.Export)
				members.POST("/import", h.Member.Import)
				members.GET("/:id", h.Member.Get)
				members.PUT("/:id", h.Member.Update)
				members.DELETE("/:id", h.Member.Delete)
			}

			// 任务管理
			tasks := authorized.Group("/tasks")
			{
				tasks.POST("", h.Task.Create)
				tasks.PUT("/:id", h.Task.Update)
				tasks.DELETE("/:id", h.Task.Delete)
				tasks.GET("/:id/stats", h.Task.Stats)
				tasks.GET("/:id/members", h.Task.Members)
				tasks.GET("/:id/unsubmitted", h.Task.Unsubmitted)
				tasks.POST("/:id/remind", h.Task.Remind)
				tasks.GET("/:id/reminder-logs", h.Task.ReminderLogs)

				// 导出
				tasks.GET("/:id/export/preview", h.Export.Preview)
				tasks.GET("/:id/export/archive", h.Export.Archive)
				tasks.GET("/:id/export/questionnaire", h.Export.Questionnaire)
				tasks.GET("/:id/export/status", h.Export.Status)
			}

			// 提交管理
			adminSubs := authorized.Group("/submissions")
			{
				adminSubs.GET("", h.Submission.List)
				adminSubs.GET("/:id", h.Submission.Get)
				adminSubs.GET("/:id/download", h.Submission.Download)
				adminSubs.GET("/:id/preview", h.Submission.Preview)
				adminSubs.DELETE("/:id", h.Submission.Delete)
			}

			// 系统设置
			authorized.GET("/settings/smtp", h.Setting.GetSMTP)
			authorized.PUT("/settings/smtp", h.Setting.UpdateSMTP)
		}
	}
}
