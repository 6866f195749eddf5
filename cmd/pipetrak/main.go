package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clachance14/PipeTrakV2-sub010/internal/config"
	"github.com/clachance14/PipeTrakV2-sub010/internal/middleware"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/handler"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

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

	zapLogger.Info("Starting pipetrak service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate
	if err := db.AutoMigrate(
		&entity.Drawing{},
		&entity.Component{},
		&entity.ProgressTemplate{},
		&entity.MilestoneConfig{},
		&entity.FieldWeld{},
		&entity.Welder{},
		&entity.MilestoneEvent{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 手动补充约束和索引（AutoMigrate 不处理 CHECK 约束和部分索引）
	migrationSQL := []string{
		"ALTER TABLE components DROP CONSTRAINT IF EXISTS components_percent_complete_check",
		"ALTER TABLE components ADD CONSTRAINT components_percent_complete_check CHECK (percent_complete >= 0 AND percent_complete <= 100)",
		"ALTER TABLE field_welds DROP CONSTRAINT IF EXISTS field_welds_status_check",
		"ALTER TABLE field_welds ADD CONSTRAINT field_welds_status_check CHECK (status IN ('active', 'accepted', 'rejected'))",
		// 修复链引用断开时置空，遍历按链首处理
		"ALTER TABLE field_welds DROP CONSTRAINT IF EXISTS fk_field_welds_original",
		"ALTER TABLE field_welds ADD CONSTRAINT fk_field_welds_original FOREIGN KEY (original_weld_id) REFERENCES field_welds(id) ON DELETE SET NULL",
		"CREATE INDEX IF NOT EXISTS idx_components_drawing_active ON components(drawing_id) WHERE retired = false",
		"CREATE INDEX IF NOT EXISTS idx_milestone_events_component_created ON milestone_events(component_id, created_at DESC)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)

	// Seed: 默认进度模板
	if err := service.SeedDefaultTemplates(context.Background(), repos.Template, zapLogger); err != nil {
		zapLogger.Warn("Template seed warning", zap.Error(err))
	}

	services := service.NewServices(db, repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, repos)

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
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
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
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 图纸
			drawings := authorized.Group("/drawings")
			{
				drawings.GET("", h.Drawing.List)
				drawings.POST("", h.Drawing.Create)
				drawings.GET("/:id", h.Drawing.Get)
				drawings.GET("/:id/rollup", h.Drawing.Rollup)
			}

			// 构件与里程碑
			components := authorized.Group("/components")
			{
				components.GET("", h.Component.List)
				components.POST("", h.Component.Create)
				components.GET("/:id", h.Component.Get)
				components.DELETE("/:id", h.Component.Retire)
				components.PATCH("/:id/milestones", h.Component.UpdateMilestone)
				components.GET("/:id/events", h.Component.Events)
			}

			// 现场焊口
			welds := authorized.Group("/welds")
			{
				welds.GET("/:id", h.Weld.Get)
				welds.POST("/:id/nde", h.Weld.RecordNDE)
				welds.PUT("/:id/welder", h.Weld.AssignWelder)
				welds.POST("/:id/repairs", h.Weld.CreateRepair)
				welds.GET("/:id/history", h.Weld.History)
			}

			// 焊工名册
			welders := authorized.Group("/welders")
			{
				welders.GET("", h.Welder.List)
				welders.POST("", h.Welder.Create)
				welders.GET("/:id", h.Welder.Get)
				welders.DELETE("/:id", h.Welder.Delete)
			}

			// 进度模板（只读）
			templates := authorized.Group("/templates")
			{
				templates.GET("", h.Template.List)
				templates.GET("/:component_type", h.Template.GetByType)
			}

			// 批量导入
			authorized.POST("/imports/welds", h.Import.ImportWelds)
		}
	}
}
