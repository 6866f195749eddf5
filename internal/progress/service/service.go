package service

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/config"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Registry *TemplateRegistry
	Progress *ProgressService
	Repair   *RepairService
	Rollup   *RollupService
	Welder   *WelderService
	Import   *ImportService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	registry := NewTemplateRegistry(repos.Template, logger)
	rollup := NewRollupService(rdb, repos, logger, cfg.Progress.RollupCacheTTL)

	return &Services{
		Registry: registry,
		Progress: NewProgressService(db, repos, registry, rollup, logger, cfg.Progress.MilestoneStep),
		Repair:   NewRepairService(db, repos, registry, rollup, logger, cfg.Progress.RepairMaxDepth),
		Rollup:   rollup,
		Welder:   NewWelderService(repos, logger),
		Import:   NewImportService(db, repos, registry, rollup, logger),
	}
}
