package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RollupService 图纸级进度汇总。
// 汇总是带失效契约的缓存，不是事实来源：里程碑写提交后先删键，
// 下次读取惰性重算，保证读到的汇总不早于最近一次提交。
type RollupService struct {
	rdb      *redis.Client // nil 时直接实时聚合
	repos    *repository.Repositories
	logger   *zap.Logger
	cacheTTL time.Duration
}

func NewRollupService(rdb *redis.Client, repos *repository.Repositories, logger *zap.Logger, cacheTTL time.Duration) *RollupService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RollupService{
		rdb:      rdb,
		repos:    repos,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

func rollupKey(drawingID string) string {
	return fmt.Sprintf("rollup:drawing:%s", drawingID)
}

// DrawingRollup 读取图纸汇总：缓存命中直接返回，否则聚合后回填。
// 零构件图纸的平均完成率为未定义（null），不是0。
func (s *RollupService) DrawingRollup(ctx context.Context, drawingID string) (*entity.DrawingProgress, error) {
	if _, err := s.repos.Drawing.FindByID(ctx, drawingID); err != nil {
		return nil, err
	}

	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, rollupKey(drawingID)).Bytes()
		if err == nil {
			var p entity.DrawingProgress
			if json.Unmarshal(data, &p) == nil {
				return &p, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("Rollup cache read failed, recomputing", zap.String("drawing_id", drawingID), zap.Error(err))
		}
	}

	rollup, err := s.repos.Component.AggregateByDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(rollup); err == nil {
			if err := s.rdb.Set(ctx, rollupKey(drawingID), data, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("Rollup cache write failed", zap.String("drawing_id", drawingID), zap.Error(err))
			}
		}
	}
	return rollup, nil
}

// Invalidate 标记图纸汇总过期。每次成功的里程碑提交后调用。
func (s *RollupService) Invalidate(ctx context.Context, drawingID string) {
	if s.rdb == nil || drawingID == "" {
		return
	}
	if err := s.rdb.Del(ctx, rollupKey(drawingID)).Err(); err != nil {
		s.logger.Warn("Rollup cache invalidation failed", zap.String("drawing_id", drawingID), zap.Error(err))
	}
}
