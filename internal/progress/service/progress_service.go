package service

import (
	"context"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 里程碑更新引擎。
// 单次更新（读前值、合并、重算完成率、写审计）在同一事务内以构件行锁执行：
// 同一构件的并发更新串行化，后写者胜；不同构件完全独立。
type ProgressService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	registry *TemplateRegistry
	rollup   *RollupService
	logger   *zap.Logger
	step     int // partial milestone step granularity, 1 = any integer percent
}

func NewProgressService(db *gorm.DB, repos *repository.Repositories, registry *TemplateRegistry, rollup *RollupService, logger *zap.Logger, step int) *ProgressService {
	if step < 1 {
		step = 1
	}
	return &ProgressService{
		db:       db,
		repos:    repos,
		registry: registry,
		rollup:   rollup,
		logger:   logger,
		step:     step,
	}
}

// MilestoneUpdateResult 更新结果。PreviousValue 始终返回，
// 调用方据此发现自己的快照已过期并自行调和。
type MilestoneUpdateResult struct {
	Component     *entity.Component `json:"component"`
	PreviousValue interface{}       `json:"previous_value"`
	EventID       string            `json:"event_id"`
}

// ApplyMilestoneUpdate 应用单个里程碑变更。
// 校验全部发生在写入之前；校验失败不产生任何副作用。
// 与当前值相同的更新照常执行并记录 previous==new 的审计事件（重放请求需要一致的事件序）。
func (s *ProgressService) ApplyMilestoneUpdate(ctx context.Context, componentID, milestone string, value interface{}, actorID string) (*MilestoneUpdateResult, error) {
	var result *MilestoneUpdateResult
	var drawingID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comp, err := s.repos.Component.FindByIDForUpdate(tx, componentID)
		if err != nil {
			return err
		}
		tpl, err := s.registry.Resolve(ctx, comp.ComponentType)
		if err != nil {
			return err
		}
		mcfg := tpl.Milestone(milestone)
		if mcfg == nil {
			return errMilestoneNotInTemplate(milestone, comp.ComponentType)
		}
		normalized, err := validateMilestoneValue(mcfg, value, s.step)
		if err != nil {
			return err
		}

		var weld *entity.FieldWeld
		if comp.ComponentType == entity.ComponentTypeFieldWeld {
			weld, err = s.repos.FieldWeld.FindByComponentIDTx(tx, comp.ID)
			if err != nil {
				return err
			}
			// Welder precondition is checked before any mutation
			if mcfg.RequiresWelder && isMaxValue(mcfg, normalized) && weld.WelderID == nil {
				return errWelderRequired(milestone)
			}
		}

		prev, had := comp.MilestoneValue(milestone)
		if comp.CurrentMilestones == nil {
			comp.CurrentMilestones = entity.JSONB{}
		}
		// Single-key replace under the row lock; a concurrent update to a
		// different milestone on the same component is never lost.
		comp.CurrentMilestones[milestone] = normalized
		comp.PercentComplete = CalculatePercent(tpl, comp.CurrentMilestones)

		if err := s.repos.Component.UpdateProgressTx(tx, comp); err != nil {
			return err
		}

		event := &entity.MilestoneEvent{
			ComponentID: comp.ID,
			Milestone:   milestone,
			Action:      classifyAction(mcfg, prev, had, normalized),
			NewValue:    marshalValue(normalized),
			PrevValue:   marshalValue(previousOrNil(prev, had)),
			ActorID:     actorID,
		}
		if err := s.repos.Event.CreateTx(tx, event); err != nil {
			return err
		}

		if weld != nil {
			if err := s.applyWeldMilestoneTriggers(tx, weld, mcfg, normalized); err != nil {
				return err
			}
		}

		result = &MilestoneUpdateResult{
			Component:     comp,
			PreviousValue: previousOrNil(prev, had),
			EventID:       event.ID,
		}
		drawingID = comp.DrawingID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rollup.Invalidate(ctx, drawingID)
	s.logger.Info("Milestone updated",
		zap.String("component_id", componentID),
		zap.String("milestone", milestone),
		zap.Float64("percent_complete", result.Component.PercentComplete),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

// classifyAction 审计动作判定：
// 满值为 complete；已设置且取值回落为 rollback；其余（含原值重放）为 update。
func classifyAction(m *entity.MilestoneConfig, prev interface{}, had bool, next interface{}) string {
	if had && valuesEqual(prev, next) {
		return entity.EventActionUpdate
	}
	if isMaxValue(m, next) {
		return entity.EventActionComplete
	}
	if had {
		if m.IsPartial {
			pf, pok := toNumber(prev)
			nf, nok := toNumber(next)
			if pok && nok && nf < pf {
				return entity.EventActionRollback
			}
		} else if pb, ok := prev.(bool); ok && pb {
			return entity.EventActionRollback
		}
	}
	return entity.EventActionUpdate
}

func previousOrNil(prev interface{}, had bool) interface{} {
	if !had {
		return nil
	}
	return prev
}

// GetComponent 查询构件
func (s *ProgressService) GetComponent(ctx context.Context, id string) (*entity.Component, error) {
	return s.repos.Component.FindByID(ctx, id)
}

// ListComponents 分页查询构件
func (s *ProgressService) ListComponents(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Component, int64, error) {
	return s.repos.Component.FindAll(ctx, page, pageSize, filters)
}

// ComponentEvents 查询构件审计事件
func (s *ProgressService) ComponentEvents(ctx context.Context, componentID string, page, pageSize int) ([]entity.MilestoneEvent, int64, error) {
	if _, err := s.repos.Component.FindByID(ctx, componentID); err != nil {
		return nil, 0, err
	}
	return s.repos.Event.FindByComponent(ctx, componentID, page, pageSize)
}

// CreateComponentRequest 创建构件请求
type CreateComponentRequest struct {
	DrawingID     string `json:"drawing_id" binding:"required"`
	ComponentType string `json:"component_type" binding:"required"`
	CommodityCode string `json:"commodity_code"`
	Size          string `json:"size"`
	Seq           int    `json:"seq"`
	Description   string `json:"description"`
}

// CreateComponent 手工录入构件；类型必须有可解析模板
func (s *ProgressService) CreateComponent(ctx context.Context, req *CreateComponentRequest, actorID string) (*entity.Component, error) {
	if _, err := s.registry.Resolve(ctx, req.ComponentType); err != nil {
		return nil, err
	}
	if _, err := s.repos.Drawing.FindByID(ctx, req.DrawingID); err != nil {
		return nil, err
	}

	comp := &entity.Component{
		DrawingID:         req.DrawingID,
		ComponentType:     req.ComponentType,
		CommodityCode:     req.CommodityCode,
		Size:              req.Size,
		Seq:               req.Seq,
		Description:       req.Description,
		CurrentMilestones: entity.JSONB{},
		CreatedBy:         actorID,
	}
	if comp.Seq == 0 {
		comp.Seq = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Component.CreateTx(tx, comp); err != nil {
			return err
		}
		if req.ComponentType == entity.ComponentTypeFieldWeld {
			return s.repos.FieldWeld.CreateTx(tx, &entity.FieldWeld{ComponentID: comp.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rollup.Invalidate(ctx, comp.DrawingID)
	return comp, nil
}

// RetireComponent 软删除构件并刷新汇总
func (s *ProgressService) RetireComponent(ctx context.Context, id string) error {
	comp, err := s.repos.Component.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Component.Retire(ctx, id); err != nil {
		return err
	}
	s.rollup.Invalidate(ctx, comp.DrawingID)
	return nil
}
