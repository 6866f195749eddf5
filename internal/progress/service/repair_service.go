package service

import (
	"context"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRepairMaxDepth 修复链深度上限缺省值
const DefaultRepairMaxDepth = 10

// RepairService 修复链管理。
// 修复记录是以 original_weld_id 为链接的扁平记录，不维护活动对象图；
// 走查一律用带深度计数的有界循环，不用无界递归。
type RepairService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	registry *TemplateRegistry
	rollup   *RollupService
	logger   *zap.Logger
	maxDepth int
}

func NewRepairService(db *gorm.DB, repos *repository.Repositories, registry *TemplateRegistry, rollup *RollupService, logger *zap.Logger, maxDepth int) *RepairService {
	if maxDepth <= 0 {
		maxDepth = DefaultRepairMaxDepth
	}
	return &RepairService{
		db:       db,
		repos:    repos,
		registry: registry,
		rollup:   rollup,
		logger:   logger,
		maxDepth: maxDepth,
	}
}

// RepairOverrides 修复焊口的规格覆盖；零值字段沿用原焊口
type RepairOverrides struct {
	WeldType  string `json:"weld_type"`
	WeldSize  string `json:"weld_size"`
	Schedule  string `json:"schedule"`
	BaseMetal string `json:"base_metal"`
	SpecCode  string `json:"spec_code"`
	NDEType   string `json:"nde_type"`
}

// RepairWeldResult 修复焊口创建结果
type RepairWeldResult struct {
	Weld      *entity.FieldWeld `json:"weld"`
	Component *entity.Component `json:"component"`
}

// CreateRepairWeld 为被拒焊口创建修复焊口。
// 深度达到上限时拒绝——这是刻意的熔断，无界的修复循环需要工程评审而不是静默继续。
// 新焊口复制原焊口规格（可覆盖），预置首个准备里程碑（修复跳过已完成的准备工作）。
func (s *RepairService) CreateRepairWeld(ctx context.Context, originalWeldID string, overrides *RepairOverrides, actorID string) (*RepairWeldResult, error) {
	if overrides == nil {
		overrides = &RepairOverrides{}
	}

	var result *RepairWeldResult
	var drawingID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orig, err := s.repos.FieldWeld.FindByIDTx(tx, originalWeldID)
		if err != nil {
			return err
		}
		if orig.Status != entity.WeldStatusRejected {
			// Soft precondition: the normal path arrives from the rejection
			// transition, but out-of-band creation is not blocked
			s.logger.Warn("Creating repair for a weld that is not rejected",
				zap.String("weld_id", originalWeldID),
				zap.String("status", orig.Status),
			)
		}

		if _, err := s.chainDepthTx(tx, orig); err != nil {
			return err
		}

		origComp, err := s.repos.Component.FindByID(ctx, orig.ComponentID)
		if err != nil {
			return err
		}
		tpl, err := s.registry.Resolve(ctx, entity.ComponentTypeFieldWeld)
		if err != nil {
			return err
		}

		comp := &entity.Component{
			DrawingID:         origComp.DrawingID,
			ComponentType:     entity.ComponentTypeFieldWeld,
			CommodityCode:     origComp.CommodityCode,
			Size:              origComp.Size,
			Seq:               origComp.Seq,
			Description:       origComp.Description,
			CurrentMilestones: entity.JSONB{},
			CreatedBy:         actorID,
		}
		if err := s.repos.Component.CreateTx(tx, comp); err != nil {
			return err
		}

		weld := &entity.FieldWeld{
			ComponentID:    comp.ID,
			WeldType:       override(overrides.WeldType, orig.WeldType),
			WeldSize:       override(overrides.WeldSize, orig.WeldSize),
			Schedule:       override(overrides.Schedule, orig.Schedule),
			BaseMetal:      override(overrides.BaseMetal, orig.BaseMetal),
			SpecCode:       override(overrides.SpecCode, orig.SpecCode),
			NDERequired:    orig.NDERequired,
			NDEType:        override(overrides.NDEType, orig.NDEType),
			Status:         entity.WeldStatusActive,
			OriginalWeldID: &orig.ID,
		}
		if err := s.repos.FieldWeld.CreateTx(tx, weld); err != nil {
			return err
		}

		// Repairs skip prep work already performed on the original:
		// the first milestone is credited up front
		if prep := tpl.FirstMilestone(); prep != nil {
			next := maxMilestoneValue(prep)
			comp.CurrentMilestones[prep.Name] = next
			comp.PercentComplete = CalculatePercent(tpl, comp.CurrentMilestones)
			if err := s.repos.Component.UpdateProgressTx(tx, comp); err != nil {
				return err
			}
			if err := s.repos.Event.CreateTx(tx, &entity.MilestoneEvent{
				ComponentID: comp.ID,
				Milestone:   prep.Name,
				Action:      entity.EventActionComplete,
				NewValue:    marshalValue(next),
				PrevValue:   marshalValue(nil),
				ActorID:     actorID,
				Metadata:    entity.JSONB{"repair_of": orig.ID},
			}); err != nil {
				return err
			}
		}

		result = &RepairWeldResult{Weld: weld, Component: comp}
		drawingID = comp.DrawingID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rollup.Invalidate(ctx, drawingID)
	s.logger.Info("Repair weld created",
		zap.String("original_weld_id", originalWeldID),
		zap.String("repair_weld_id", result.Weld.ID),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

func override(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// chainDepthTx 有界回溯修复链并返回深度。
// 直接自引用当场拒绝；多跳环由深度上限兜底，访问集合作为双保险。
func (s *RepairService) chainDepthTx(tx *gorm.DB, start *entity.FieldWeld) (int, error) {
	depth := 1
	visited := map[string]bool{start.ID: true}
	cur := start
	for cur.OriginalWeldID != nil && *cur.OriginalWeldID != "" {
		if *cur.OriginalWeldID == cur.ID {
			return 0, errRepairChainTooDeep(s.maxDepth)
		}
		if depth >= s.maxDepth {
			return 0, errRepairChainTooDeep(s.maxDepth)
		}
		next, err := s.repos.FieldWeld.FindByIDTx(tx, *cur.OriginalWeldID)
		if err == repository.ErrNotFound {
			// Dangling reference after deletion of the original: chain terminus
			break
		}
		if err != nil {
			return 0, err
		}
		if visited[next.ID] {
			return 0, errRepairChainTooDeep(s.maxDepth)
		}
		visited[next.ID] = true
		depth++
		cur = next
	}
	return depth, nil
}

// RepairChainEntry 修复链展示条目，携带各环节自身的状态和NDE快照
type RepairChainEntry struct {
	Weld            *entity.FieldWeld `json:"weld"`
	PercentComplete float64           `json:"percent_complete"`
}

// RepairHistory 返回焊口所在修复链，旧在前，受同一深度上限约束。
// original_weld_id 指向已删除记录时视为链首，不报错。
func (s *RepairService) RepairHistory(ctx context.Context, weldID string) ([]RepairChainEntry, error) {
	start, err := s.repos.FieldWeld.FindByID(ctx, weldID)
	if err != nil {
		return nil, err
	}

	// Walk back to the oldest weld
	chain := []*entity.FieldWeld{start}
	visited := map[string]bool{start.ID: true}
	cur := start
	for len(chain) < s.maxDepth && cur.OriginalWeldID != nil && *cur.OriginalWeldID != "" {
		if *cur.OriginalWeldID == cur.ID {
			break
		}
		prev, err := s.repos.FieldWeld.FindByID(ctx, *cur.OriginalWeldID)
		if err == repository.ErrNotFound {
			break
		}
		if err != nil {
			return nil, err
		}
		if visited[prev.ID] {
			break
		}
		visited[prev.ID] = true
		chain = append(chain, prev)
		cur = prev
	}

	// Reverse into oldest-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	// Walk forward from the requested weld to pick up later repairs
	cur = start
	for len(chain) < s.maxDepth {
		repairs, err := s.repos.FieldWeld.FindRepairs(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		if len(repairs) == 0 {
			break
		}
		next := &repairs[0]
		if visited[next.ID] {
			break
		}
		visited[next.ID] = true
		chain = append(chain, next)
		cur = next
	}

	entries := make([]RepairChainEntry, 0, len(chain))
	for _, w := range chain {
		entry := RepairChainEntry{Weld: w}
		if comp, err := s.repos.Component.FindByID(ctx, w.ComponentID); err == nil {
			entry.PercentComplete = comp.PercentComplete
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
