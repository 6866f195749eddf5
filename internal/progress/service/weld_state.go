package service

import (
	"context"
	"time"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 焊口状态机。状态转移由里程碑引擎同步调用，而不是存储层的隐式副作用，
// 这样转移顺序和幂等性可单独测试：
//
//	active ──NDE PASS──▶ accepted
//	active ──NDE FAIL──▶ rejected （全部里程碑强制完成，剩余工作由修复焊口承载）

// applyWeldMilestoneTriggers 里程碑变更后的焊口状态联动。
// 终态里程碑置真即视为验收通过。
func (s *ProgressService) applyWeldMilestoneTriggers(tx *gorm.DB, weld *entity.FieldWeld, m *entity.MilestoneConfig, value interface{}) error {
	if m.Name != entity.MilestoneAccepted {
		return nil
	}
	if isMaxValue(m, value) {
		if weld.Status == entity.WeldStatusActive {
			weld.Status = entity.WeldStatusAccepted
			return s.repos.FieldWeld.UpdateTx(tx, weld)
		}
		return nil
	}
	// Terminal milestone rolled back on an accepted weld: correction path
	if weld.Status == entity.WeldStatusAccepted {
		weld.Status = entity.WeldStatusActive
		return s.repos.FieldWeld.UpdateTx(tx, weld)
	}
	return nil
}

// RecordNDERequest 记录NDE检验结果请求
type RecordNDERequest struct {
	Result  string     `json:"result" binding:"required"` // PASS/FAIL/PENDING
	NDEType string     `json:"nde_type"`
	NDEDate *time.Time `json:"nde_date"`
	Notes   string     `json:"notes"`
}

// RecordNDE 记录NDE结果并执行状态转移。
// PASS：终态里程碑置真，状态 accepted；
// FAIL：全部里程碑强制完成（完成率100），状态 rejected——被拒焊口不应在汇总中
// 表现为"有剩余工作"，剩余工作由新建的修复焊口表示；
// PENDING：仅记录检验字段。
// 重新记录结果允许，从当前里程碑状态重跑同一转移逻辑，没有单独的撤销转移。
func (s *ProgressService) RecordNDE(ctx context.Context, weldID string, req *RecordNDERequest, actorID string) (*entity.FieldWeld, error) {
	if req.Result != entity.NDEResultPass && req.Result != entity.NDEResultFail && req.Result != entity.NDEResultPending {
		return nil, errOutOfRange("NDE result", "must be PASS, FAIL or PENDING")
	}

	var weld *entity.FieldWeld
	var drawingID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.repos.FieldWeld.FindByIDTx(tx, weldID)
		if err != nil {
			return err
		}
		comp, err := s.repos.Component.FindByIDForUpdate(tx, w.ComponentID)
		if err != nil {
			return err
		}
		tpl, err := s.registry.Resolve(ctx, comp.ComponentType)
		if err != nil {
			return err
		}

		prevResult := w.NDEResult
		w.NDEResult = req.Result
		if req.NDEType != "" {
			w.NDEType = req.NDEType
		}
		if req.NDEDate != nil {
			w.NDEDate = req.NDEDate
		}
		if req.Notes != "" {
			w.NDENotes = req.Notes
		}

		meta := entity.JSONB{"nde_result": req.Result, "prev_nde_result": prevResult}

		switch req.Result {
		case entity.NDEResultPass:
			if err := s.forceMilestoneTx(tx, comp, tpl, entity.MilestoneAccepted, actorID, meta); err != nil {
				return err
			}
			w.Status = entity.WeldStatusAccepted
		case entity.NDEResultFail:
			// Force-complete everything so the rejected weld never shows
			// remaining work in rollups
			for _, m := range tpl.Ordered() {
				if err := s.forceMilestoneTx(tx, comp, tpl, m.Name, actorID, meta); err != nil {
					return err
				}
			}
			w.Status = entity.WeldStatusRejected
		}

		if err := s.repos.Component.UpdateProgressTx(tx, comp); err != nil {
			return err
		}
		if err := s.repos.FieldWeld.UpdateTx(tx, w); err != nil {
			return err
		}

		weld = w
		drawingID = comp.DrawingID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rollup.Invalidate(ctx, drawingID)
	s.logger.Info("NDE result recorded",
		zap.String("weld_id", weldID),
		zap.String("result", req.Result),
		zap.String("status", weld.Status),
		zap.String("actor_id", actorID),
	)
	return weld, nil
}

// forceMilestoneTx 状态机驱动的里程碑置满：合并满值、重算完成率、写审计事件。
// 调用方负责在事务结束前持久化构件。
func (s *ProgressService) forceMilestoneTx(tx *gorm.DB, comp *entity.Component, tpl *entity.ProgressTemplate, milestone, actorID string, meta entity.JSONB) error {
	mcfg := tpl.Milestone(milestone)
	if mcfg == nil {
		return errMilestoneNotInTemplate(milestone, comp.ComponentType)
	}
	prev, had := comp.MilestoneValue(milestone)
	next := maxMilestoneValue(mcfg)

	if comp.CurrentMilestones == nil {
		comp.CurrentMilestones = entity.JSONB{}
	}
	comp.CurrentMilestones[milestone] = next
	comp.PercentComplete = CalculatePercent(tpl, comp.CurrentMilestones)

	return s.repos.Event.CreateTx(tx, &entity.MilestoneEvent{
		ComponentID: comp.ID,
		Milestone:   milestone,
		Action:      classifyAction(mcfg, prev, had, next),
		NewValue:    marshalValue(next),
		PrevValue:   marshalValue(previousOrNil(prev, had)),
		ActorID:     actorID,
		Metadata:    meta,
	})
}

// AssignWelder 指派焊工。完成 Weld Complete 里程碑的前置条件。
func (s *ProgressService) AssignWelder(ctx context.Context, weldID, welderID, actorID string) (*entity.FieldWeld, error) {
	welder, err := s.repos.Welder.FindByID(ctx, welderID)
	if err != nil {
		return nil, err
	}
	weld, err := s.repos.FieldWeld.FindByID(ctx, weldID)
	if err != nil {
		return nil, err
	}

	weld.WelderID = &welder.ID
	if err := s.repos.FieldWeld.Update(ctx, weld); err != nil {
		return nil, err
	}

	s.logger.Info("Welder assigned",
		zap.String("weld_id", weldID),
		zap.String("welder_id", welderID),
		zap.String("stencil", welder.Stencil),
		zap.String("actor_id", actorID),
	)
	return weld, nil
}

// GetWeld 查询焊口
func (s *ProgressService) GetWeld(ctx context.Context, weldID string) (*entity.FieldWeld, error) {
	return s.repos.FieldWeld.FindByID(ctx, weldID)
}
