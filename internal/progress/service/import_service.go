package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportService 焊口批量导入。
// CSV解析由上游协作方完成，这里只接收已解析的行：
// 按钢印号解析/自动创建焊工，初始化构件+焊口并推导初始进度，写导入审计事件。
// 全部落库行在一个事务内提交；校验失败的行跳过并记入逐行错误列表。
type ImportService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	registry *TemplateRegistry
	rollup   *RollupService
	logger   *zap.Logger
}

func NewImportService(db *gorm.DB, repos *repository.Repositories, registry *TemplateRegistry, rollup *RollupService, logger *zap.Logger) *ImportService {
	return &ImportService{
		db:       db,
		repos:    repos,
		registry: registry,
		rollup:   rollup,
		logger:   logger,
	}
}

// WeldImportRow 单行导入数据
type WeldImportRow struct {
	DrawingNumber string     `json:"drawing_number" binding:"required"`
	WeldType      string     `json:"weld_type"`
	WeldSize      string     `json:"weld_size"`
	Schedule      string     `json:"schedule"`
	BaseMetal     string     `json:"base_metal"`
	SpecCode      string     `json:"spec_code"`
	NDERequired   bool       `json:"nde_required"`
	WelderStencil string     `json:"welder_stencil"`
	WeldDate      *time.Time `json:"weld_date"`
	NDEResult     string     `json:"nde_result"` // PASS/FAIL/PENDING/empty
}

// ImportWeldsRequest 导入任务
type ImportWeldsRequest struct {
	ProjectID string          `json:"project_id" binding:"required"`
	Rows      []WeldImportRow `json:"rows" binding:"required"`
}

// ImportRowError 逐行错误
type ImportRowError struct {
	Row     int    `json:"row"` // 1-based
	Message string `json:"message"`
}

// ImportResult 导入结果
type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportWelds 批量导入焊口。
// 初始进度推导：有焊接日期 → Fit-up 与 Weld Complete 记满；
// NDE PASS → 全额完成且状态 accepted；NDE FAIL → 强制完成且状态 rejected。
func (s *ImportService) ImportWelds(ctx context.Context, req *ImportWeldsRequest, actorID string) (*ImportResult, error) {
	tpl, err := s.registry.Resolve(ctx, entity.ComponentTypeFieldWeld)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	drawings := make(map[string]bool)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		welders := make(map[string]*entity.Welder)    // stencil -> welder
		drawingIDs := make(map[string]string)          // number -> id

		for i, row := range req.Rows {
			if rowErr := s.importRowTx(tx, tpl, req.ProjectID, i, &row, actorID, welders, drawingIDs); rowErr != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: rowErr.Error()})
				result.Skipped++
				continue
			}
			result.Created++
		}
		for _, id := range drawingIDs {
			drawings[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id := range drawings {
		s.rollup.Invalidate(ctx, id)
	}
	s.logger.Info("Weld import finished",
		zap.String("project_id", req.ProjectID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

func (s *ImportService) importRowTx(tx *gorm.DB, tpl *entity.ProgressTemplate, projectID string, rowIdx int, row *WeldImportRow, actorID string, welders map[string]*entity.Welder, drawingIDs map[string]string) error {
	if strings.TrimSpace(row.DrawingNumber) == "" {
		return fmt.Errorf("drawing number is required")
	}
	if row.NDEResult != "" && row.NDEResult != entity.NDEResultPass &&
		row.NDEResult != entity.NDEResultFail && row.NDEResult != entity.NDEResultPending {
		return fmt.Errorf("invalid NDE result %q", row.NDEResult)
	}
	if row.WeldDate != nil && row.WelderStencil == "" {
		// Weld-complete credit requires a welder; a dated weld without a
		// stencil cannot satisfy the precondition
		return fmt.Errorf("weld date present but no welder stencil")
	}

	// Resolve drawing, creating it on first sight
	drawingID, ok := drawingIDs[row.DrawingNumber]
	if !ok {
		d, err := s.repos.Drawing.FindByNumberTx(tx, projectID, row.DrawingNumber)
		if errors.Is(err, repository.ErrNotFound) {
			d = &entity.Drawing{ProjectID: projectID, Number: row.DrawingNumber, CreatedBy: actorID}
			if cerr := s.repos.Drawing.CreateTx(tx, d); cerr != nil {
				return cerr
			}
		} else if err != nil {
			return err
		}
		drawingID = d.ID
		drawingIDs[row.DrawingNumber] = drawingID
	}

	// Resolve welder by stencil, auto-creating unverified entries
	var welder *entity.Welder
	if row.WelderStencil != "" {
		stencil := strings.ToUpper(strings.TrimSpace(row.WelderStencil))
		if !stencilPattern.MatchString(stencil) {
			return fmt.Errorf("invalid welder stencil %q", row.WelderStencil)
		}
		welder, ok = welders[stencil]
		if !ok {
			w, err := s.repos.Welder.FindByStencilTx(tx, projectID, stencil)
			if errors.Is(err, repository.ErrNotFound) {
				w = &entity.Welder{
					ProjectID:          projectID,
					Stencil:            stencil,
					VerificationStatus: entity.WelderUnverified,
					CreatedBy:          actorID,
				}
				if cerr := s.repos.Welder.CreateTx(tx, w); cerr != nil {
					return cerr
				}
			} else if err != nil {
				return err
			}
			welder = w
			welders[stencil] = w
		}
	}

	comp := &entity.Component{
		DrawingID:         drawingID,
		ComponentType:     entity.ComponentTypeFieldWeld,
		Seq:               rowIdx + 1,
		CurrentMilestones: entity.JSONB{},
		CreatedBy:         actorID,
	}
	if err := s.repos.Component.CreateTx(tx, comp); err != nil {
		return err
	}

	weld := &entity.FieldWeld{
		ComponentID: comp.ID,
		WeldType:    row.WeldType,
		WeldSize:    row.WeldSize,
		Schedule:    row.Schedule,
		BaseMetal:   row.BaseMetal,
		SpecCode:    row.SpecCode,
		NDERequired: row.NDERequired,
		WeldDate:    row.WeldDate,
		Status:      entity.WeldStatusActive,
	}
	if welder != nil {
		weld.WelderID = &welder.ID
	}
	if row.NDEResult != "" {
		weld.NDEResult = row.NDEResult
	}
	if err := s.repos.FieldWeld.CreateTx(tx, weld); err != nil {
		return err
	}

	// Derive initial milestone credit
	meta := entity.JSONB{"source": "import"}
	credit := func(names ...string) error {
		for _, name := range names {
			mcfg := tpl.Milestone(name)
			if mcfg == nil {
				continue
			}
			next := maxMilestoneValue(mcfg)
			comp.CurrentMilestones[name] = next
			if err := s.repos.Event.CreateTx(tx, &entity.MilestoneEvent{
				ComponentID: comp.ID,
				Milestone:   name,
				Action:      entity.EventActionComplete,
				NewValue:    marshalValue(next),
				PrevValue:   marshalValue(nil),
				ActorID:     actorID,
				Metadata:    meta,
			}); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case row.NDEResult == entity.NDEResultPass:
		ordered := tpl.Ordered()
		names := make([]string, len(ordered))
		for i, m := range ordered {
			names[i] = m.Name
		}
		if err := credit(names...); err != nil {
			return err
		}
		weld.Status = entity.WeldStatusAccepted
	case row.NDEResult == entity.NDEResultFail:
		ordered := tpl.Ordered()
		names := make([]string, len(ordered))
		for i, m := range ordered {
			names[i] = m.Name
		}
		if err := credit(names...); err != nil {
			return err
		}
		weld.Status = entity.WeldStatusRejected
	case row.WeldDate != nil:
		if err := credit(entity.MilestoneFitUp, entity.MilestoneWeldComplete); err != nil {
			return err
		}
	}

	comp.PercentComplete = CalculatePercent(tpl, comp.CurrentMilestones)
	if err := s.repos.Component.UpdateProgressTx(tx, comp); err != nil {
		return err
	}
	if weld.Status != entity.WeldStatusActive {
		if err := s.repos.FieldWeld.UpdateTx(tx, weld); err != nil {
			return err
		}
	}
	return nil
}
