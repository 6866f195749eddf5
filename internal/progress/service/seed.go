package service

import (
	"context"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
)

type milestoneSeed struct {
	Name           string
	Weight         int
	IsPartial      bool
	RequiresWelder bool
}

type templateSeed struct {
	ComponentType string
	WorkflowKind  string
	Milestones    []milestoneSeed
}

// 标准 ROC (rules of credit) 权重，按构件类型固化
var defaultTemplateSeeds = []templateSeed{
	{
		ComponentType: entity.ComponentTypeSpool,
		WorkflowKind:  entity.WorkflowKindHybrid,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 5},
			{Name: "Erect", Weight: 40, IsPartial: true},
			{Name: "Connect", Weight: 40},
			{Name: "Punch", Weight: 5},
			{Name: "Test", Weight: 5},
			{Name: "Restore", Weight: 5},
		},
	},
	{
		ComponentType: entity.ComponentTypeValve,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 60},
			{Name: "Punch", Weight: 10},
			{Name: "Test", Weight: 15},
			{Name: "Restore", Weight: 5},
		},
	},
	{
		ComponentType: entity.ComponentTypeFitting,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 60},
			{Name: "Punch", Weight: 10},
			{Name: "Test", Weight: 15},
			{Name: "Restore", Weight: 5},
		},
	},
	{
		ComponentType: entity.ComponentTypeFlange,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 60},
			{Name: "Punch", Weight: 10},
			{Name: "Test", Weight: 15},
			{Name: "Restore", Weight: 5},
		},
	},
	{
		ComponentType: entity.ComponentTypeGasket,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 80},
			{Name: "Test", Weight: 10},
		},
	},
	{
		ComponentType: entity.ComponentTypeSupport,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 80},
			{Name: "Punch", Weight: 10},
		},
	},
	{
		ComponentType: entity.ComponentTypeInstrument,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: "Receive", Weight: 10},
			{Name: "Install", Weight: 60},
			{Name: "Punch", Weight: 10},
			{Name: "Test", Weight: 15},
			{Name: "Restore", Weight: 5},
		},
	},
	{
		ComponentType: entity.ComponentTypeFieldWeld,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: entity.MilestoneFitUp, Weight: 30},
			{Name: entity.MilestoneWeldComplete, Weight: 60, RequiresWelder: true},
			{Name: entity.MilestoneAccepted, Weight: 10},
		},
	},
	{
		ComponentType: entity.ComponentTypeThreaded,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []milestoneSeed{
			{Name: entity.MilestoneFitUp, Weight: 30},
			{Name: "Connect", Weight: 60},
			{Name: "Punch", Weight: 10},
		},
	},
}

// SeedDefaultTemplates 启动时写入标准模板；已存在的构件类型跳过
func SeedDefaultTemplates(ctx context.Context, repo *repository.TemplateRepository, logger *zap.Logger) error {
	for _, seed := range defaultTemplateSeeds {
		exists, err := repo.ExistsForType(ctx, seed.ComponentType)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		t := &entity.ProgressTemplate{
			ComponentType: seed.ComponentType,
			Version:       1,
			WorkflowKind:  seed.WorkflowKind,
		}
		for i, m := range seed.Milestones {
			t.Milestones = append(t.Milestones, entity.MilestoneConfig{
				Name:           m.Name,
				Weight:         m.Weight,
				DisplayOrder:   i + 1,
				IsPartial:      m.IsPartial,
				RequiresWelder: m.RequiresWelder,
			})
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := repo.Create(ctx, t); err != nil {
			return err
		}
		logger.Info("Seeded progress template",
			zap.String("component_type", seed.ComponentType),
			zap.Int("milestones", len(seed.Milestones)),
		)
	}
	return nil
}
