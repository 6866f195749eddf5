package entity

import (
	"fmt"
	"sort"
	"time"
)

// Workflow kinds
const (
	WorkflowKindDiscrete = "discrete"
	WorkflowKindPartial  = "partial"
	WorkflowKindHybrid   = "hybrid"
)

// ProgressTemplate 构件类型的里程碑模板，权重合计固定为100
type ProgressTemplate struct {
	ID            string `json:"id" gorm:"primaryKey;size:36"`
	ComponentType string `json:"component_type" gorm:"size:32;not null;uniqueIndex:idx_templates_type_version"`
	Version       int    `json:"version" gorm:"not null;default:1;uniqueIndex:idx_templates_type_version"`
	WorkflowKind  string `json:"workflow_kind" gorm:"size:16;not null;default:'discrete'"` // discrete/partial/hybrid

	Milestones []MilestoneConfig `json:"milestones,omitempty" gorm:"foreignKey:TemplateID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProgressTemplate) TableName() string {
	return "progress_templates"
}

// MilestoneConfig 模板内单个里程碑的定义
type MilestoneConfig struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	TemplateID     string `json:"template_id" gorm:"size:36;not null;index"`
	Name           string `json:"name" gorm:"size:64;not null"`
	Weight         int    `json:"weight" gorm:"not null"`
	DisplayOrder   int    `json:"display_order" gorm:"not null"`
	IsPartial      bool   `json:"is_partial" gorm:"default:false"`
	RequiresWelder bool   `json:"requires_welder" gorm:"default:false"`
}

func (MilestoneConfig) TableName() string {
	return "milestone_configs"
}

// Milestone 按名称查找里程碑配置
func (t *ProgressTemplate) Milestone(name string) *MilestoneConfig {
	for i := range t.Milestones {
		if t.Milestones[i].Name == name {
			return &t.Milestones[i]
		}
	}
	return nil
}

// FirstMilestone 返回显示顺序最小的里程碑（修复焊口的预置里程碑）
func (t *ProgressTemplate) FirstMilestone() *MilestoneConfig {
	if len(t.Milestones) == 0 {
		return nil
	}
	first := &t.Milestones[0]
	for i := range t.Milestones {
		if t.Milestones[i].DisplayOrder < first.DisplayOrder {
			first = &t.Milestones[i]
		}
	}
	return first
}

// Ordered 返回按显示顺序排序的里程碑副本
func (t *ProgressTemplate) Ordered() []MilestoneConfig {
	out := make([]MilestoneConfig, len(t.Milestones))
	copy(out, t.Milestones)
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

// Validate 校验模板不变量：权重合计100，名称与顺序唯一
func (t *ProgressTemplate) Validate() error {
	if len(t.Milestones) == 0 {
		return fmt.Errorf("template %s has no milestones", t.ComponentType)
	}
	sum := 0
	names := make(map[string]bool, len(t.Milestones))
	orders := make(map[int]bool, len(t.Milestones))
	for _, m := range t.Milestones {
		if m.Weight <= 0 {
			return fmt.Errorf("template %s milestone %q has non-positive weight %d", t.ComponentType, m.Name, m.Weight)
		}
		if names[m.Name] {
			return fmt.Errorf("template %s has duplicate milestone name %q", t.ComponentType, m.Name)
		}
		if orders[m.DisplayOrder] {
			return fmt.Errorf("template %s has duplicate display order %d", t.ComponentType, m.DisplayOrder)
		}
		names[m.Name] = true
		orders[m.DisplayOrder] = true
		sum += m.Weight
	}
	if sum != 100 {
		return fmt.Errorf("template %s weights sum to %d, want 100", t.ComponentType, sum)
	}
	return nil
}
