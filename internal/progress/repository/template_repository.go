package repository

import (
	"context"
	"errors"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateRepository 进度模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindByType 查询某构件类型的最新版本模板（含里程碑配置，按显示顺序）
func (r *TemplateRepository) FindByType(ctx context.Context, componentType string) (*entity.ProgressTemplate, error) {
	var t entity.ProgressTemplate
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order")
		}).
		Where("component_type = ?", componentType).
		Order("version DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindAll 查询全部模板
func (r *TemplateRepository) FindAll(ctx context.Context) ([]entity.ProgressTemplate, error) {
	var items []entity.ProgressTemplate
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order")
		}).
		Order("component_type, version").
		Find(&items).Error
	return items, err
}

// Create 创建模板及其里程碑配置
func (r *TemplateRepository) Create(ctx context.Context, t *entity.ProgressTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	for i := range t.Milestones {
		if t.Milestones[i].ID == "" {
			t.Milestones[i].ID = uuid.New().String()
		}
		t.Milestones[i].TemplateID = t.ID
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// ExistsForType 某构件类型是否已有模板
func (r *TemplateRepository) ExistsForType(ctx context.Context, componentType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ProgressTemplate{}).
		Where("component_type = ?", componentType).
		Count(&count).Error
	return count > 0, err
}
