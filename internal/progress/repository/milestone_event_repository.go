package repository

import (
	"context"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MilestoneEventRepository 审计事件仓库，只追加
type MilestoneEventRepository struct {
	db *gorm.DB
}

func NewMilestoneEventRepository(db *gorm.DB) *MilestoneEventRepository {
	return &MilestoneEventRepository{db: db}
}

// CreateTx 在事务内写入审计事件。
// 与构件变更同属一个工作单元：事件写入失败则整个更新回滚。
func (r *MilestoneEventRepository) CreateTx(tx *gorm.DB, e *entity.MilestoneEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()[:32]
	}
	return tx.Create(e).Error
}

// FindByComponent 分页查询构件的审计事件，新在前
func (r *MilestoneEventRepository) FindByComponent(ctx context.Context, componentID string, page, pageSize int) ([]entity.MilestoneEvent, int64, error) {
	var items []entity.MilestoneEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MilestoneEvent{}).
		Where("component_id = ?", componentID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
