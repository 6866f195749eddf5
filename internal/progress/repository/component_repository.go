package repository

import (
	"context"
	"errors"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComponentRepository 构件仓库
type ComponentRepository struct {
	db *gorm.DB
}

func NewComponentRepository(db *gorm.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// Create 创建构件
func (r *ComponentRepository) Create(ctx context.Context, c *entity.Component) error {
	if c.ID == "" {
		c.ID = uuid.New().String()[:32]
	}
	if c.CurrentMilestones == nil {
		c.CurrentMilestones = entity.JSONB{}
	}
	return r.db.WithContext(ctx).Create(c).Error
}

// CreateTx 在事务内创建构件
func (r *ComponentRepository) CreateTx(tx *gorm.DB, c *entity.Component) error {
	if c.ID == "" {
		c.ID = uuid.New().String()[:32]
	}
	if c.CurrentMilestones == nil {
		c.CurrentMilestones = entity.JSONB{}
	}
	return tx.Create(c).Error
}

// FindByID 查询构件
func (r *ComponentRepository) FindByID(ctx context.Context, id string) (*entity.Component, error) {
	var c entity.Component
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByIDForUpdate 在事务内以行级排他锁查询构件。
// 同一构件的并发里程碑更新在此串行化；不同构件互不阻塞。
func (r *ComponentRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.Component, error) {
	var c entity.Component
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateProgressTx 在事务内持久化里程碑映射与完成率
func (r *ComponentRepository) UpdateProgressTx(tx *gorm.DB, c *entity.Component) error {
	return tx.Model(&entity.Component{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"current_milestones": c.CurrentMilestones,
			"percent_complete":   c.PercentComplete,
		}).Error
}

// FindAll 分页查询构件，可按图纸和类型过滤
func (r *ComponentRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Component, int64, error) {
	var items []entity.Component
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Component{})
	if v := filters["drawing_id"]; v != "" {
		query = query.Where("drawing_id = ?", v)
	}
	if v := filters["component_type"]; v != "" {
		query = query.Where("component_type = ?", v)
	}
	if filters["include_retired"] != "true" {
		query = query.Where("retired = false")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("drawing_id, component_type, commodity_code, seq").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// Retire 软删除构件
func (r *ComponentRepository) Retire(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&entity.Component{}).
		Where("id = ?", id).
		Update("retired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AggregateByDrawing 对图纸下未退役构件做实时汇总
func (r *ComponentRepository) AggregateByDrawing(ctx context.Context, drawingID string) (*entity.DrawingProgress, error) {
	var row struct {
		Total     int64
		Completed int64
		Avg       *float64
	}
	err := r.db.WithContext(ctx).Model(&entity.Component{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE percent_complete >= 100) AS completed, AVG(percent_complete) AS avg").
		Where("drawing_id = ? AND retired = false", drawingID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	rollup := &entity.DrawingProgress{
		DrawingID:           drawingID,
		TotalComponents:     row.Total,
		CompletedComponents: row.Completed,
	}
	if row.Total > 0 && row.Avg != nil {
		avg := roundTwo(*row.Avg)
		rollup.AvgPercentComplete = &avg
	}
	return rollup, nil
}

func roundTwo(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
