package repository

import (
	"context"
	"errors"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldWeldRepository 现场焊口仓库
type FieldWeldRepository struct {
	db *gorm.DB
}

func NewFieldWeldRepository(db *gorm.DB) *FieldWeldRepository {
	return &FieldWeldRepository{db: db}
}

// Create 创建焊口记录
func (r *FieldWeldRepository) Create(ctx context.Context, w *entity.FieldWeld) error {
	return r.CreateTx(r.db.WithContext(ctx), w)
}

// CreateTx 在事务内创建焊口记录
func (r *FieldWeldRepository) CreateTx(tx *gorm.DB, w *entity.FieldWeld) error {
	if w.ID == "" {
		w.ID = uuid.New().String()[:32]
	}
	if w.Status == "" {
		w.Status = entity.WeldStatusActive
	}
	return tx.Create(w).Error
}

// FindByID 查询焊口
func (r *FieldWeldRepository) FindByID(ctx context.Context, id string) (*entity.FieldWeld, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDTx 在事务内查询焊口
func (r *FieldWeldRepository) FindByIDTx(tx *gorm.DB, id string) (*entity.FieldWeld, error) {
	return r.findOne(tx, "id = ?", id)
}

// FindByComponentID 按构件查询焊口
func (r *FieldWeldRepository) FindByComponentID(ctx context.Context, componentID string) (*entity.FieldWeld, error) {
	return r.findOne(r.db.WithContext(ctx), "component_id = ?", componentID)
}

// FindByComponentIDTx 在事务内按构件查询焊口
func (r *FieldWeldRepository) FindByComponentIDTx(tx *gorm.DB, componentID string) (*entity.FieldWeld, error) {
	return r.findOne(tx, "component_id = ?", componentID)
}

func (r *FieldWeldRepository) findOne(tx *gorm.DB, query string, arg interface{}) (*entity.FieldWeld, error) {
	var w entity.FieldWeld
	err := tx.Where(query, arg).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Update 更新焊口
func (r *FieldWeldRepository) Update(ctx context.Context, w *entity.FieldWeld) error {
	return r.db.WithContext(ctx).Save(w).Error
}

// UpdateTx 在事务内更新焊口
func (r *FieldWeldRepository) UpdateTx(tx *gorm.DB, w *entity.FieldWeld) error {
	return tx.Save(w).Error
}

// CountByWelder 统计引用某焊工的焊口数，用于删除保护
func (r *FieldWeldRepository) CountByWelder(ctx context.Context, welderID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.FieldWeld{}).
		Where("welder_id = ?", welderID).
		Count(&count).Error
	return count, err
}

// FindRepairs 查询以某焊口为原焊口的修复记录
func (r *FieldWeldRepository) FindRepairs(ctx context.Context, originalWeldID string) ([]entity.FieldWeld, error) {
	var items []entity.FieldWeld
	err := r.db.WithContext(ctx).
		Where("original_weld_id = ?", originalWeldID).
		Order("created_at").
		Find(&items).Error
	return items, err
}

// ClearOriginalRef 原焊口删除时将引用置空（链走查将其视为链首）
func (r *FieldWeldRepository) ClearOriginalRef(ctx context.Context, originalWeldID string) error {
	return r.db.WithContext(ctx).Model(&entity.FieldWeld{}).
		Where("original_weld_id = ?", originalWeldID).
		Update("original_weld_id", nil).Error
}
