package repository

import (
	"context"
	"errors"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DrawingRepository 图纸仓库
type DrawingRepository struct {
	db *gorm.DB
}

func NewDrawingRepository(db *gorm.DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// Create 创建图纸
func (r *DrawingRepository) Create(ctx context.Context, d *entity.Drawing) error {
	return r.CreateTx(r.db.WithContext(ctx), d)
}

// CreateTx 在事务内创建图纸
func (r *DrawingRepository) CreateTx(tx *gorm.DB, d *entity.Drawing) error {
	if d.ID == "" {
		d.ID = uuid.New().String()[:32]
	}
	return tx.Create(d).Error
}

// FindByID 查询图纸
func (r *DrawingRepository) FindByID(ctx context.Context, id string) (*entity.Drawing, error) {
	var d entity.Drawing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByNumber 按项目和图号查询图纸
func (r *DrawingRepository) FindByNumber(ctx context.Context, projectID, number string) (*entity.Drawing, error) {
	return r.FindByNumberTx(r.db.WithContext(ctx), projectID, number)
}

// FindByNumberTx 在事务内按项目和图号查询图纸
func (r *DrawingRepository) FindByNumberTx(tx *gorm.DB, projectID, number string) (*entity.Drawing, error) {
	var d entity.Drawing
	err := tx.
		Where("project_id = ? AND number = ?", projectID, number).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindAll 分页查询图纸
func (r *DrawingRepository) FindAll(ctx context.Context, projectID string, page, pageSize int) ([]entity.Drawing, int64, error) {
	var items []entity.Drawing
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Drawing{}).Where("retired = false")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("number").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
