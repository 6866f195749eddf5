package repository

import (
	"context"
	"errors"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WelderRepository 焊工名册仓库
type WelderRepository struct {
	db *gorm.DB
}

func NewWelderRepository(db *gorm.DB) *WelderRepository {
	return &WelderRepository{db: db}
}

// Create 创建焊工
func (r *WelderRepository) Create(ctx context.Context, w *entity.Welder) error {
	return r.CreateTx(r.db.WithContext(ctx), w)
}

// CreateTx 在事务内创建焊工
func (r *WelderRepository) CreateTx(tx *gorm.DB, w *entity.Welder) error {
	if w.ID == "" {
		w.ID = uuid.New().String()[:32]
	}
	if w.VerificationStatus == "" {
		w.VerificationStatus = entity.WelderUnverified
	}
	return tx.Create(w).Error
}

// FindByID 查询焊工
func (r *WelderRepository) FindByID(ctx context.Context, id string) (*entity.Welder, error) {
	var w entity.Welder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// FindByStencil 按项目和钢印号查询焊工
func (r *WelderRepository) FindByStencil(ctx context.Context, projectID, stencil string) (*entity.Welder, error) {
	return r.FindByStencilTx(r.db.WithContext(ctx), projectID, stencil)
}

// FindByStencilTx 在事务内按项目和钢印号查询焊工
func (r *WelderRepository) FindByStencilTx(tx *gorm.DB, projectID, stencil string) (*entity.Welder, error) {
	var w entity.Welder
	err := tx.Where("project_id = ? AND stencil = ?", projectID, stencil).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// FindAll 查询项目焊工列表
func (r *WelderRepository) FindAll(ctx context.Context, projectID string) ([]entity.Welder, error) {
	var items []entity.Welder
	query := r.db.WithContext(ctx).Model(&entity.Welder{})
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	err := query.Order("stencil").Find(&items).Error
	return items, err
}

// Delete 删除焊工（引用检查在服务层完成）
func (r *WelderRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Welder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
