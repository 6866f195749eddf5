package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 进度模块仓库集合
type Repositories struct {
	Component *ComponentRepository
	Template  *TemplateRepository
	FieldWeld *FieldWeldRepository
	Welder    *WelderRepository
	Event     *MilestoneEventRepository
	Drawing   *DrawingRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Component: NewComponentRepository(db),
		Template:  NewTemplateRepository(db),
		FieldWeld: NewFieldWeldRepository(db),
		Welder:    NewWelderRepository(db),
		Event:     NewMilestoneEventRepository(db),
		Drawing:   NewDrawingRepository(db),
	}
}
