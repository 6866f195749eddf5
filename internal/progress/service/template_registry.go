package service

import (
	"context"
	"errors"
	"sync"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
)

// TemplateRegistry 进度模板注册表。
// 模板读多写少，按构件类型缓存在内存，命中后 O(1) 返回。
type TemplateRegistry struct {
	repo   *repository.TemplateRepository
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*entity.ProgressTemplate
}

func NewTemplateRegistry(repo *repository.TemplateRepository, logger *zap.Logger) *TemplateRegistry {
	return &TemplateRegistry{
		repo:   repo,
		logger: logger,
		cache:  make(map[string]*entity.ProgressTemplate),
	}
}

// Resolve 解析构件类型的模板。无模板时拒绝：构件不允许在无模板下创建或更新。
func (r *TemplateRegistry) Resolve(ctx context.Context, componentType string) (*entity.ProgressTemplate, error) {
	r.mu.RLock()
	if t, ok := r.cache[componentType]; ok {
		r.mu.RUnlock()
		return t, nil
	}
	r.mu.RUnlock()

	t, err := r.repo.FindByType(ctx, componentType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errTemplateNotFound(componentType)
	}
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		// A template that breaks the weight invariant must never be served
		r.logger.Error("Invalid progress template", zap.String("component_type", componentType), zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	r.cache[componentType] = t
	r.mu.Unlock()
	return t, nil
}

// Invalidate 模板版本变更后清除缓存（管理端模板编辑调用）
func (r *TemplateRegistry) Invalidate(componentType string) {
	r.mu.Lock()
	if componentType == "" {
		r.cache = make(map[string]*entity.ProgressTemplate)
	} else {
		delete(r.cache, componentType)
	}
	r.mu.Unlock()
}

// ListAll 列出全部模板（管理端只读）
func (r *TemplateRegistry) ListAll(ctx context.Context) ([]entity.ProgressTemplate, error) {
	return r.repo.FindAll(ctx)
}
