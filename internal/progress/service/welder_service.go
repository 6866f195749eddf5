package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"go.uber.org/zap"
)

// 钢印号：2-12位大写字母、数字或连字符
var stencilPattern = regexp.MustCompile(`^[A-Z0-9-]{2,12}$`)

// WelderService 焊工名册服务
type WelderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewWelderService(repos *repository.Repositories, logger *zap.Logger) *WelderService {
	return &WelderService{repos: repos, logger: logger}
}

// CreateWelderRequest 创建焊工请求
type CreateWelderRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Stencil   string `json:"stencil" binding:"required"`
	Name      string `json:"name"`
}

// CreateWelder 登记焊工，钢印号在项目内唯一
func (s *WelderService) CreateWelder(ctx context.Context, req *CreateWelderRequest, actorID string) (*entity.Welder, error) {
	stencil := strings.ToUpper(strings.TrimSpace(req.Stencil))
	if !stencilPattern.MatchString(stencil) {
		return nil, errInvalidStencil(req.Stencil)
	}

	if _, err := s.repos.Welder.FindByStencil(ctx, req.ProjectID, stencil); err == nil {
		return nil, &ValidationError{
			Kind:    KindReferentialConflict,
			Field:   "stencil",
			Message: "stencil already registered in this project",
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	w := &entity.Welder{
		ProjectID:          req.ProjectID,
		Stencil:            stencil,
		Name:               req.Name,
		VerificationStatus: entity.WelderUnverified,
		CreatedBy:          actorID,
	}
	if err := s.repos.Welder.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWelders 查询项目焊工
func (s *WelderService) ListWelders(ctx context.Context, projectID string) ([]entity.Welder, error) {
	return s.repos.Welder.FindAll(ctx, projectID)
}

// GetWelder 查询焊工
func (s *WelderService) GetWelder(ctx context.Context, id string) (*entity.Welder, error) {
	return s.repos.Welder.FindByID(ctx, id)
}

// DeleteWelder 删除焊工；仍被焊口引用时拒绝
func (s *WelderService) DeleteWelder(ctx context.Context, id string) error {
	if _, err := s.repos.Welder.FindByID(ctx, id); err != nil {
		return err
	}
	count, err := s.repos.FieldWeld.CountByWelder(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errWelderReferenced(id, count)
	}
	return s.repos.Welder.Delete(ctx, id)
}
