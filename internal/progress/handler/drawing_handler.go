package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// DrawingHandler 图纸处理器
type DrawingHandler struct {
	repo   *repository.DrawingRepository
	rollup *service.RollupService
}

func NewDrawingHandler(repo *repository.DrawingRepository, rollup *service.RollupService) *DrawingHandler {
	return &DrawingHandler{repo: repo, rollup: rollup}
}

// CreateDrawingRequest 创建图纸请求
type CreateDrawingRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Number    string `json:"number" binding:"required"`
	Title     string `json:"title"`
}

// Create 创建图纸
// POST /api/v1/drawings
func (h *DrawingHandler) Create(c *gin.Context) {
	var req CreateDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	d := &entity.Drawing{
		ProjectID: req.ProjectID,
		Number:    req.Number,
		Title:     req.Title,
		CreatedBy: GetUserID(c),
	}
	if err := h.repo.Create(c.Request.Context(), d); err != nil {
		InternalError(c, "创建图纸失败: "+err.Error())
		return
	}
	Created(c, d)
}

// List 分页查询图纸
// GET /api/v1/drawings?project_id=
func (h *DrawingHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.repo.FindAll(c.Request.Context(), c.Query("project_id"), page, pageSize)
	if err != nil {
		InternalError(c, "获取图纸列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Get 查询图纸详情
// GET /api/v1/drawings/:id
func (h *DrawingHandler) Get(c *gin.Context) {
	d, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

// Rollup 图纸级进度汇总
// GET /api/v1/drawings/:id/rollup
func (h *DrawingHandler) Rollup(c *gin.Context) {
	if _, err := h.repo.FindByID(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	progress, err := h.rollup.DrawingRollup(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取图纸进度失败: "+err.Error())
		return
	}
	Success(c, progress)
}
