package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// ComponentHandler 构件处理器
type ComponentHandler struct {
	svc *service.ProgressService
}

func NewComponentHandler(svc *service.ProgressService) *ComponentHandler {
	return &ComponentHandler{svc: svc}
}

// Create 创建构件
// POST /api/v1/components
func (h *ComponentHandler) Create(c *gin.Context) {
	var req service.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	comp, err := h.svc.CreateComponent(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, comp)
}

// Get 查询构件详情
// GET /api/v1/components/:id
func (h *ComponentHandler) Get(c *gin.Context) {
	comp, err := h.svc.GetComponent(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, comp)
}

// List 分页查询构件
// GET /api/v1/components?drawing_id=&component_type=&page=&page_size=
func (h *ComponentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]string{}
	if v := c.Query("drawing_id"); v != "" {
		filters["drawing_id"] = v
	}
	if v := c.Query("component_type"); v != "" {
		filters["component_type"] = v
	}

	items, total, err := h.svc.ListComponents(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取构件列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items": items,
		"total": total,
	})
}

// UpdateMilestoneRequest 里程碑更新请求。
// Value 按模板里程碑类型取 bool 或 0-100 数值。
type UpdateMilestoneRequest struct {
	// binding:required would reject legitimate false/0 payloads,
	// so value presence is validated by the service layer
	Milestone string      `json:"milestone" binding:"required"`
	Value     interface{} `json:"value"`
}

// UpdateMilestone 应用单个里程碑变更
// PATCH /api/v1/components/:id/milestones
func (h *ComponentHandler) UpdateMilestone(c *gin.Context) {
	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.ApplyMilestoneUpdate(c.Request.Context(), c.Param("id"), req.Milestone, req.Value, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Events 查询构件审计事件（新在前）
// GET /api/v1/components/:id/events
func (h *ComponentHandler) Events(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ComponentEvents(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{
		"items": items,
		"total": total,
	})
}

// Retire 下架构件（软删除）
// DELETE /api/v1/components/:id
func (h *ComponentHandler) Retire(c *gin.Context) {
	if err := h.svc.RetireComponent(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"retired": true})
}
