package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// WelderHandler 焊工名册处理器
type WelderHandler struct {
	svc *service.WelderService
}

func NewWelderHandler(svc *service.WelderService) *WelderHandler {
	return &WelderHandler{svc: svc}
}

// Create 登记焊工
// POST /api/v1/welders
func (h *WelderHandler) Create(c *gin.Context) {
	var req service.CreateWelderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	welder, err := h.svc.CreateWelder(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, welder)
}

// List 查询项目焊工列表
// GET /api/v1/welders?project_id=
func (h *WelderHandler) List(c *gin.Context) {
	items, err := h.svc.ListWelders(c.Request.Context(), c.Query("project_id"))
	if err != nil {
		InternalError(c, "获取焊工列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// Get 查询焊工详情
// GET /api/v1/welders/:id
func (h *WelderHandler) Get(c *gin.Context) {
	welder, err := h.svc.GetWelder(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, welder)
}

// Delete 删除焊工。被焊口引用时拒绝（409）。
// DELETE /api/v1/welders/:id
func (h *WelderHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteWelder(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
