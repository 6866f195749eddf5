package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// WeldHandler 现场焊口处理器
type WeldHandler struct {
	svc    *service.ProgressService
	repair *service.RepairService
}

func NewWeldHandler(svc *service.ProgressService, repair *service.RepairService) *WeldHandler {
	return &WeldHandler{svc: svc, repair: repair}
}

// Get 查询焊口详情
// GET /api/v1/welds/:id
func (h *WeldHandler) Get(c *gin.Context) {
	weld, err := h.svc.GetWeld(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, weld)
}

// RecordNDE 记录NDE检验结果
// POST /api/v1/welds/:id/nde
func (h *WeldHandler) RecordNDE(c *gin.Context) {
	var req service.RecordNDERequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	weld, err := h.svc.RecordNDE(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, weld)
}

// AssignWelderRequest 焊工指派请求
type AssignWelderRequest struct {
	WelderID string `json:"welder_id" binding:"required"`
}

// AssignWelder 指派焊工
// PUT /api/v1/welds/:id/welder
func (h *WeldHandler) AssignWelder(c *gin.Context) {
	var req AssignWelderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	weld, err := h.svc.AssignWelder(c.Request.Context(), c.Param("id"), req.WelderID, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, weld)
}

// CreateRepair 为被拒焊口创建修复焊口
// POST /api/v1/welds/:id/repairs
func (h *WeldHandler) CreateRepair(c *gin.Context) {
	// 请求体可为空，规格覆盖项均可选
	var overrides service.RepairOverrides
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&overrides); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	result, err := h.repair.CreateRepairWeld(c.Request.Context(), c.Param("id"), &overrides, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, result)
}

// History 查询修复链（旧在前）
// GET /api/v1/welds/:id/history
func (h *WeldHandler) History(c *gin.Context) {
	chain, err := h.repair.RepairHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": chain})
}
