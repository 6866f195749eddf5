package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// ImportHandler 批量导入处理器
type ImportHandler struct {
	svc *service.ImportService
}

func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// ImportWelds 批量导入焊口。逐行错误随结果返回，落库行一次性提交。
// POST /api/v1/imports/welds
func (h *ImportHandler) ImportWelds(c *gin.Context) {
	var req service.ImportWeldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if len(req.Rows) == 0 {
		BadRequest(c, "导入数据为空")
		return
	}

	result, err := h.svc.ImportWelds(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}
