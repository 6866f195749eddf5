package handler

import (
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 进度模板处理器（模板只读，变更走发版）
type TemplateHandler struct {
	registry *service.TemplateRegistry
}

func NewTemplateHandler(registry *service.TemplateRegistry) *TemplateHandler {
	return &TemplateHandler{registry: registry}
}

// List 查询全部模板
// GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	items, err := h.registry.ListAll(c.Request.Context())
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// GetByType 按构件类型解析当前模板
// GET /api/v1/templates/:component_type
func (h *TemplateHandler) GetByType(c *gin.Context) {
	tpl, err := h.registry.Resolve(c.Request.Context(), c.Param("component_type"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, tpl)
}
