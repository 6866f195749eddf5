package handler

import (
	"errors"
	"strconv"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Component *ComponentHandler
	Weld      *WeldHandler
	Welder    *WelderHandler
	Drawing   *DrawingHandler
	Template  *TemplateHandler
	Import    *ImportHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Component: NewComponentHandler(svc.Progress),
		Weld:      NewWeldHandler(svc.Progress, svc.Repair),
		Welder:    NewWelderHandler(svc.Welder),
		Drawing:   NewDrawingHandler(repos.Drawing, svc.Rollup),
		Template:  NewTemplateHandler(svc.Registry),
		Import:    NewImportHandler(svc.Import),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 业务错误统一映射：
// 校验失败 → 422（引用冲突 → 409），记录未找到 → 404，其余 → 500。
func RespondError(c *gin.Context, err error) {
	if ve, ok := service.AsValidation(err); ok {
		status := 42200
		if ve.Kind == service.KindReferentialConflict {
			status = 40900
		}
		c.JSON(status/100, Response{
			Code:    status,
			Message: ve.Message,
			Data: gin.H{
				"kind":  ve.Kind,
				"field": ve.Field,
			},
		})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, err.Error())
		return
	}
	InternalError(c, err.Error())
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
