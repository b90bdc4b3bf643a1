package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Organization *OrganizationHandler
	Member       *MemberHandler
	Task         *TaskHandler
	Submission   *SubmissionHandler
	Export       *ExportHandler
	Setting      *SettingHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		Organization: NewOrganizationHandler(svc.Organization),
		Member:       NewMemberHandler(svc.Member),
		Task:         NewTaskHandler(svc.Task, svc.Reminder),
		Submission:   NewSubmissionHandler(svc.Submission, cfg),
		Export:       NewExportHandler(svc.Export),
		Setting:      NewSettingHandler(svc.Setting),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
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

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 服务层错误统一映射为响应码
func HandleError(c *gin.Context, err error) {
	svcErr, ok := service.AsError(err)
	if !ok {
		InternalError(c, err.Error())
		return
	}
	switch svcErr.Code {
	case service.CodeValidation:
		BadRequest(c, svcErr.Message)
	case service.CodeNotFound:
		NotFound(c, svcErr.Message)
	case service.CodeNotEligible:
		Forbidden(c, svcErr.Message)
	case service.CodeLimitExceeded:
		Conflict(c, svcErr.Message)
	case service.CodeDependency:
		Error(c, 50300, svcErr.Message)
	default:
		InternalError(c, svcErr.Message)
	}
}

// GetAdminID 从上下文获取管理员ID
func GetAdminID(c *gin.Context) string {
	adminID, _ := c.Get("admin_id")
	if id, ok := adminID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数，返回偏移量和条数
func GetPagination(c *gin.Context) (offset, limit int) {
	page := 1
	pageSize := 20

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
	return (page - 1) * pageSize, pageSize
}
