package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// SettingHandler 系统设置处理器
type SettingHandler struct {
	svc *service.SettingService
}

// NewSettingHandler 创建设置处理器
func NewSettingHandler(svc *service.SettingService) *SettingHandler {
	return &SettingHandler{svc: svc}
}

// GetSMTP 获取邮件服务配置，密码不回显
func (h *SettingHandler) GetSMTP(c *gin.Context) {
	settings, err := h.svc.GetSMTP(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	settings.Password = ""
	Success(c, settings)
}

// UpdateSMTP 更新邮件服务配置
func (h *SettingHandler) UpdateSMTP(c *gin.Context) {
	var req service.UpdateSMTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	settings, err := h.svc.UpdateSMTP(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, settings)
}
