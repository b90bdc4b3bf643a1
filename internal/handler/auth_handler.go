package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Login 管理员登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// 凭证错误统一按未授权返回，避免泄露账号是否存在
		if service.IsCode(err, service.CodeNotEligible) {
			Unauthorized(c, "用户名或密码错误")
			return
		}
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// Logout 退出登录。令牌无服务端状态，客户端丢弃即可
func (h *AuthHandler) Logout(c *gin.Context) {
	Success(c, nil)
}

// Me 获取当前管理员信息
func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.svc.GetCurrentAdmin(c.Request.Context(), GetAdminID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, admin)
}

// ChangePassword 修改当前管理员密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), GetAdminID(c), req.OldPassword, req.NewPassword); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
