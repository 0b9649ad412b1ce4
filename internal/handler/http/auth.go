package http

import (
	"github.com/gin-gonic/gin"

	"github.com/baijianruoli/bot-chat/internal/service"
)

// AuthHandler 暴露注册和登录接口。
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例。
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 处理 POST /api/v1/auth/register。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, CodeParamError, "invalid request: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"user": user})
}

// Login 处理 POST /api/v1/auth/login。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, CodeParamError, "invalid request: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"token": token, "user": user})
}
