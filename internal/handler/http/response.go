package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/service"
)

// 业务响应码。0 表示成功，HTTP 状态总是 200 (认证中间件除外)，
// 客户端只依赖 code 判断结果。
const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeStorageError  = 503
	CodeUserExists    = 1001
	CodePasswordError = 1002
	CodeNotInRoom     = 1003
)

// Response 是统一的 REST 响应包裹。
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK 写出成功响应。
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

// Fail 写出指定业务码的失败响应。
func Fail(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message})
}

// HandleServiceError 将服务层错误映射为业务响应码。
// 未识别的错误一律按内部错误处理，不向客户端泄露细节。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		Fail(c, CodeParamError, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		Fail(c, CodePasswordError, "invalid username or password")
	case errors.Is(err, service.ErrRegistrationFailed):
		Fail(c, CodeUserExists, "username already exists")
	case errors.Is(err, service.ErrUserNotFound):
		Fail(c, CodeNotFound, "user not found")
	case errors.Is(err, service.ErrRoomNotFound):
		Fail(c, CodeNotFound, "room not found")
	case errors.Is(err, service.ErrNotRoomMember):
		Fail(c, CodeNotInRoom, "user is not a member of this room")
	case errors.Is(err, service.ErrStorageUnavailable):
		Fail(c, CodeStorageError, "message storage unavailable")
	default:
		logrus.WithError(err).Error("Unhandled service error")
		Fail(c, CodeServerError, "internal server error")
	}
}
