package hub

import (
	"errors"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/service"
)

// 入站/出站帧类型
const (
	FrameJoin        = "join"
	FrameLeave       = "leave"
	FrameMessage     = "message"
	FrameOnlineCount = "online_count"
	FrameHistory     = "history"
	FrameError       = "error"
)

// InboundFrame 是客户端经 WebSocket 发来的帧。
type InboundFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Content string `json:"content,omitempty"`
	MsgType int32  `json:"msg_type,omitempty"`
}

// OutboundFrame 是服务端推送给客户端的帧。
type OutboundFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// OnlineCountPayload 是 online_count 帧的载荷。
type OnlineCountPayload struct {
	Count int `json:"count"`
}

// HistoryPayload 是加入房间后回放最近消息的载荷，消息按时间正序。
type HistoryPayload struct {
	RoomID   string           `json:"room_id"`
	Messages []domain.Message `json:"messages"`
}

// ErrorPayload 是 error 帧的载荷，code 与 REST 响应码一致。
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorPayload 将业务错误映射为发给单个连接的 error 帧载荷。
func errorPayload(err error) ErrorPayload {
	switch {
	case errors.Is(err, service.ErrValidation):
		return ErrorPayload{Code: 400, Message: err.Error()}
	case errors.Is(err, service.ErrAuthenticationFailed):
		return ErrorPayload{Code: 401, Message: err.Error()}
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrUserNotFound):
		return ErrorPayload{Code: 404, Message: err.Error()}
	case errors.Is(err, service.ErrStorageUnavailable):
		return ErrorPayload{Code: 503, Message: err.Error()}
	case errors.Is(err, service.ErrNotRoomMember):
		return ErrorPayload{Code: 1003, Message: err.Error()}
	default:
		return ErrorPayload{Code: 500, Message: "internal server error"}
	}
}
