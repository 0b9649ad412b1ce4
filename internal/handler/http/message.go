package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/service"
)

// Broadcaster 是消息接口对投递中枢的依赖：REST 发出的消息
// 在持久化成功后也要推给房间的实时订阅者。
type Broadcaster interface {
	Broadcast(msg *domain.Message)
}

// MessageHandler 暴露消息发送与历史查询的 REST 接口。
type MessageHandler struct {
	chatService *service.ChatService
	broadcaster Broadcaster
}

// NewMessageHandler 创建 MessageHandler 实例。broadcaster 可以为 nil。
func NewMessageHandler(chatService *service.ChatService, broadcaster Broadcaster) *MessageHandler {
	if chatService == nil {
		panic("ChatService cannot be nil for MessageHandler")
	}
	return &MessageHandler{chatService: chatService, broadcaster: broadcaster}
}

type sendMessageRequest struct {
	RoomID  string `json:"room_id" binding:"required"`
	Content string `json:"content" binding:"required"`
	MsgType int32  `json:"msg_type"`
}

// Send 处理 POST /api/v1/messages，是 WebSocket 发送路径的 REST 替代。
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, CodeParamError, "invalid request: "+err.Error())
		return
	}

	userID := c.GetString("user_id")

	msg, err := h.chatService.SendMessage(c.Request.Context(), req.RoomID, userID, req.Content, req.MsgType)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(msg)
	}
	OK(c, gin.H{"message": msg})
}

// History 处理 GET /api/v1/messages?room_id&before_time&limit。
// before_time 是毫秒时间戳游标 (0 表示从最新开始)，返回 newest-first。
func (h *MessageHandler) History(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		Fail(c, CodeParamError, "room_id is required")
		return
	}
	userID := c.GetString("user_id")

	beforeTime, err := strconv.ParseInt(c.DefaultQuery("before_time", "0"), 10, 64)
	if err != nil || beforeTime < 0 {
		Fail(c, CodeParamError, "before_time must be a non-negative millisecond timestamp")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		Fail(c, CodeParamError, "limit must be an integer")
		return
	}

	msgs, hasMore, err := h.chatService.History(c.Request.Context(), roomID, userID, beforeTime, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"messages": msgs, "has_more": hasMore})
}
