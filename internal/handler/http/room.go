package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/baijianruoli/bot-chat/internal/service"
)

// RoomHandler 暴露房间目录的 REST 接口。
type RoomHandler struct {
	roomService *service.RoomService
	presence    PresenceView
}

// PresenceView 是房间接口对在线状态的只读依赖。
type PresenceView interface {
	CountFor(roomID string) int
}

// NewRoomHandler 创建 RoomHandler 实例。
func NewRoomHandler(roomService *service.RoomService, presence PresenceView) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, presence: presence}
}

type createRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create 处理 POST /api/v1/rooms。
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, CodeParamError, "invalid request: "+err.Error())
		return
	}

	userID := c.GetString("user_id")
	info, err := h.roomService.Create(c.Request.Context(), req.Name, req.Description, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"room": info})
}

// Get 处理 GET /api/v1/rooms/:room_id，附带实时在线人数。
func (h *RoomHandler) Get(c *gin.Context) {
	roomID := c.Param("room_id")

	info, err := h.roomService.Get(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	online := 0
	if h.presence != nil {
		online = h.presence.CountFor(roomID)
	}
	OK(c, gin.H{"room": info, "online_count": online})
}

// List 处理 GET /api/v1/rooms，按创建时间倒序分页。
func (h *RoomHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	infos, total, err := h.roomService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"rooms": infos, "total": total, "page": page})
}

// Join 处理 POST /api/v1/rooms/:room_id/join。
// 只更新目录成员关系；实时订阅通过 WebSocket 的 join 帧建立。
func (h *RoomHandler) Join(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("user_id")

	info, err := h.roomService.Join(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, gin.H{"room": info})
}

// Leave 处理 POST /api/v1/rooms/:room_id/leave。未加入时也返回成功。
func (h *RoomHandler) Leave(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("user_id")

	if err := h.roomService.Leave(c.Request.Context(), roomID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	OK(c, nil)
}
