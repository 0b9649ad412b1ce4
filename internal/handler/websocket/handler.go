package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/hub"
	"github.com/baijianruoli/bot-chat/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域控制交给部署层的反向代理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler 是会话网关：校验握手凭证、升级连接并交给 Hub。
type Handler struct {
	hub         *hub.Hub
	authService *service.AuthService
}

// NewHandler 创建 WebSocket Handler。
func NewHandler(h *hub.Hub, authService *service.AuthService) *Handler {
	if h == nil || authService == nil {
		panic("Hub and AuthService must be non-nil for websocket Handler")
	}
	return &Handler{hub: h, authService: authService}
}

// Serve 处理 GET /ws?user_id=...&token=...。
// 认证失败直接拒绝升级，不产生任何连接状态。
func (h *Handler) Serve(c *gin.Context) {
	userID := c.Query("user_id")
	token := c.Query("token")

	user, err := h.authService.Authenticate(c.Request.Context(), userID, token)
	if err != nil {
		logrus.WithField("user_id", userID).Warn("WebSocket handshake rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "authentication failed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, user)
	// Run 阻塞在读泵直到连接结束
	client.Run()
}
