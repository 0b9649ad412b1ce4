package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

const (
	// 向对端写一帧的超时
	writeWait = 10 * time.Second
	// 收到 pong 后允许的最大静默时长
	pongWait = 60 * time.Second
	// ping 间隔，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10
	// 入站帧大小上限
	maxMessageSize = 4096
	// 出站队列长度
	sendQueueSize = 256
	// 连续协议错误超过该数后强制断开
	maxProtocolErrors = 8
)

// Client 是一个已认证的 WebSocket 连接。
// 读泵把入站帧交给 Hub 处理，写泵消费 send 队列并维持心跳。
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	user *domain.User

	send      chan []byte
	closeOnce sync.Once

	// room 由 Registry 在其锁内维护，其他代码只读不写
	room string
}

// NewClient 为升级完成的连接创建 Client。
func NewClient(hub *Hub, conn *websocket.Conn, user *domain.User) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		user: user,
		send: make(chan []byte, sendQueueSize),
	}
}

// ID 返回连接的唯一标识。
func (c *Client) ID() string { return c.id }

// User 返回连接绑定的用户。
func (c *Client) User() *domain.User { return c.user }

// Run 注册连接并启动读写泵，读泵在当前 goroutine 运行直到连接结束。
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

// readPump 读取并分发入站帧。连接生命周期内有且只有这一个读者。
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	protocolErrors := 0
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"conn_id": c.id,
					"user_id": c.user.UserID,
				}).WithError(err).Warn("WebSocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			protocolErrors++
			c.SendError(ErrorPayload{Code: 400, Message: "malformed frame"})
			if protocolErrors >= maxProtocolErrors {
				logrus.WithField("conn_id", c.id).Warn("Too many protocol errors, dropping connection")
				return
			}
			continue
		}

		if ok := c.hub.HandleFrame(c, &frame); !ok {
			protocolErrors++
			if protocolErrors >= maxProtocolErrors {
				logrus.WithField("conn_id", c.id).Warn("Too many protocol errors, dropping connection")
				return
			}
		}
	}
}

// writePump 串行消费 send 队列并定时发 ping。
// send 被关闭 (连接注销) 时向对端发 close 帧后退出。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Enqueue 尝试将一帧放入出站队列，队列满时返回 false。
// 关键帧 (message/join/leave) 的调用方必须处理 false：该连接已经跟不上广播。
func (c *Client) Enqueue(data []byte) (ok bool) {
	defer func() {
		// 与并发的 closeSend 竞争时放弃投递
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// EnqueueDroppable 投递可覆盖的状态帧 (如 online_count)，队列满时静默丢弃。
func (c *Client) EnqueueDroppable(data []byte) {
	if !c.Enqueue(data) {
		logrus.WithField("conn_id", c.id).Debug("Dropped superseded frame for slow client")
	}
}

// SendError 只向本连接发送一个 error 帧。
func (c *Client) SendError(payload ErrorPayload) {
	data, err := json.Marshal(OutboundFrame{Type: FrameError, Data: payload})
	if err != nil {
		return
	}
	c.Enqueue(data)
}

// closeSend 关闭出站队列，只会生效一次。由 Registry.Unregister 调用。
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
