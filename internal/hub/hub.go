package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/service"
)

// roomQueueSize 是每个房间事件队列的长度。入队即定序：
// 事件进入队列的顺序就是所有订阅者观察到的顺序。
const roomQueueSize = 256

// MessageSender 是 Hub 对消息服务的依赖。
type MessageSender interface {
	SendMessage(ctx context.Context, roomID, userID, content string, msgType int32) (*domain.Message, error)
	RecentForReplay(ctx context.Context, roomID string) ([]domain.Message, error)
}

// Directory 是 Hub 对房间目录的依赖。
type Directory interface {
	Join(ctx context.Context, roomID, userID string) (*domain.RoomInfo, error)
	Leave(ctx context.Context, roomID, userID string) error
}

// TaskQueue 用于在房间清空后安排异步清理。实现可以为 nil。
type TaskQueue interface {
	EnqueueRoomCleanup(ctx context.Context, roomID string) error
}

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventMessage
)

// roomEvent 是进入房间事件队列的一条事件。
// 消息事件在入队前已经持久化完成，worker 只做广播。
type roomEvent struct {
	kind eventKind
	user *domain.User
	msg  *domain.Message
}

type roomWorker struct {
	roomID string
	events chan roomEvent
}

// Hub 是投递中枢：每个房间一个 worker goroutine 串行消费事件队列，
// 保证同一房间内所有订阅者看到一致的事件顺序。
// 存储写入发生在提交方 goroutine 里、入队之前，worker 内没有任何存储调用。
type Hub struct {
	registry  *Registry
	presence  *Presence
	chat      MessageSender
	directory Directory
	tasks     TaskQueue

	mu         sync.Mutex
	rooms      map[string]*roomWorker
	stopped    bool
	dispatches sync.WaitGroup
	workers    sync.WaitGroup
}

// NewHub 创建 Hub。tasks 可以为 nil，此时房间清空后不安排异步清理。
func NewHub(registry *Registry, chat MessageSender, directory Directory, tasks TaskQueue) *Hub {
	if registry == nil || chat == nil || directory == nil {
		panic("registry, chat and directory must be non-nil for Hub")
	}
	return &Hub{
		registry:  registry,
		presence:  NewPresence(registry),
		chat:      chat,
		directory: directory,
		tasks:     tasks,
		rooms:     make(map[string]*roomWorker),
	}
}

// Registry 返回底层连接注册表。
func (h *Hub) Registry() *Registry { return h.registry }

// Presence 返回在线状态视图。
func (h *Hub) Presence() *Presence { return h.presence }

// Register 登记一个新连接。
func (h *Hub) Register(c *Client) {
	h.registry.Register(c)
	logrus.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.user.UserID,
		"total":   h.registry.Len(),
	}).Info("Client connected")
}

// HandleFrame 处理一条入站帧。返回 false 表示协议级错误 (计入断连阈值)，
// 业务错误只向发送方回 error 帧。
func (h *Hub) HandleFrame(c *Client, frame *InboundFrame) bool {
	ctx := context.Background()

	switch frame.Type {
	case FrameJoin:
		if frame.RoomID == "" {
			c.SendError(ErrorPayload{Code: 400, Message: "room_id is required"})
			return false
		}
		if err := h.Join(ctx, c, frame.RoomID); err != nil {
			c.SendError(errorPayload(err))
		}
		return true
	case FrameLeave:
		if frame.RoomID == "" {
			c.SendError(ErrorPayload{Code: 400, Message: "room_id is required"})
			return false
		}
		h.Leave(ctx, c, frame.RoomID)
		return true
	case FrameMessage:
		if frame.RoomID == "" {
			c.SendError(ErrorPayload{Code: 400, Message: "room_id is required"})
			return false
		}
		if err := h.SendMessage(ctx, c, frame.RoomID, frame.Content, frame.MsgType); err != nil {
			// 持久化失败或校验失败：只有发送方收到 error 帧，不会有任何广播
			c.SendError(errorPayload(err))
		}
		return true
	default:
		c.SendError(ErrorPayload{Code: 400, Message: "unknown frame type"})
		return false
	}
}

// Join 把连接加入房间：先更新目标房间目录，成功后才隐式离开旧房间、
// 绑定注册表、广播 join 与 online_count，最后异步回放最近消息给该连接。
func (h *Hub) Join(ctx context.Context, c *Client, roomID string) error {
	if h.registry.Room(c) == roomID {
		return nil
	}

	// 目录更新先于一切状态变更；目标房间不存在时连接留在原房间
	if _, err := h.directory.Join(ctx, roomID, c.user.UserID); err != nil {
		return err
	}

	if prev := h.registry.Room(c); prev != "" {
		h.Leave(ctx, c, prev)
	}
	h.registry.SetRoom(c, roomID)
	h.dispatch(roomID, roomEvent{kind: eventJoin, user: c.user.PublicProfile()})

	go h.replayRecent(c, roomID)

	logrus.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.user.UserID,
		"room_id": roomID,
	}).Info("Client joined room")
	return nil
}

// Leave 把连接移出房间。连接不在该房间时是 no-op。
// 仅当该用户在房间内已无其他活跃连接时才清理目录成员关系。
func (h *Hub) Leave(ctx context.Context, c *Client, roomID string) {
	if !h.registry.ClearRoomIf(c, roomID) {
		return
	}
	h.cleanupMembership(ctx, c.user.UserID, roomID)
	h.dispatch(roomID, roomEvent{kind: eventLeave, user: c.user.PublicProfile()})

	logrus.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.user.UserID,
		"room_id": roomID,
	}).Info("Client left room")
}

// SendMessage 持久化一条消息并广播给房间。
// 入队发生在持久化成功之后：没有任何订阅者会看到未落盘的消息。
func (h *Hub) SendMessage(ctx context.Context, c *Client, roomID, content string, msgType int32) error {
	// 目录成员资格由服务层再校验一次，这里先拦掉未绑定该房间的连接
	if h.registry.Room(c) != roomID {
		return service.ErrNotRoomMember
	}

	msg, err := h.chat.SendMessage(ctx, roomID, c.user.UserID, content, msgType)
	if err != nil {
		return err
	}
	h.dispatch(roomID, roomEvent{kind: eventMessage, msg: msg})
	return nil
}

// Broadcast 把一条已持久化的消息投递给房间，供 REST 发送路径复用。
func (h *Hub) Broadcast(msg *domain.Message) {
	if msg == nil {
		return
	}
	h.dispatch(msg.RoomID, roomEvent{kind: eventMessage, msg: msg})
}

// Disconnect 处理连接断开的级联清理。幂等：读泵退出和慢订阅者摘除
// 都会走到这里。
func (h *Hub) Disconnect(c *Client) {
	roomID, wasRegistered := h.registry.Unregister(c)
	if !wasRegistered {
		return
	}

	if roomID != "" {
		ctx := context.Background()
		h.cleanupMembership(ctx, c.user.UserID, roomID)
		h.dispatch(roomID, roomEvent{kind: eventLeave, user: c.user.PublicProfile()})
	}

	logrus.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.user.UserID,
		"total":   h.registry.Len(),
	}).Info("Client disconnected")
}

// Stop 关闭所有房间 worker 并等待队列排空，用于优雅停机。
// 先挡住新事件，等在途投递落队后再关队列。
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	h.dispatches.Wait()

	h.mu.Lock()
	for _, w := range h.rooms {
		close(w.events)
	}
	h.mu.Unlock()
	h.workers.Wait()
}

// cleanupMembership 在用户的最后一个房间内连接消失后移除目录成员关系。
func (h *Hub) cleanupMembership(ctx context.Context, userID, roomID string) {
	if h.registry.UserConnsInRoom(userID, roomID) > 0 {
		return
	}
	if err := h.directory.Leave(ctx, roomID, userID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"room_id": roomID,
		}).Warn("Failed to remove room membership on disconnect")
	}
}

// dispatch 把事件送入房间队列，必要时启动该房间的 worker。
// worker 一旦启动就存活到 Stop，房间内事件因此全序。
func (h *Hub) dispatch(roomID string, evt roomEvent) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	w, ok := h.rooms[roomID]
	if !ok {
		w = &roomWorker{roomID: roomID, events: make(chan roomEvent, roomQueueSize)}
		h.rooms[roomID] = w
		h.workers.Add(1)
		go h.runRoom(w)
	}
	h.dispatches.Add(1)
	h.mu.Unlock()

	// 队列满时阻塞提交方 (通常是某个连接的读泵)，形成天然背压
	w.events <- evt
	h.dispatches.Done()
}

// runRoom 串行消费一个房间的事件队列。
func (h *Hub) runRoom(w *roomWorker) {
	defer h.workers.Done()
	for evt := range w.events {
		h.process(w.roomID, evt)
	}
}

func (h *Hub) process(roomID string, evt roomEvent) {
	switch evt.kind {
	case eventJoin:
		h.broadcastFrame(roomID, FrameJoin, evt.user)
		h.broadcastCount(roomID)
	case eventLeave:
		h.broadcastFrame(roomID, FrameLeave, evt.user)
		h.broadcastCount(roomID)
		if h.registry.CountByRoom(roomID) == 0 {
			h.scheduleCleanup(roomID)
		}
	case eventMessage:
		h.broadcastFrame(roomID, FrameMessage, evt.msg)
	}
}

// broadcastFrame 向房间所有订阅者投递一个关键帧。
// 队列已满的订阅者已经落后到无法保证顺序，安排其异步断开而不是静默丢帧。
func (h *Hub) broadcastFrame(roomID, frameType string, payload interface{}) {
	data, err := json.Marshal(OutboundFrame{Type: frameType, Data: payload})
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to marshal broadcast frame")
		return
	}
	for _, c := range h.registry.ListByRoom(roomID) {
		if !c.Enqueue(data) {
			logrus.WithFields(logrus.Fields{
				"conn_id": c.ID(),
				"room_id": roomID,
			}).Warn("Subscriber queue full, scheduling disconnect")
			go h.Disconnect(c)
		}
	}
}

// broadcastCount 向房间广播当前在线人数。该帧会被更新的同类帧覆盖，
// 慢订阅者丢掉它没有代价。
func (h *Hub) broadcastCount(roomID string) {
	count := h.presence.CountFor(roomID)
	data, err := json.Marshal(OutboundFrame{
		Type: FrameOnlineCount,
		Data: OnlineCountPayload{Count: count},
	})
	if err != nil {
		return
	}
	for _, c := range h.registry.ListByRoom(roomID) {
		c.EnqueueDroppable(data)
	}
}

// replayRecent 向新加入的连接单独回放最近消息，失败只记日志。
func (h *Hub) replayRecent(c *Client, roomID string) {
	msgs, err := h.chat.RecentForReplay(context.Background(), roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("History replay failed")
		return
	}
	data, err := json.Marshal(OutboundFrame{
		Type: FrameHistory,
		Data: HistoryPayload{RoomID: roomID, Messages: msgs},
	})
	if err != nil {
		return
	}
	c.Enqueue(data)
}

// scheduleCleanup 在房间清空后安排异步的缓存清理任务。
func (h *Hub) scheduleCleanup(roomID string) {
	if h.tasks == nil {
		return
	}
	if err := h.tasks.EnqueueRoomCleanup(context.Background(), roomID); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to enqueue room cleanup task")
	}
}
