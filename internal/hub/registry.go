package hub

import (
	"sync"
)

// Registry 是所有活跃 WebSocket 连接的唯一登记处。
// 连接与房间的绑定关系只在这里维护：一个连接同一时刻至多属于一个房间。
// 所有方法都是并发安全的。
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Client            // conn_id -> client
	rooms map[string]map[string]*Client // room_id -> conn_id -> client
}

// NewRegistry 创建一个空的连接注册表。
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Client),
		rooms: make(map[string]map[string]*Client),
	}
}

// Register 登记一个新连接。此时连接尚未绑定任何房间。
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.id] = c
}

// Unregister 注销连接并返回它注销前所在的房间 ("" 表示未绑定房间)。
// 重复注销是幂等的：第二次调用返回 ("", false)。
// 连接的发送队列在首次注销时关闭，写泵由此退出。
func (r *Registry) Unregister(c *Client) (roomID string, wasRegistered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return "", false
	}
	delete(r.conns, c.id)

	roomID = c.room
	if roomID != "" {
		r.detachLocked(c, roomID)
	}
	c.closeSend()
	return roomID, true
}

// SetRoom 将连接原子地绑定到 roomID，并解除旧房间绑定 (如有)。
// 返回连接之前所在的房间。对已注销的连接是 no-op。
func (r *Registry) SetRoom(c *Client, roomID string) (previous string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return ""
	}
	previous = c.room
	if previous == roomID {
		return previous
	}
	if previous != "" {
		r.detachLocked(c, previous)
	}
	if roomID != "" {
		subs, ok := r.rooms[roomID]
		if !ok {
			subs = make(map[string]*Client)
			r.rooms[roomID] = subs
		}
		subs[c.id] = c
	}
	c.room = roomID
	return previous
}

// ClearRoomIf 仅当连接仍绑定在 roomID 时解除绑定，返回是否实际解除。
// 并发的房间切换会让过期的离开操作自然失效。
func (r *Registry) ClearRoomIf(c *Client, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.room != roomID || roomID == "" {
		return false
	}
	r.detachLocked(c, roomID)
	return true
}

// Room 返回连接当前绑定的房间，未绑定时返回 ""。
func (r *Registry) Room(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.room
}

// ListByRoom 返回房间当前订阅者的快照。
func (r *Registry) ListByRoom(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.rooms[roomID]
	out := make([]*Client, 0, len(subs))
	for _, c := range subs {
		out = append(out, c)
	}
	return out
}

// CountByRoom 返回房间当前的在线连接数。
func (r *Registry) CountByRoom(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// UserConnsInRoom 返回某用户在某房间内仍然活跃的连接数。
// 多标签页场景下，只有最后一个连接断开时才应清理目录成员关系。
func (r *Registry) UserConnsInRoom(userID, roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.rooms[roomID] {
		if c.user.UserID == userID {
			n++
		}
	}
	return n
}

// Len 返回当前登记的连接总数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// detachLocked 把连接从房间索引里摘除，调用方必须持有写锁。
func (r *Registry) detachLocked(c *Client, roomID string) {
	if subs, ok := r.rooms[roomID]; ok {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(r.rooms, roomID)
		}
	}
	c.room = ""
}
