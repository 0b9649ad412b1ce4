package hub

// Presence 提供房间维度的在线视图。
// 在线人数完全从连接注册表派生，不维护独立计数器，因此不会漂移。
type Presence struct {
	registry *Registry
}

// NewPresence 创建基于注册表的在线视图。
func NewPresence(registry *Registry) *Presence {
	if registry == nil {
		panic("Registry cannot be nil for Presence")
	}
	return &Presence{registry: registry}
}

// CountFor 返回房间当前的在线连接数。
func (p *Presence) CountFor(roomID string) int {
	return p.registry.CountByRoom(roomID)
}

// UserOnlineInRoom 判断用户在房间内是否有活跃连接。
func (p *Presence) UserOnlineInRoom(userID, roomID string) bool {
	return p.registry.UserConnsInRoom(userID, roomID) > 0
}

// TotalConnections 返回全局活跃连接数。
func (p *Presence) TotalConnections() int {
	return p.registry.Len()
}
