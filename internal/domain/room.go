package domain

// Room 表示一个聊天室。
// 注意：不存储 user_count 字段。在线人数和成员数始终从实时数据推导，
// 持久化的计数器在崩溃或并发更新后会漂移。
type Room struct {
	RoomID      string `json:"room_id" gorm:"primaryKey;size:64"`
	Name        string `json:"name" gorm:"type:varchar(191);not null"`
	Description string `json:"description" gorm:"type:varchar(255)"`
	CreatorID   string `json:"creator_id" gorm:"size:64;index:idx_creator"`
	CreatedAt   int64  `json:"created_at" gorm:"autoCreateTime:milli;index:idx_room_created"`
	UpdatedAt   int64  `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

// RoomMember 房间成员关系。(room_id, user_id) 唯一，保证重复加入幂等。
type RoomMember struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	RoomID   string `json:"room_id" gorm:"size:64;uniqueIndex:idx_room_user"`
	UserID   string `json:"user_id" gorm:"size:64;uniqueIndex:idx_room_user;index:idx_member_user"`
	JoinTime int64  `json:"join_time" gorm:"autoCreateTime:milli"`
}

// RoomInfo 是对外返回的房间视图，UserCount 为读取时刻的实时成员数。
type RoomInfo struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatorID   string `json:"creator_id"`
	UserCount   int64  `json:"user_count"`
	CreatedAt   int64  `json:"created_at"`
}

// Info 将 Room 和实时成员数组装为 RoomInfo。
func (r *Room) Info(userCount int64) *RoomInfo {
	return &RoomInfo{
		RoomID:      r.RoomID,
		Name:        r.Name,
		Description: r.Description,
		CreatorID:   r.CreatorID,
		UserCount:   userCount,
		CreatedAt:   r.CreatedAt,
	}
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}

func (RoomMember) TableName() string {
	return "room_members"
}
