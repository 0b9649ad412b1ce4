package domain

// MsgType 是消息类型的封闭枚举。
// 未识别的取值统一折叠为 MsgTypeUnknown，保留前向兼容而不放宽类型。
type MsgType int32

const (
	MsgTypeUnknown MsgType = 0
	MsgTypeText    MsgType = 1
	MsgTypeImage   MsgType = 2
	MsgTypeSystem  MsgType = 3
)

// Normalize 将任意输入值映射到封闭枚举；未定义的值返回 MsgTypeUnknown。
func NormalizeMsgType(v int32) MsgType {
	switch MsgType(v) {
	case MsgTypeText, MsgTypeImage, MsgTypeSystem:
		return MsgType(v)
	default:
		return MsgTypeUnknown
	}
}

// Message 表示房间内的一条消息。
// Sender 不落库：广播帧携带发送时刻的快照，历史查询时按 user_id 重新填充当前资料。
// 房间内消息按 (created_at, msg_id) 全序排列，msg_id 用于打破时间戳平局。
type Message struct {
	MsgID     string  `json:"msg_id" gorm:"primaryKey;size:64"`
	RoomID    string  `json:"room_id" gorm:"size:64;index:idx_msg_room_time,priority:1"`
	UserID    string  `json:"user_id" gorm:"size:64"`
	Content   string  `json:"content" gorm:"type:text;not null"`
	MsgType   MsgType `json:"msg_type" gorm:"default:1"`
	CreatedAt int64   `json:"timestamp" gorm:"autoCreateTime:milli;index:idx_msg_room_time,priority:2"`

	// 关联的发送者快照（不存入 messages 表）
	Sender *User `json:"sender,omitempty" gorm:"-"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
