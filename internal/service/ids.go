package service

import "github.com/google/uuid"

// 实体 ID 带类型前缀，便于日志排查。格式沿用既有数据：
// u_xxxxxxxx / r_xxxxxxxx / m_xxxxxxxxxxxx
func newUserID() string {
	return "u_" + uuid.New().String()[:8]
}

func newRoomID() string {
	return "r_" + uuid.New().String()[:8]
}

func newMsgID() string {
	return "m_" + uuid.New().String()[:12]
}
