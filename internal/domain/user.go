// Package domain 定义了聊天服务的核心数据模型 (数据库模型)。
package domain

// User 表示一个注册用户。
// 核心服务只读引用用户信息；密码等凭证归属认证模块管理。
type User struct {
	UserID    string `json:"user_id" gorm:"primaryKey;size:64"`
	Username  string `json:"username" gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string `json:"-" gorm:"type:text;not null"` // bcrypt 哈希，不序列化
	Nickname  string `json:"nickname" gorm:"type:varchar(191)"`
	Avatar    string `json:"avatar" gorm:"type:varchar(255)"`
	CreatedAt int64  `json:"created_at" gorm:"autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

// PublicProfile 返回可对房间内其他用户公开的字段副本。
// join/leave 广播只携带公开信息。
func (u *User) PublicProfile() *User {
	return &User{
		UserID:    u.UserID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
