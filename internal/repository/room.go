package repository

import (
	"context"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// RoomRepository 定义了房间目录的存储操作，包括成员关系。
// 成员集合由该接口独占持有；在线人数统计只读不写。
type RoomRepository interface {
	// Save 保存房间信息。
	Save(ctx context.Context, room *domain.Room) error

	// FindByID 根据房间 ID 查找房间；不存在时返回 ErrRoomNotFound。
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)

	// List 按 created_at 倒序分页返回房间及总数。page 从 1 开始。
	List(ctx context.Context, page, pageSize int) ([]domain.Room, int64, error)

	// AddMember 添加成员关系。重复添加是幂等的，不返回错误。
	AddMember(ctx context.Context, roomID, userID string) error

	// RemoveMember 移除成员关系。成员不存在时为 no-op。
	RemoveMember(ctx context.Context, roomID, userID string) error

	// IsMember 检查用户是否为房间成员。
	IsMember(ctx context.Context, roomID, userID string) (bool, error)

	// CountMembers 返回读取时刻的成员数。
	CountMembers(ctx context.Context, roomID string) (int64, error)

	// MemberCounts 批量返回一组房间的成员数 (roomID -> count)。
	MemberCounts(ctx context.Context, roomIDs []string) (map[string]int64, error)
}
