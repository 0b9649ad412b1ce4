package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现。
// 成员关系走 room_members 表，(room_id, user_id) 唯一索引保证加入幂等。
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// Save 保存房间信息
func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %s, name: %s): %w", room.RoomID, room.Name, err)
	}
	return nil
}

// FindByID 根据房间 ID 查找房间
func (r *GormRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", roomID, err)
	}
	return &room, nil
}

// List 按创建时间倒序分页返回房间列表和总数
func (r *GormRoomRepository) List(ctx context.Context, page, pageSize int) ([]domain.Room, int64, error) {
	var rooms []domain.Room
	var total int64

	if err := r.db.WithContext(ctx).Model(&domain.Room{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count rooms: %w", err)
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Order("created_at DESC, room_id DESC").
		Offset(offset).Limit(pageSize).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list rooms (page %d): %w", page, err)
	}
	return rooms, total, nil
}

// AddMember 添加成员关系，重复添加视为成功
func (r *GormRoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	member := &domain.RoomMember{RoomID: roomID, UserID: userID}
	err := r.db.WithContext(ctx).Create(member).Error
	if err != nil {
		// 唯一索引冲突说明已是成员，幂等处理
		if isDuplicateEntryError(err) {
			return nil
		}
		return fmt.Errorf("gorm: add member (room: %s, user: %s): %w", roomID, userID, err)
	}
	return nil
}

// RemoveMember 移除成员关系，不存在时为 no-op
func (r *GormRoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.RoomMember{}).Error
	if err != nil {
		return fmt.Errorf("gorm: remove member (room: %s, user: %s): %w", roomID, userID, err)
	}
	return nil
}

// IsMember 检查用户是否为房间成员
func (r *GormRoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check member (room: %s, user: %s): %w", roomID, userID, err)
	}
	return count > 0, nil
}

// CountMembers 返回读取时刻的成员数
func (r *GormRoomRepository) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count members for room %s: %w", roomID, err)
	}
	return count, nil
}

// MemberCounts 批量返回一组房间的成员数
func (r *GormRoomRepository) MemberCounts(ctx context.Context, roomIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	type row struct {
		RoomID string
		Cnt    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Select("room_id, COUNT(*) AS cnt").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: member counts: %w", err)
	}
	for _, rw := range rows {
		counts[rw.RoomID] = rw.Cnt
	}
	return counts, nil
}
