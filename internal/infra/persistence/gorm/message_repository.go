package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现。
// messages 表只追加；(room_id, created_at) 复合索引支撑游标分页。
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Append 持久化一条消息。返回 nil 即代表写入已落库。
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: append message %s to room %s: %w", msg.MsgID, msg.RoomID, err)
	}
	return nil
}

// History 按 (created_at, msg_id) 倒序做游标分页。
// 多取一条用于判定 hasMore，返回前裁掉探测行。
func (r *GormMessageRepository) History(ctx context.Context, roomID string, beforeTime int64, limit int) ([]domain.Message, bool, error) {
	var msgs []domain.Message

	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if beforeTime > 0 {
		query = query.Where("created_at < ?", beforeTime)
	}
	err := query.
		Order("created_at DESC, msg_id DESC").
		Limit(limit + 1).
		Find(&msgs).Error
	if err != nil {
		return nil, false, fmt.Errorf("gorm: history for room %s: %w", roomID, err)
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return msgs, hasMore, nil
}
