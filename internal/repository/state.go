package repository

import (
	"context"
	"time"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// StateRepository 定义了与房间实时状态相关的辅助操作，由 Redis 实现。
// 这里只存放可丢弃的派生数据 (缓存、计数器)；消息的持久化真相在 MessageRepository。
type StateRepository interface {
	// === Recent message cache ===

	// CacheMessage 将一条已持久化的消息写入房间的最近消息缓存 (写透)。
	CacheMessage(ctx context.Context, roomID string, msg *domain.Message) error

	// RecentMessages 读取房间最近消息缓存，按时间正序返回至多 limit 条。
	// 缓存未命中时返回空切片和 nil 错误，由调用方回填。
	RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	// BackfillRecent 用一批消息 (时间正序) 重建房间的最近消息缓存。
	BackfillRecent(ctx context.Context, roomID string, msgs []domain.Message) error

	// === Room activity ===

	// TouchRoomActivity 记录房间最近一次活动时间。
	TouchRoomActivity(ctx context.Context, roomID string) error

	// IdleRooms 返回最近活动早于 olderThan 的房间 ID 列表。
	IdleRooms(ctx context.Context, olderThan time.Time) ([]string, error)

	// CleanupRoomState 清理房间相关的全部 Redis key。
	CleanupRoomState(ctx context.Context, roomID string) error

	// === Rate limiting ===

	// CheckRateLimit 递增 key 的计数并检查是否超限。返回 true 表示超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
