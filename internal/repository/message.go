package repository

import (
	"context"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// MessageRepository 定义了消息的只追加存储契约。
// Append 成功返回前必须完成持久化；消息一经写入即不可变。
type MessageRepository interface {
	// Append 持久化一条消息。调用前 MsgID 已分配。
	Append(ctx context.Context, msg *domain.Message) error

	// History 按 created_at 倒序返回 roomID 中 created_at < beforeTime 的
	// 至多 limit 条消息。beforeTime <= 0 表示从最新一条开始。
	// hasMore 为 true 当且仅当返回页之外还存在更早的消息。
	History(ctx context.Context, roomID string, beforeTime int64, limit int) (msgs []domain.Message, hasMore bool, err error)
}
