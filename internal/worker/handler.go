package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/repository"
	"github.com/baijianruoli/bot-chat/internal/tasks"
)

// idleThreshold 是周期扫描认定房间闲置的静默时长。
const idleThreshold = 24 * time.Hour

// PresenceView 是任务处理器对在线状态的只读依赖。
// 清理前必须确认房间真的没有活跃连接，任务入队后房间可能又热起来了。
type PresenceView interface {
	CountFor(roomID string) int
}

// Handlers 持有后台任务处理器的依赖。
type Handlers struct {
	stateRepo repository.StateRepository
	presence  PresenceView
}

// NewHandlers 创建任务处理器。
func NewHandlers(stateRepo repository.StateRepository, presence PresenceView) *Handlers {
	if stateRepo == nil || presence == nil {
		panic("stateRepo and presence must be non-nil for worker Handlers")
	}
	return &Handlers{stateRepo: stateRepo, presence: presence}
}

// HandleRoomCleanup 清理一个已清空房间的派生状态 (最近消息缓存、活跃度)。
func (h *Handlers) HandleRoomCleanup(ctx context.Context, t *asynq.Task) error {
	var payload tasks.RoomCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal room cleanup payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithField("room_id", payload.RoomID)

	if h.presence.CountFor(payload.RoomID) > 0 {
		logCtx.Debug("Room became active again, skipping cleanup")
		return nil
	}
	if err := h.stateRepo.CleanupRoomState(ctx, payload.RoomID); err != nil {
		logCtx.WithError(err).Warn("Room state cleanup failed, will retry")
		return err
	}
	logCtx.Info("Room state cleaned up")
	return nil
}

// HandleIdleSweep 扫描长期无活动的房间并清理其派生状态。
// 房间本身和消息历史不受影响，只回收缓存。
func (h *Handlers) HandleIdleSweep(ctx context.Context, t *asynq.Task) error {
	roomIDs, err := h.stateRepo.IdleRooms(ctx, time.Now().Add(-idleThreshold))
	if err != nil {
		return fmt.Errorf("list idle rooms: %w", err)
	}

	cleaned := 0
	for _, roomID := range roomIDs {
		if h.presence.CountFor(roomID) > 0 {
			continue
		}
		if err := h.stateRepo.CleanupRoomState(ctx, roomID); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Idle sweep cleanup failed")
			continue
		}
		cleaned++
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(roomIDs),
		"cleaned":    cleaned,
	}).Info("Idle room sweep finished")
	return nil
}
