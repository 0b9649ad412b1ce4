package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型
const (
	TypeRoomCleanup = "room:cleanup"
	TypeIdleSweep   = "rooms:idle_sweep"
)

// 任务队列名，对应 worker 的权重配置
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// RoomCleanupPayload 是单房间清理任务的载荷。
type RoomCleanupPayload struct {
	RoomID string `json:"room_id"`
}

// NewRoomCleanupTask 构造一个清理指定房间派生状态的任务。
func NewRoomCleanupTask(roomID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomCleanupPayload{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("marshal room cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeRoomCleanup, payload), nil
}

// NewIdleSweepTask 构造一次全量闲置房间扫描任务，由调度器周期触发。
func NewIdleSweepTask() *asynq.Task {
	return asynq.NewTask(TypeIdleSweep, nil)
}

// Queue 包装 asynq.Client，供投递中枢在房间清空后安排异步清理。
type Queue struct {
	client *asynq.Client
}

// NewQueue 创建任务入队器。
func NewQueue(client *asynq.Client) *Queue {
	if client == nil {
		panic("asynq client cannot be nil for Queue")
	}
	return &Queue{client: client}
}

// EnqueueRoomCleanup 把房间清理任务放入低优先级队列。
func (q *Queue) EnqueueRoomCleanup(ctx context.Context, roomID string) error {
	task, err := NewRoomCleanupTask(roomID)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(QueueLow), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("enqueue room cleanup: %w", err)
	}
	return nil
}

// Close 释放底层连接。
func (q *Queue) Close() error {
	return q.client.Close()
}
