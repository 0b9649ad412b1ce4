package worker

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baijianruoli/bot-chat/internal/repository/mocks"
	"github.com/baijianruoli/bot-chat/internal/tasks"
)

type stubPresence struct {
	counts map[string]int
}

func (s *stubPresence) CountFor(roomID string) int {
	return s.counts[roomID]
}

func TestHandleRoomCleanup_CleansEmptyRoom(t *testing.T) {
	stateRepo := new(mocks.MockStateRepository)
	stateRepo.On("CleanupRoomState", mock.Anything, "r_1").Return(nil)
	h := NewHandlers(stateRepo, &stubPresence{counts: map[string]int{}})

	task, err := tasks.NewRoomCleanupTask("r_1")
	require.NoError(t, err)

	require.NoError(t, h.HandleRoomCleanup(context.Background(), task))
	stateRepo.AssertExpectations(t)
}

func TestHandleRoomCleanup_SkipsActiveRoom(t *testing.T) {
	stateRepo := new(mocks.MockStateRepository)
	h := NewHandlers(stateRepo, &stubPresence{counts: map[string]int{"r_1": 2}})

	task, err := tasks.NewRoomCleanupTask("r_1")
	require.NoError(t, err)

	// 任务入队后房间又有人了，跳过清理且不重试
	require.NoError(t, h.HandleRoomCleanup(context.Background(), task))
	stateRepo.AssertNotCalled(t, "CleanupRoomState", mock.Anything, mock.Anything)
}

func TestHandleRoomCleanup_BadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(new(mocks.MockStateRepository), &stubPresence{counts: map[string]int{}})

	err := h.HandleRoomCleanup(context.Background(), asynq.NewTask(tasks.TypeRoomCleanup, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleIdleSweep_CleansOnlyQuietRooms(t *testing.T) {
	stateRepo := new(mocks.MockStateRepository)
	stateRepo.On("IdleRooms", mock.Anything, mock.MatchedBy(func(ts time.Time) bool {
		return ts.Before(time.Now())
	})).Return([]string{"r_idle", "r_busy"}, nil)
	stateRepo.On("CleanupRoomState", mock.Anything, "r_idle").Return(nil)
	h := NewHandlers(stateRepo, &stubPresence{counts: map[string]int{"r_busy": 3}})

	require.NoError(t, h.HandleIdleSweep(context.Background(), tasks.NewIdleSweepTask()))
	stateRepo.AssertExpectations(t)
	stateRepo.AssertNotCalled(t, "CleanupRoomState", mock.Anything, "r_busy")
}
