package gormpersistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Room{}, &domain.RoomMember{}, &domain.Message{}))
	return db
}

func seedMessages(t *testing.T, repo *GormMessageRepository, roomID string, n int) {
	t.Helper()
	// msg_id 是全局主键，跨房间播种时必须带房间前缀
	for i := 1; i <= n; i++ {
		require.NoError(t, repo.Append(context.Background(), &domain.Message{
			MsgID:     fmt.Sprintf("%s_m_%06d", roomID, i),
			RoomID:    roomID,
			UserID:    "u_1",
			Content:   fmt.Sprintf("msg %d", i),
			MsgType:   domain.MsgTypeText,
			CreatedAt: int64(i * 1000),
		}))
	}
}

func TestMessageHistory_NewestFirst(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	seedMessages(t, repo, "r_1", 5)

	msgs, hasMore, err := repo.History(context.Background(), "r_1", 0, 10)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i-1].CreatedAt, msgs[i].CreatedAt)
	}
}

func TestMessageHistory_HasMoreProbe(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	seedMessages(t, repo, "r_1", 11)

	msgs, hasMore, err := repo.History(context.Background(), "r_1", 0, 10)
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, msgs, 10, "probe row must be trimmed from the page")

	msgs, hasMore, err = repo.History(context.Background(), "r_1", msgs[len(msgs)-1].CreatedAt, 10)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Len(t, msgs, 1)
}

func TestMessageHistory_CursorReconstructsFullStream(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	const total = 37
	seedMessages(t, repo, "r_1", total)

	// 沿游标分页读完整条流，不得遗漏或重复
	var collected []string
	cursor := int64(0)
	for {
		msgs, hasMore, err := repo.History(context.Background(), "r_1", cursor, 10)
		require.NoError(t, err)
		for _, m := range msgs {
			collected = append(collected, m.MsgID)
		}
		if !hasMore {
			break
		}
		cursor = msgs[len(msgs)-1].CreatedAt
	}

	require.Len(t, collected, total)
	seen := make(map[string]bool)
	for _, id := range collected {
		assert.False(t, seen[id], "duplicate message %s in paginated stream", id)
		seen[id] = true
	}
}

func TestMessageHistory_RoomScoped(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	seedMessages(t, repo, "r_1", 3)
	seedMessages(t, repo, "r_2", 2)

	msgs, _, err := repo.History(context.Background(), "r_1", 0, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, "r_1", m.RoomID)
	}
}

func TestMessageHistory_EmptyRoom(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	msgs, hasMore, err := repo.History(context.Background(), "r_empty", 0, 10)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, msgs)
}
