package gormpersistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

func TestRoomRepository_FindByIDNotFound(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), "r_missing")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestRoomRepository_AddMemberIdempotent(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.Room{RoomID: "r_1", Name: "general"}))

	require.NoError(t, repo.AddMember(ctx, "r_1", "u_1"))
	require.NoError(t, repo.AddMember(ctx, "r_1", "u_1"))

	count, err := repo.CountMembers(ctx, "r_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRoomRepository_RemoveMemberNoop(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	assert.NoError(t, repo.RemoveMember(ctx, "r_1", "u_ghost"))
}

func TestRoomRepository_MembershipRoundTrip(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.Room{RoomID: "r_1", Name: "general"}))

	ok, err := repo.IsMember(ctx, "r_1", "u_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.AddMember(ctx, "r_1", "u_1"))
	ok, err = repo.IsMember(ctx, "r_1", "u_1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RemoveMember(ctx, "r_1", "u_1"))
	ok, err = repo.IsMember(ctx, "r_1", "u_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoomRepository_MemberCountsBatch(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.Room{RoomID: "r_1", Name: "a"}))
	require.NoError(t, repo.Save(ctx, &domain.Room{RoomID: "r_2", Name: "b"}))
	require.NoError(t, repo.AddMember(ctx, "r_1", "u_1"))
	require.NoError(t, repo.AddMember(ctx, "r_1", "u_2"))

	counts, err := repo.MemberCounts(ctx, []string{"r_1", "r_2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["r_1"])
	assert.Equal(t, int64(0), counts["r_2"])
}

func TestRoomRepository_ListPagination(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()
	for i, id := range []string{"r_1", "r_2", "r_3"} {
		require.NoError(t, repo.Save(ctx, &domain.Room{
			RoomID:    id,
			Name:      id,
			CreatedAt: int64((i + 1) * 1000),
		}))
	}

	rooms, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rooms, 2)
	// 创建时间倒序
	assert.Equal(t, "r_3", rooms[0].RoomID)

	rooms, _, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r_1", rooms[0].RoomID)
}
