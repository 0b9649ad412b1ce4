package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

func newTestClient(userID string) *Client {
	return NewClient(nil, nil, &domain.User{UserID: userID, Username: userID})
}

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")

	reg.Register(c)
	assert.Equal(t, 1, reg.Len())

	roomID, was := reg.Unregister(c)
	assert.Equal(t, "", roomID)
	assert.True(t, was)
	assert.Equal(t, 0, reg.Len())

	// 重复注销是幂等的
	roomID, was = reg.Unregister(c)
	assert.Equal(t, "", roomID)
	assert.False(t, was)
}

func TestRegistry_UnregisterClosesSendOnce(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")
	reg.Register(c)

	reg.Unregister(c)
	reg.Unregister(c)

	_, open := <-c.send
	assert.False(t, open, "send queue must be closed after unregister")
	// 关闭后的投递不得 panic
	assert.False(t, c.Enqueue([]byte("late")))
}

func TestRegistry_SetRoomMovesAtomically(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")
	reg.Register(c)

	prev := reg.SetRoom(c, "r_a")
	assert.Equal(t, "", prev)
	assert.Equal(t, "r_a", reg.Room(c))
	assert.Equal(t, 1, reg.CountByRoom("r_a"))

	prev = reg.SetRoom(c, "r_b")
	assert.Equal(t, "r_a", prev)
	assert.Equal(t, "r_b", reg.Room(c))
	// 任一时刻连接只出现在一个房间
	assert.Equal(t, 0, reg.CountByRoom("r_a"))
	assert.Equal(t, 1, reg.CountByRoom("r_b"))
}

func TestRegistry_SetRoomIgnoresUnregistered(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")

	reg.SetRoom(c, "r_a")
	assert.Equal(t, 0, reg.CountByRoom("r_a"))
}

func TestRegistry_ClearRoomIf(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")
	reg.Register(c)
	reg.SetRoom(c, "r_a")

	// 过期的离开操作 (针对旧房间) 不生效
	assert.False(t, reg.ClearRoomIf(c, "r_b"))
	assert.Equal(t, "r_a", reg.Room(c))

	assert.True(t, reg.ClearRoomIf(c, "r_a"))
	assert.Equal(t, "", reg.Room(c))
	assert.False(t, reg.ClearRoomIf(c, "r_a"))
}

func TestRegistry_UnregisterDetachesFromRoom(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("u_1")
	reg.Register(c)
	reg.SetRoom(c, "r_a")

	roomID, was := reg.Unregister(c)
	require.True(t, was)
	assert.Equal(t, "r_a", roomID)
	assert.Equal(t, 0, reg.CountByRoom("r_a"))
}

func TestRegistry_UserConnsInRoom(t *testing.T) {
	reg := NewRegistry()
	tab1 := newTestClient("u_1")
	tab2 := newTestClient("u_1")
	other := newTestClient("u_2")
	for _, c := range []*Client{tab1, tab2, other} {
		reg.Register(c)
		reg.SetRoom(c, "r_a")
	}

	assert.Equal(t, 3, reg.CountByRoom("r_a"))
	assert.Equal(t, 2, reg.UserConnsInRoom("u_1", "r_a"))

	reg.Unregister(tab1)
	assert.Equal(t, 1, reg.UserConnsInRoom("u_1", "r_a"))

	reg.Unregister(tab2)
	assert.Equal(t, 0, reg.UserConnsInRoom("u_1", "r_a"))
	assert.Equal(t, 1, reg.CountByRoom("r_a"))
}

func TestRegistry_ListByRoomIsSnapshot(t *testing.T) {
	reg := NewRegistry()
	c1 := newTestClient("u_1")
	c2 := newTestClient("u_2")
	reg.Register(c1)
	reg.Register(c2)
	reg.SetRoom(c1, "r_a")
	reg.SetRoom(c2, "r_a")

	snapshot := reg.ListByRoom("r_a")
	require.Len(t, snapshot, 2)

	reg.Unregister(c1)
	// 快照不受后续变更影响
	assert.Len(t, snapshot, 2)
	assert.Len(t, reg.ListByRoom("r_a"), 1)
}
