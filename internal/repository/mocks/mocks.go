// Package mocks 提供 repository 接口的 testify mock 实现，仅用于测试。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// MockUserRepository 是 repository.UserRepository 的 mock。
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockRoomRepository 是 repository.RoomRepository 的 mock。
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if r := args.Get(0); r != nil {
		return r.(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomRepository) List(ctx context.Context, page, pageSize int) ([]domain.Room, int64, error) {
	args := m.Called(ctx, page, pageSize)
	var rooms []domain.Room
	if r := args.Get(0); r != nil {
		rooms = r.([]domain.Room)
	}
	return rooms, args.Get(1).(int64), args.Error(2)
}

func (m *MockRoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockRoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockRoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) CountMembers(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoomRepository) MemberCounts(ctx context.Context, roomIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, roomIDs)
	if c := args.Get(0); c != nil {
		return c.(map[string]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository 是 repository.MessageRepository 的 mock。
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) History(ctx context.Context, roomID string, beforeTime int64, limit int) ([]domain.Message, bool, error) {
	args := m.Called(ctx, roomID, beforeTime, limit)
	var msgs []domain.Message
	if r := args.Get(0); r != nil {
		msgs = r.([]domain.Message)
	}
	return msgs, args.Bool(1), args.Error(2)
}

// MockStateRepository 是 repository.StateRepository 的 mock。
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) CacheMessage(ctx context.Context, roomID string, msg *domain.Message) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

func (m *MockStateRepository) RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []domain.Message
	if r := args.Get(0); r != nil {
		msgs = r.([]domain.Message)
	}
	return msgs, args.Error(1)
}

func (m *MockStateRepository) BackfillRecent(ctx context.Context, roomID string, msgs []domain.Message) error {
	args := m.Called(ctx, roomID, msgs)
	return args.Error(0)
}

func (m *MockStateRepository) TouchRoomActivity(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStateRepository) IdleRooms(ctx context.Context, olderThan time.Time) ([]string, error) {
	args := m.Called(ctx, olderThan)
	var ids []string
	if r := args.Get(0); r != nil {
		ids = r.([]string)
	}
	return ids, args.Error(1)
}

func (m *MockStateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
